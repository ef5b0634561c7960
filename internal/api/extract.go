package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/snarg/vidscribe/internal/extract"
)

// Extractor runs one extraction. Implemented by *extract.Extractor.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request) extract.Result
}

// ExtractDefaults fill in request fields the caller leaves empty.
type ExtractDefaults struct {
	Method     string
	Format     string
	Credential string
}

// CredentialHeader lets a caller supply its own speech provider key.
const CredentialHeader = "X-Speech-API-Key"

type ExtractHandler struct {
	extractor Extractor
	defaults  ExtractDefaults
}

func NewExtractHandler(x Extractor, defaults ExtractDefaults) *ExtractHandler {
	return &ExtractHandler{extractor: x, defaults: defaults}
}

type extractBody struct {
	URL             string `json:"url"`
	Method          string `json:"method"`
	Format          string `json:"format"`
	FallbackWhisper bool   `json:"fallback_whisper"`
}

// Post handles POST /api/v1/extract with a JSON body.
func (h *ExtractHandler) Post(w http.ResponseWriter, r *http.Request) {
	var body extractBody
	if err := DecodeJSON(r, &body); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	h.serve(w, r, body)
}

// Get handles GET /api/v1/extract?url=...&method=...&format=...
func (h *ExtractHandler) Get(w http.ResponseWriter, r *http.Request) {
	var body extractBody
	body.URL, _ = QueryString(r, "url")
	body.Method, _ = QueryString(r, "method")
	body.Format, _ = QueryString(r, "format")
	if raw, ok := QueryString(r, "fallback_whisper"); ok {
		if body.FallbackWhisper, ok = QueryBool(r, "fallback_whisper"); !ok {
			WriteErrorDetail(w, http.StatusBadRequest, "invalid query parameter", "fallback_whisper must be a boolean, got "+strconv.Quote(raw))
			return
		}
	}
	h.serve(w, r, body)
}

func (h *ExtractHandler) serve(w http.ResponseWriter, r *http.Request, body extractBody) {
	req := extract.Request{
		Reference:        body.URL,
		Method:           body.Method,
		Format:           body.Format,
		Credential:       h.defaults.Credential,
		FallbackToSpeech: body.FallbackWhisper,
	}
	if req.Method == "" {
		req.Method = h.defaults.Method
	}
	if req.Format == "" {
		req.Format = h.defaults.Format
	}
	if key := r.Header.Get(CredentialHeader); key != "" {
		req.Credential = key
	}

	res := h.extractor.Extract(r.Context(), req)
	WriteJSON(w, StatusFor(res), res)
}

// StatusFor maps an extraction result onto an HTTP status code.
func StatusFor(res extract.Result) int {
	f, failed := res.Failure()
	if !failed {
		return http.StatusOK
	}
	switch f.Kind {
	case extract.InvalidConfiguration, extract.InvalidVideoReference:
		return http.StatusBadRequest
	case extract.NoTranscriptAvailable:
		return http.StatusNotFound
	case extract.MissingCredential, extract.MissingDependency:
		return http.StatusFailedDependency
	case extract.AcquisitionFailed, extract.AuthenticationFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
