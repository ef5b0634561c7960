package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ExtractorStats provides the metrics collector access to pipeline state.
type ExtractorStats interface {
	InFlight() int
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	stats ExtractorStats

	inFlight *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// stats may be nil (the gauge reports 0).
func NewCollector(stats ExtractorStats) *Collector {
	return &Collector{
		stats: stats,
		inFlight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "extractions_in_flight"),
			"Current number of extractions being processed.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inFlight
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	n := 0
	if c.stats != nil {
		n = c.stats.InFlight()
	}
	ch <- prometheus.MustNewConstMetric(c.inFlight, prometheus.GaugeValue, float64(n))
}
