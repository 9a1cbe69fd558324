package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the entitlement core, registered on the default registry
// and exposed on /metrics.
var (
	DownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docvault_downloads_total",
		Help: "The total number of granted downloads",
	})

	RedemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docvault_redemptions_total",
		Help: "The total number of successful code redemptions",
	})

	ShareOpensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docvault_share_opens_total",
		Help: "The total number of successful share link opens",
	})
)
