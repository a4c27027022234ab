package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compdash",
		Subsystem: "submissions",
		Name:      "total",
		Help:      "The total number of submission attempts by kind and outcome",
	}, []string{"kind", "outcome"})

	deleteCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compdash",
		Subsystem: "submissions",
		Name:      "deleted_total",
		Help:      "The total number of submission deletions by kind and outcome",
	}, []string{"kind", "outcome"})

	resolutionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compdash",
		Subsystem: "identity",
		Name:      "team_resolutions_total",
		Help:      "The total number of email to team resolutions by outcome",
	}, []string{"outcome"})

	unknownAuthorCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "compdash",
		Subsystem: "identity",
		Name:      "unknown_author_total",
		Help:      "The total number of submissions attributed to the Unknown author",
	})

	uploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "compdash",
		Subsystem: "submissions",
		Name:      "upload_bytes",
		Help:      "Size of uploaded submission files",
		Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
	})
)
