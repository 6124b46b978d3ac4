package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the enrichment pipeline.
var (
	detailFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placeharvest_detail_fetch_total",
		Help: "Detail fetch outcomes by result",
	}, []string{"result"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "placeharvest_retries_total",
		Help: "Total number of detail fetch retry attempts",
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "placeharvest_retry_exhausted_total",
		Help: "Total number of times the retry budget ran out",
	})

	searchPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "placeharvest_search_pages_total",
		Help: "Total number of search result pages fetched",
	})
)
