// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package empstats

import (
	"time"

	"github.com/featurebasedb/empstats/dataset"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricNamespace = "empstats"

	MetricHTTPRequests        = "http_requests_total"
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricDatasetRecords      = "dataset_records"
	MetricDatasetLoads        = "dataset_loads_total"
)

var CounterHTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: MetricNamespace,
		Name:      MetricHTTPRequests,
		Help:      "Count of HTTP requests by route, method and status code.",
	},
	[]string{
		"route",
		"method",
		"code",
	},
)

var HistogramHTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: MetricNamespace,
		Name:      MetricHTTPRequestDuration,
		Help:      "Duration of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{
		"route",
	},
)

var GaugeDatasetRecords = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: MetricNamespace,
		Name:      MetricDatasetRecords,
		Help:      "Number of records in the loaded dataset.",
	},
)

var CounterDatasetLoads = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: MetricNamespace,
		Name:      MetricDatasetLoads,
		Help:      "Count of successful dataset loads.",
	},
)

func init() {
	prometheus.MustRegister(CounterHTTPRequests)
	prometheus.MustRegister(HistogramHTTPRequestDuration)
	prometheus.MustRegister(GaugeDatasetRecords)
	prometheus.MustRegister(CounterDatasetLoads)
}

// ObserveDatasetLoad records a successful load. It has the signature
// dataset.OptLoaderObserver expects.
func ObserveDatasetLoad(ds *dataset.Dataset, dur time.Duration) {
	GaugeDatasetRecords.Set(float64(ds.Len()))
	CounterDatasetLoads.Inc()
}
