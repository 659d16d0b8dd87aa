package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilesImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcirc_files_imported_total",
			Help: "Total ADCIRC files successfully imported",
		},
		[]string{"kind"},
	)

	FilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcirc_files_skipped_total",
			Help: "Total files skipped as unrecognized or unreadable",
		},
	)

	DatasetsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcirc_datasets_imported_total",
			Help: "Total datasets produced by the readers",
		},
	)

	ImportLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcirc_import_latency_seconds",
			Help:    "Per-file import latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	FetchedFiles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcirc_ftp_fetched_files_total",
			Help: "Total solution files downloaded over FTP",
		},
	)

	FetchedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcirc_ftp_fetched_bytes_total",
			Help: "Total bytes downloaded over FTP",
		},
	)
)
