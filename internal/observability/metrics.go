package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Download outcome labels.
const (
	DownloadOK      = "ok"
	DownloadSkipped = "skipped"
	DownloadError   = "error"
)

// PipelineCollector bundles Prometheus metrics for the fetch/read/transform
// pipeline and provides a ready-made /metrics handler.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	Searches      *prometheus.CounterVec
	GranulesFound *prometheus.CounterVec

	Downloads        *prometheus.CounterVec
	DownloadBytes    *prometheus.CounterVec
	DownloadDuration *prometheus.HistogramVec

	PointsRead *prometheus.CounterVec
	Transforms *prometheus.CounterVec

	ParquetRows prometheus.Counter
}

// NewPipelineCollector registers pipeline Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
// Registration tolerates collectors already registered by an earlier
// instance.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	searches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iceflow_searches_total",
		Help: "Total number of catalog searches issued, labeled by dataset.",
	}, []string{"dataset"}), "iceflow_searches_total")
	if err != nil {
		return nil, err
	}

	found, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iceflow_granules_found_total",
		Help: "Total number of granules returned by catalog searches, labeled by dataset.",
	}, []string{"dataset"}), "iceflow_granules_found_total")
	if err != nil {
		return nil, err
	}

	downloads, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iceflow_downloads_total",
		Help: "Total number of granule downloads, labeled by dataset and outcome.",
	}, []string{"dataset", "status"}), "iceflow_downloads_total")
	if err != nil {
		return nil, err
	}

	bytes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iceflow_download_bytes_total",
		Help: "Total bytes downloaded, labeled by dataset.",
	}, []string{"dataset"}), "iceflow_download_bytes_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iceflow_download_duration_seconds",
		Help:    "Granule download latency in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"dataset"}), "iceflow_download_duration_seconds")
	if err != nil {
		return nil, err
	}

	points, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iceflow_points_read_total",
		Help: "Total point records parsed from granule files, labeled by dataset.",
	}, []string{"dataset"}), "iceflow_points_read_total")
	if err != nil {
		return nil, err
	}

	transforms, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iceflow_transforms_total",
		Help: "Total reference-frame transformations, labeled by source and target frame.",
	}, []string{"source", "target"}), "iceflow_transforms_total")
	if err != nil {
		return nil, err
	}

	rows, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iceflow_parquet_rows_total",
		Help: "Total rows appended to the parquet cache.",
	}), "iceflow_parquet_rows_total")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:         gatherer,
		Searches:         searches,
		GranulesFound:    found,
		Downloads:        downloads,
		DownloadBytes:    bytes,
		DownloadDuration: durations,
		PointsRead:       points,
		Transforms:       transforms,
		ParquetRows:      rows,
	}, nil
}

// RecordSearch counts one catalog search and the granules it returned.
func (c *PipelineCollector) RecordSearch(dataset string, granules int) {
	if c == nil {
		return
	}
	if c.Searches != nil {
		c.Searches.WithLabelValues(dataset).Inc()
	}
	if c.GranulesFound != nil {
		c.GranulesFound.WithLabelValues(dataset).Add(float64(granules))
	}
}

// RecordDownload counts one granule download attempt with its outcome,
// transferred bytes, and duration.
func (c *PipelineCollector) RecordDownload(dataset, status string, bytes int64, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Downloads != nil {
		c.Downloads.WithLabelValues(dataset, status).Inc()
	}
	if status != DownloadOK {
		return
	}
	if c.DownloadBytes != nil {
		c.DownloadBytes.WithLabelValues(dataset).Add(float64(bytes))
	}
	if c.DownloadDuration != nil {
		c.DownloadDuration.WithLabelValues(dataset).Observe(elapsed.Seconds())
	}
}

// RecordPointsRead counts point records parsed from one granule.
func (c *PipelineCollector) RecordPointsRead(dataset string, points int) {
	if c == nil || c.PointsRead == nil {
		return
	}
	c.PointsRead.WithLabelValues(dataset).Add(float64(points))
}

// RecordTransform counts one frame-transformation chunk.
func (c *PipelineCollector) RecordTransform(source, target string) {
	if c == nil || c.Transforms == nil {
		return
	}
	c.Transforms.WithLabelValues(source, target).Inc()
}

// RecordParquetRows counts rows appended to the parquet cache.
func (c *PipelineCollector) RecordParquetRows(rows int) {
	if c == nil || c.ParquetRows == nil {
		return
	}
	c.ParquetRows.Add(float64(rows))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PipelineCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
