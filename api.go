package iceflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cryodata/iceflow/catalog"
	"github.com/cryodata/iceflow/fetch"
	"github.com/cryodata/iceflow/internal/logging"
	"github.com/cryodata/iceflow/internal/observability"
	"github.com/cryodata/iceflow/itrf"
	"github.com/cryodata/iceflow/model"
	"github.com/cryodata/iceflow/reader"
	"github.com/cryodata/iceflow/store"
)

// ClientOptions configure a Client. The zero value is usable: defaults come
// from fetch.ConfigFromEnv, a no-op logger, and the global Prometheus
// registry.
type ClientOptions struct {
	Fetch    *fetch.Config
	Logger   logging.Logger
	Registry prometheus.Registerer
}

// Client is the high-level entry point tying together catalog search,
// download, reading, and frame transformation.
type Client struct {
	log     logging.Logger
	metrics *observability.PipelineCollector
	catalog *catalog.Catalog
	fetcher *fetch.Client
	reader  *reader.Reader
	tracer  trace.Tracer
}

// New constructs a Client.
func New(opts ClientOptions) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	cfg := fetch.ConfigFromEnv()
	if opts.Fetch != nil {
		cfg = *opts.Fetch
	}

	metrics, err := observability.NewPipelineCollector(opts.Registry)
	if err != nil {
		return nil, fmt.Errorf("register pipeline metrics: %w", err)
	}

	return &Client{
		log:     log,
		metrics: metrics,
		catalog: catalog.New(),
		fetcher: fetch.NewClient(cfg, log, metrics),
		reader:  reader.New(log),
		tracer:  otel.Tracer("github.com/cryodata/iceflow"),
	}, nil
}

// Metrics exposes the pipeline Prometheus collector, e.g. to serve its
// Handler on a /metrics endpoint.
func (c *Client) Metrics() *observability.PipelineCollector {
	return c.metrics
}

// Catalog exposes the dataset registry.
func (c *Client) Catalog() *catalog.Catalog {
	return c.catalog
}

// TransformOptions select an optional target frame and epoch for fetched
// points.
type TransformOptions struct {
	// TargetFrame, when non-empty, is the ITRF realization all points are
	// transformed to, e.g. "ITRF2014". Empty keeps each point in its source
	// frame.
	TargetFrame string

	// TargetEpoch, when non-zero, is the decimal year coordinates are
	// propagated to with the plate motion model. Requires TargetFrame.
	TargetEpoch float64

	// Plate overrides plate inference for epoch propagation.
	Plate itrf.Plate
}

func (o TransformOptions) validate() error {
	if o.TargetFrame == "" {
		if o.TargetEpoch != 0 {
			return fmt.Errorf("a target epoch requires a target frame")
		}
		return nil
	}
	if !itrf.Check(o.TargetFrame) {
		return fmt.Errorf("target frame %q is not an ITRF string", o.TargetFrame)
	}
	return nil
}

// Fetch searches, downloads, and reads every matching granule, returning one
// concatenated point batch. When opts names a target frame the batch is
// transformed to it before returning.
//
// All matching points are held in memory; for wide queries prefer
// CreateParquet, which streams one granule at a time.
func (c *Client) Fetch(ctx context.Context, params model.SearchParameters, outputDir string, opts TransformOptions) (*model.PointBatch, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	ctx, log := logging.WithRequestLogger(ctx, c.log)

	ctx, span := c.tracer.Start(ctx, "iceflow.Fetch")
	defer span.End()

	local, err := c.searchAndDownload(ctx, params, outputDir)
	if err != nil {
		return nil, err
	}

	batches := make([]*model.PointBatch, 0, len(local))
	var points int
	for _, lg := range local {
		batch, err := c.readGranule(ctx, lg)
		if err != nil {
			return nil, err
		}
		points += batch.Len()
		batches = append(batches, batch)
	}

	merged := model.Concat(batches...)
	if opts.TargetFrame != "" {
		merged, err = c.transform(ctx, merged, opts)
		if err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("iceflow.points", points))
	log.Info(ctx, "fetch finished",
		logging.Int("granules", len(local)),
		logging.Int("points", merged.Len()),
		logging.String("target_itrf", opts.TargetFrame))
	return merged, nil
}

// CreateParquetOptions configure CreateParquet.
type CreateParquetOptions struct {
	// Overwrite removes an existing cache directory instead of failing.
	Overwrite bool

	// TargetEpoch and Plate behave as in TransformOptions.
	TargetEpoch float64
	Plate       itrf.Plate
}

// CreateParquet runs the fetch pipeline but transforms every granule batch
// to targetFrame and appends it to a parquet cache directory under
// outputDir, keeping only the common columns. It returns the cache path.
func (c *Client) CreateParquet(ctx context.Context, params model.SearchParameters, outputDir, targetFrame string, opts CreateParquetOptions) (string, error) {
	topts := TransformOptions{
		TargetFrame: targetFrame,
		TargetEpoch: opts.TargetEpoch,
		Plate:       opts.Plate,
	}
	if targetFrame == "" {
		return "", fmt.Errorf("a parquet cache requires a target frame")
	}
	if err := topts.validate(); err != nil {
		return "", err
	}
	ctx, log := logging.WithRequestLogger(ctx, c.log)

	ctx, span := c.tracer.Start(ctx, "iceflow.CreateParquet")
	defer span.End()

	cacheDir := filepath.Join(outputDir, store.DefaultName)
	writer, err := store.Create(cacheDir, opts.Overwrite)
	if err != nil {
		return "", err
	}

	local, err := c.searchAndDownload(ctx, params, outputDir)
	if err != nil {
		return "", err
	}

	totalRows := 0
	for _, lg := range local {
		batch, err := c.readGranule(ctx, lg)
		if err != nil {
			return "", err
		}
		batch, err = c.transform(ctx, batch, topts)
		if err != nil {
			return "", err
		}
		rows, err := writer.Append(batch)
		if err != nil {
			return "", err
		}
		c.metrics.RecordParquetRows(rows)
		totalRows += rows
	}

	span.SetAttributes(attribute.Int("iceflow.rows", totalRows))
	log.Info(ctx, "parquet cache written",
		logging.String("path", cacheDir),
		logging.Int("granules", len(local)),
		logging.Int("rows", totalRows),
		logging.String("target_itrf", targetFrame))
	return cacheDir, nil
}

func (c *Client) searchAndDownload(ctx context.Context, params model.SearchParameters, outputDir string) ([]fetch.LocalGranule, error) {
	if err := c.catalog.ValidateSearch(params); err != nil {
		return nil, err
	}
	granules, err := c.fetcher.SearchGranules(ctx, params)
	if err != nil {
		return nil, err
	}
	return c.fetcher.Download(ctx, granules, outputDir)
}

func (c *Client) readGranule(ctx context.Context, lg fetch.LocalGranule) (*model.PointBatch, error) {
	batch, err := c.reader.Read(ctx, lg.Granule.Dataset, lg.Path)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordPointsRead(lg.Granule.Dataset.String(), batch.Len())
	return batch, nil
}

func (c *Client) transform(ctx context.Context, batch *model.PointBatch, opts TransformOptions) (*model.PointBatch, error) {
	_, span := c.tracer.Start(ctx, "iceflow.Transform",
		trace.WithAttributes(attribute.String("iceflow.target", opts.TargetFrame)))
	defer span.End()

	sources := map[string]bool{}
	for _, tag := range batch.ITRF {
		sources[tag] = true
	}

	out, err := itrf.Transform(batch, itrf.Frame(opts.TargetFrame), itrf.Options{
		TargetEpoch: opts.TargetEpoch,
		Plate:       opts.Plate,
	})
	if err != nil {
		return nil, fmt.Errorf("transform to %s: %w", opts.TargetFrame, err)
	}

	for src := range sources {
		c.metrics.RecordTransform(src, opts.TargetFrame)
	}
	return out, nil
}
