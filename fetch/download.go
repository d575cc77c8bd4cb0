package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/cryodata/iceflow/internal/logging"
	"github.com/cryodata/iceflow/internal/observability"
	"github.com/cryodata/iceflow/internal/retry"
	"github.com/cryodata/iceflow/model"
)

// LocalGranule pairs a granule descriptor with its on-disk location.
type LocalGranule struct {
	Granule model.Granule
	Path    string
}

// Download fetches granule files into per-dataset subdirectories of
// outputDir, skipping files that are already present. Downloads run
// concurrently up to the configured limit; results keep the input order.
func (c *Client) Download(ctx context.Context, granules []model.Granule, outputDir string) ([]LocalGranule, error) {
	ctx, span := c.tracer.Start(ctx, "fetch.Download")
	defer span.End()
	span.SetAttributes(attribute.Int("iceflow.granules", len(granules)))

	results := make([]LocalGranule, len(granules))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for i, granule := range granules {
		g.Go(func() error {
			local, err := c.downloadGranule(ctx, granule, outputDir)
			if err != nil {
				c.metrics.RecordDownload(granule.Dataset.String(), observability.DownloadError, 0, 0)
				return fmt.Errorf("download %s: %w", granule.ProducerID, err)
			}
			results[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) downloadGranule(ctx context.Context, granule model.Granule, outputDir string) (LocalGranule, error) {
	name := granule.ProducerID
	if name == "" {
		u, err := url.Parse(granule.URL)
		if err != nil {
			return LocalGranule{}, fmt.Errorf("granule URL %q: %w", granule.URL, err)
		}
		name = path.Base(u.Path)
	}

	subdir := filepath.Join(outputDir, granule.Dataset.SubdirName())
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return LocalGranule{}, err
	}
	dest := filepath.Join(subdir, name)

	if st, err := os.Stat(dest); err == nil && st.Size() > 0 {
		c.log.Debug(ctx, "granule already downloaded",
			logging.String("path", dest),
			logging.Int64("size_bytes", st.Size()))
		c.metrics.RecordDownload(granule.Dataset.String(), observability.DownloadSkipped, 0, 0)
		return LocalGranule{Granule: granule, Path: dest}, nil
	}

	start := time.Now()
	var written int64
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		var attemptErr error
		written, attemptErr = c.fetchToFile(ctx, granule.URL, dest)
		return attemptErr
	})
	if err != nil {
		return LocalGranule{}, err
	}

	elapsed := time.Since(start)
	c.metrics.RecordDownload(granule.Dataset.String(), observability.DownloadOK, written, elapsed)
	c.log.Info(ctx, "granule downloaded",
		logging.String("dataset", granule.Dataset.String()),
		logging.String("path", dest),
		logging.Int64("size_bytes", written),
		logging.Duration("elapsed", elapsed))
	return LocalGranule{Granule: granule, Path: dest}, nil
}

// fetchToFile streams the response body to a temp file beside dest and
// renames it into place, so a partial download never masquerades as a
// complete granule.
func (c *Client) fetchToFile(ctx context.Context, rawURL, dest string) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, retry.NonRetryable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, retry.NonRetryable(err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	tmp := fmt.Sprintf("%s.%s.tmp", dest, uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return 0, retry.NonRetryable(err)
	}

	written, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, retry.NonRetryable(err)
	}
	return written, nil
}
