// Package fetch searches the NASA Common Metadata Repository (CMR) for
// altimetry granules and downloads them from Earthdata.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/cryodata/iceflow/internal/logging"
	"github.com/cryodata/iceflow/internal/observability"
	"github.com/cryodata/iceflow/internal/retry"
	"github.com/cryodata/iceflow/model"
)

const (
	searchAfterHeader = "CMR-Search-After"
	dataLinkRel       = "http://esipfed.org/ns/fedsearch/1.1/data#"
)

// Client talks to CMR and the Earthdata download servers.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     logging.Logger
	metrics *observability.PipelineCollector
	tracer  trace.Tracer
}

// NewClient constructs a Client. Logger and metrics may be nil.
func NewClient(cfg Config, log logging.Logger, metrics *observability.PipelineCollector) *Client {
	cfg.normalize()
	if log == nil {
		log = logging.Noop()
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		log:     log,
		metrics: metrics,
		tracer:  otel.Tracer("github.com/cryodata/iceflow/fetch"),
	}
}

// cmrResponse is the granules.json search response shape.
type cmrResponse struct {
	Feed struct {
		Entry []cmrEntry `json:"entry"`
	} `json:"feed"`
}

type cmrEntry struct {
	ProducerGranuleID string    `json:"producer_granule_id"`
	Title             string    `json:"title"`
	GranuleSize       string    `json:"granule_size"` // megabytes
	TimeStart         string    `json:"time_start"`
	TimeEnd           string    `json:"time_end"`
	Links             []cmrLink `json:"links"`
}

type cmrLink struct {
	Rel       string `json:"rel"`
	Href      string `json:"href"`
	Inherited bool   `json:"inherited"`
}

// SearchGranules queries CMR for every dataset in params and returns the
// matching granule descriptors.
func (c *Client) SearchGranules(ctx context.Context, params model.SearchParameters) ([]model.Granule, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "fetch.SearchGranules")
	defer span.End()

	var all []model.Granule
	for _, dataset := range params.EffectiveDatasets() {
		granules, err := c.searchDataset(ctx, dataset, params)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", dataset, err)
		}
		c.metrics.RecordSearch(dataset.String(), len(granules))
		c.log.Info(ctx, "granule search finished",
			logging.String("dataset", dataset.String()),
			logging.Int("granules", len(granules)))
		all = append(all, granules...)
	}
	span.SetAttributes(attribute.Int("iceflow.granules", len(all)))
	return all, nil
}

func (c *Client) searchDataset(ctx context.Context, dataset model.Dataset, params model.SearchParameters) ([]model.Granule, error) {
	query := url.Values{}
	query.Set("short_name", string(dataset.ShortName))
	query.Set("version", dataset.Version)
	query.Set("bounding_box", params.BoundingBox.String())
	query.Set("temporal", fmt.Sprintf("%s,%s",
		params.Start.UTC().Format(time.RFC3339),
		params.End.UTC().Format(time.RFC3339)))
	query.Set("page_size", strconv.Itoa(c.cfg.PageSize))

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/granules.json?" + query.Encode()

	var (
		granules    []model.Granule
		searchAfter string
	)
	for {
		page, next, err := c.searchPage(ctx, endpoint, searchAfter)
		if err != nil {
			return nil, err
		}
		for _, entry := range page.Feed.Entry {
			g, err := entry.toGranule(dataset)
			if err != nil {
				c.log.Warn(ctx, "skipping malformed granule entry",
					logging.String("dataset", dataset.String()),
					logging.String("title", entry.Title),
					logging.Err(err))
				continue
			}
			granules = append(granules, g)
		}
		if next == "" || len(page.Feed.Entry) == 0 {
			return granules, nil
		}
		searchAfter = next
	}
}

func (c *Client) searchPage(ctx context.Context, endpoint, searchAfter string) (*cmrResponse, string, error) {
	var (
		page cmrResponse
		next string
	)
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.NonRetryable(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.NonRetryable(err)
		}
		if searchAfter != "" {
			req.Header.Set(searchAfterHeader, searchAfter)
		}
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}
		page = cmrResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return fmt.Errorf("decode CMR response: %w", err)
		}
		next = resp.Header.Get(searchAfterHeader)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return &page, next, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}

// checkStatus classifies a non-2xx response: client errors will not change
// on retry, everything else might.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("%s %s: %s (%s)",
		resp.Request.Method, resp.Request.URL, resp.Status, strings.TrimSpace(string(body)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.NonRetryable(err)
	}
	return err
}

func (e cmrEntry) toGranule(dataset model.Dataset) (model.Granule, error) {
	href := ""
	for _, link := range e.Links {
		if link.Rel == dataLinkRel && !link.Inherited {
			href = link.Href
			break
		}
	}
	if href == "" {
		return model.Granule{}, fmt.Errorf("no download link")
	}

	var sizeBytes int64
	if e.GranuleSize != "" {
		mb, err := strconv.ParseFloat(e.GranuleSize, 64)
		if err != nil {
			return model.Granule{}, fmt.Errorf("granule size %q: %w", e.GranuleSize, err)
		}
		sizeBytes = int64(mb * (1 << 20))
	}

	g := model.Granule{
		Dataset:    dataset,
		ProducerID: e.ProducerGranuleID,
		Title:      e.Title,
		SizeBytes:  sizeBytes,
		URL:        href,
	}
	if e.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, e.TimeStart)
		if err != nil {
			return model.Granule{}, fmt.Errorf("time_start %q: %w", e.TimeStart, err)
		}
		g.Start = t
	}
	if e.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, e.TimeEnd)
		if err != nil {
			return model.Granule{}, fmt.Errorf("time_end %q: %w", e.TimeEnd, err)
		}
		g.End = t
	}
	return g, nil
}
