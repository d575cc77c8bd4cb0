package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineCollectorRecordsDownloads(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}

	collector.RecordDownload("ILATM1Bv1", DownloadOK, 2048, 150*time.Millisecond)
	collector.RecordDownload("ILATM1Bv1", DownloadSkipped, 0, 0)
	collector.RecordDownload("ILATM1Bv1", DownloadError, 0, 0)

	if got := testutil.ToFloat64(collector.Downloads.WithLabelValues("ILATM1Bv1", DownloadOK)); got != 1 {
		t.Errorf("iceflow_downloads_total{status=ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Downloads.WithLabelValues("ILATM1Bv1", DownloadSkipped)); got != 1 {
		t.Errorf("iceflow_downloads_total{status=skipped} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.DownloadBytes.WithLabelValues("ILATM1Bv1")); got != 2048 {
		t.Errorf("iceflow_download_bytes_total = %v, want 2048 (skips and errors add no bytes)", got)
	}

	if count := histogramSampleCount(t, reg, "iceflow_download_duration_seconds", map[string]string{
		"dataset": "ILATM1Bv1",
	}); count != 1 {
		t.Errorf("iceflow_download_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestPipelineCollectorRecordsSearchAndTransform(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}

	collector.RecordSearch("GLAH06v034", 12)
	collector.RecordPointsRead("GLAH06v034", 4000)
	collector.RecordTransform("ITRF2000", "ITRF2014")
	collector.RecordTransform("ITRF2000", "ITRF2014")
	collector.RecordParquetRows(4000)

	if got := testutil.ToFloat64(collector.Searches.WithLabelValues("GLAH06v034")); got != 1 {
		t.Errorf("iceflow_searches_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.GranulesFound.WithLabelValues("GLAH06v034")); got != 12 {
		t.Errorf("iceflow_granules_found_total = %v, want 12", got)
	}
	if got := testutil.ToFloat64(collector.PointsRead.WithLabelValues("GLAH06v034")); got != 4000 {
		t.Errorf("iceflow_points_read_total = %v, want 4000", got)
	}
	if got := testutil.ToFloat64(collector.Transforms.WithLabelValues("ITRF2000", "ITRF2014")); got != 2 {
		t.Errorf("iceflow_transforms_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.ParquetRows); got != 4000 {
		t.Errorf("iceflow_parquet_rows_total = %v, want 4000", got)
	}
}

func TestPipelineCollectorToleratesReRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}
	second, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector re-registration: %v", err)
	}

	first.RecordSearch("ILVIS2v1", 1)
	second.RecordSearch("ILVIS2v1", 1)
	if got := testutil.ToFloat64(second.Searches.WithLabelValues("ILVIS2v1")); got != 2 {
		t.Errorf("re-registered collector should share counters, got %v, want 2", got)
	}
}

func TestMetricsHandlerExposesPipelineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}
	collector.RecordSearch("ILATM1Bv2", 3)
	collector.RecordDownload("ILATM1Bv2", DownloadOK, 512, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"iceflow_searches_total",
		"iceflow_granules_found_total",
		"iceflow_downloads_total",
		"iceflow_download_bytes_total",
		"iceflow_download_duration_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
