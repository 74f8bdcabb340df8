package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBackendCall(t *testing.T) {
	before := testutil.ToFloat64(backendCallsTotal.WithLabelValues("export_single_layer", "error"))
	RecordBackendCall("export_single_layer", errors.New("boom"), 20*time.Millisecond)
	after := testutil.ToFloat64(backendCallsTotal.WithLabelValues("export_single_layer", "error"))
	if after-before != 1 {
		t.Fatalf("error counter delta = %v, want 1", after-before)
	}
}

func TestRecordStale(t *testing.T) {
	before := testutil.ToFloat64(staleResponsesTotal.WithLabelValues("get_layer_files"))
	RecordStale("get_layer_files")
	if got := testutil.ToFloat64(staleResponsesTotal.WithLabelValues("get_layer_files")); got-before != 1 {
		t.Fatalf("stale delta = %v, want 1", got-before)
	}
}

func TestGauges(t *testing.T) {
	SetTreeEntries(42)
	SetPendingExtractions(2)
	SetCacheUsage(1024, 4096)
	if got := testutil.ToFloat64(treeEntries); got != 42 {
		t.Fatalf("tree entries = %v", got)
	}
	if got := testutil.ToFloat64(pendingExtractions); got != 2 {
		t.Fatalf("pending = %v", got)
	}
	if got := testutil.ToFloat64(cacheBudgetBytes); got != 4096 {
		t.Fatalf("budget = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	SetTreeEntries(7)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "layerscope_tree_entries 7") {
		t.Fatal("metrics output missing layerscope_tree_entries")
	}
}
