package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if httpRequestsTotal == nil || catalogRequestsTotal == nil ||
		lookupSourceTotal == nil || rateLimitDelaySeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCatalogRequest(t *testing.T) {
	Init()
	before := testutil.ToFloat64(catalogRequestsTotal.WithLabelValues("product", "NOT_FOUND"))

	ObserveCatalogRequest("product", "NOT_FOUND", 120*time.Millisecond)

	if got := testutil.ToFloat64(catalogRequestsTotal.WithLabelValues("product", "NOT_FOUND")); got != before+1 {
		t.Errorf("expected catalog counter %f, got %f", before+1, got)
	}
	if val := testutil.CollectAndCount(catalogDurationSeconds); val <= 0 {
		t.Errorf("expected catalog duration to be observed, got %d", val)
	}
}

func TestObserveLookupSourceAndWorkers(t *testing.T) {
	Init()
	before := testutil.ToFloat64(lookupSourceTotal.WithLabelValues("memory"))
	ObserveLookupSource("memory")
	if got := testutil.ToFloat64(lookupSourceTotal.WithLabelValues("memory")); got != before+1 {
		t.Errorf("expected lookup source counter %f, got %f", before+1, got)
	}

	start := testutil.ToFloat64(activeWorkers)
	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	if got := testutil.ToFloat64(activeWorkers); got != start+1 {
		t.Errorf("expected active workers %f, got %f", start+1, got)
	}
	DecActiveWorkers()

	ObserveBatchJob("succeeded")
	if got := testutil.ToFloat64(batchJobsTotal.WithLabelValues("succeeded")); got < 1 {
		t.Errorf("expected batch job counter >= 1, got %f", got)
	}
}
