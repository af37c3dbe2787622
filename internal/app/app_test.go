package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JakeFAU/binbuddy/internal/config"
	"github.com/JakeFAU/binbuddy/internal/scan"
)

const colaJSON = `{
  "status": 1,
  "product": {
    "code": "4001234567890",
    "product_name": "Cola Zero",
    "brands": "Fritz",
    "packaging": "Einweg-Pfand, Kunststoff, PET"
  }
}`

func newCatalog(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/4001234567890.json") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(colaJSON))
			return
		}
		_, _ = w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, catalogURL string) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.OpenFoodFacts.BaseURL = catalogURL
	cfg.OpenFoodFacts.ConnectivityURL = catalogURL
	cfg.OpenFoodFacts.RatePerMinute = 6000
	cfg.OpenFoodFacts.SearchRatePerMinute = 6000
	cfg.Progress.MaxBatchWaitMs = 10
	cfg.Storage.Backend = "memory"
	cfg.DB.DSN = ""
	cfg.PubSub.ProjectID = ""
	return cfg
}

func build(t *testing.T, cfg config.Config) *App {
	t.Helper()
	return buildWith(t, cfg, prometheus.NewRegistry())
}

func buildWith(t *testing.T, cfg config.Config, reg prometheus.Registerer) *App {
	t.Helper()
	a, err := Build(context.Background(), cfg, zaptest.NewLogger(t), WithRegisterer(reg))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })
	return a
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestBuildServesAPIWithMemoryBackends(t *testing.T) {
	t.Parallel()

	a := build(t, testConfig(t, newCatalog(t).URL))
	h := a.Handler()

	require.Equal(t, http.StatusOK, get(t, h, "/healthz", nil))
	require.Equal(t, http.StatusOK, get(t, h, "/readyz", nil))

	var body struct {
		Categories []map[string]any `json:"categories"`
	}
	require.Equal(t, http.StatusOK, get(t, h, "/v1/categories", &body))
	require.Len(t, body.Categories, 6)
}

func TestBuildExportsPipelineGauges(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	buildWith(t, testConfig(t, newCatalog(t).URL), reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	require.Contains(t, names, "binbuddy_batch_queue_length")
	require.Contains(t, names, "binbuddy_progress_unreported_drops")
}

func TestRecordedScanAwardsRewards(t *testing.T) {
	t.Parallel()

	a := build(t, testConfig(t, newCatalog(t).URL))
	h := a.Handler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/scans", strings.NewReader(`{"barcode":"4001234567890"}`))
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var outcome scan.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.Equal(t, "Cola Zero", outcome.Product.Name)
	require.True(t, outcome.Pfand.HasPfand)

	require.Eventually(t, func() bool {
		var progress struct {
			Coins int64 `json:"coins"`
			XP    int64 `json:"xp"`
		}
		if get(t, h, "/v1/progress", &progress) != http.StatusOK {
			return false
		}
		return progress.Coins == 15 && progress.XP == 20
	}, 2*time.Second, 10*time.Millisecond)

	var body struct {
		Scans []map[string]any `json:"scans"`
	}
	require.Equal(t, http.StatusOK, get(t, h, "/v1/scans", &body))
	require.Len(t, body.Scans, 1)
}

func TestBatchRunsThroughWorkers(t *testing.T) {
	t.Parallel()

	a := build(t, testConfig(t, newCatalog(t).URL))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.dispatch.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	state, err := a.Scans().EnqueueBatch(ctx, []string{"4001234567890", "0000000000000"}, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := a.Scans().Batch(state.Job.ID)
		return ok && got.Status == scan.BatchPartial
	}, 5*time.Second, 10*time.Millisecond)

	got, _ := a.Scans().Batch(state.Job.ID)
	require.Equal(t, 1, got.Counters.Recorded)
	require.Equal(t, 1, got.Counters.Failed)
}

func TestOfflineModeServesStoredDataOnly(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:1/")
	cfg.OpenFoodFacts.Offline = true
	a := build(t, cfg)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/products/4001234567890", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"kind":"OFFLINE"`)
}

func TestBuildFailsOnInvalidDSN(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:1/")
	cfg.DB.DSN = "postgres://user:pa ss@%zz/db"
	_, err := Build(context.Background(), cfg, nil, WithRegisterer(prometheus.NewRegistry()))
	require.ErrorContains(t, err, "postgres store init failed")
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	a, err := Build(context.Background(), testConfig(t, "http://127.0.0.1:1/"), nil, WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))
}
