package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/binbuddy/internal/config"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/flow"
	"github.com/JakeFAU/binbuddy/internal/scan"
)

func glassJar() domain.Product {
	return domain.Product{ID: "3017620422003", Barcode: "3017620422003", Name: "Nutella", Packaging: "Glass jar"}
}

func TestGetProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	f.products.lookups["3017620422003"] = flow.Of(domain.Success(glassJar()))

	rec := f.do(http.MethodGet, "/v1/products/3017620422003", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Nutella", got.Product.Name)
	require.Equal(t, domain.CategoryGlas, got.Category.ID)
	require.False(t, got.Pfand.HasPfand)
	require.False(t, got.FromCache)
}

func TestGetProductNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	rec := f.do(http.MethodGet, "/v1/products/0000", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"kind":"NOT_FOUND"`)
}

func TestGetProductOfflineWarning(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	f.products.lookups["1"] = flow.Of(domain.Offline(glassJar(), true, "Showing cached data"))

	rec := f.do(http.MethodGet, "/v1/products/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"warning":"Showing cached data"`)
	require.Contains(t, rec.Body.String(), `"from_cache":true`)
}

func TestProductEventsStreamsEveryResult(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	fresh := glassJar()
	fresh.Name = "Nutella 450g"
	f.products.lookups["1"] = flow.Of(domain.SuccessFromCache(glassJar()), domain.Success(fresh))

	rec := f.do(http.MethodGet, "/v1/products/1/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	require.Equal(t, 2, strings.Count(body, "event: result\n"))
	require.Less(t, strings.Index(body, `"name":"Nutella"`), strings.Index(body, `"name":"Nutella 450g"`))
	require.Contains(t, body, "event: done\n")
	require.Contains(t, body, `"state":"completed"`)
}

func TestProductEventsReportsFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	f.products.lookups["1"] = flow.Fail[domain.Result[domain.Product]](errors.New("stream broke"))

	rec := f.do(http.MethodGet, "/v1/products/1/events", "")
	body := rec.Body.String()
	require.Contains(t, body, "event: failure\n")
	require.Contains(t, body, `"kind":"UNKNOWN"`)
	require.Contains(t, body, `"state":"errored"`)

	rec = f.do(http.MethodGet, "/v1/products/0000/events", "")
	require.Contains(t, rec.Body.String(), `"kind":"NOT_FOUND"`)
}

func TestProductEventsStopsWhenClientLeaves(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	stopped := make(chan struct{})
	f.products.lookups["1"] = flow.Func[domain.Result[domain.Product]](func(ctx context.Context, emit func(domain.Result[domain.Product]) error) error {
		defer close(stopped)
		if err := emit(domain.SuccessFromCache(glassJar())); err != nil {
			return err
		}
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	req := httptest.NewRequest(http.MethodGet, "/v1/products/1/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("lookup stream was not cancelled")
	}
	body := rec.Body.String()
	require.Equal(t, 1, strings.Count(body, "event: result\n"))
	require.NotContains(t, body, "event: done")
}

func TestSearchProducts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	f.products.search = flow.Of(domain.Success([]domain.Product{glassJar()}))

	rec := f.do(http.MethodGet, "/v1/products/search?q=nutella&germany=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Nutella"`)

	require.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/products/search?q=x&germany=maybe", "").Code)
	require.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/products/search", "").Code)
}

func TestRawProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	f.products.raw["1"] = []byte(`{"status":1}`)

	rec := f.do(http.MethodGet, "/v1/products/1/raw", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"status":1}`, rec.Body.String())
	require.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/products/2/raw", "").Code)
}

func TestCategories(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	f.products.category[domain.CategoryGlas] = []domain.Product{glassJar()}

	rec := f.do(http.MethodGet, "/v1/categories?lang=de", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Categories []categoryDTO `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Categories, len(domain.Categories()))
	require.Equal(t, "Gelbe Tonne", list.Categories[0].Name)

	rec = f.do(http.MethodGet, "/v1/categories/gelbe_tonne", "", "Accept-Language", "en-US")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Yellow Bin"`)

	require.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/categories/lava", "").Code)

	rec = f.do(http.MethodGet, "/v1/categories/glas/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Nutella")
	require.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/categories/lava/products", "").Code)
}

func TestScanLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	f.products.lookups["3017620422003"] = flow.Of(domain.Success(glassJar()))

	rec := f.do(http.MethodPost, "/v1/scans", `{"barcode":"3017620422003","location":"Kitchen"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out scan.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "id-1", out.Scan.ID)
	require.Equal(t, domain.CategoryGlas, out.Category.ID)

	require.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/scans", `{`).Code)
	require.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/scans", `{"barcode":" "}`).Code)
	require.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/scans", `{"barcode":"0000"}`).Code)

	rec = f.do(http.MethodGet, "/v1/scans?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"id-1"`)
	require.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/scans?limit=-1", "").Code)

	rec = f.do(http.MethodGet, "/v1/scans?all=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/scans/id-1", "").Code)
	require.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/v1/scans/id-1", "").Code)

	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/scans", "").Code)
	rec = f.do(http.MethodGet, "/v1/scans", "")
	require.JSONEq(t, `{"scans":[]}`, rec.Body.String())
}

func TestSubmitBatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	rec := f.do(http.MethodPost, "/v1/scans/batch", `{"barcodes":["1","2"," "]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var state scan.BatchState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Equal(t, scan.BatchQueued, state.Status)
	require.Equal(t, []string{"1", "2"}, state.Job.Barcodes)
	require.Equal(t, 1, f.queue.Len())

	rec = f.do(http.MethodGet, "/v1/scans/batch/"+state.Job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"queued"`)

	require.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/scans/batch/nope", "").Code)
	require.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/scans/batch", `{"barcodes":[]}`).Code)
}

func TestFavorites(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	require.Equal(t, http.StatusNoContent, f.do(http.MethodPut, "/v1/favorites/3017620422003", "").Code)

	rec := f.do(http.MethodGet, "/v1/favorites/3017620422003", "")
	require.JSONEq(t, `{"product_id":"3017620422003","favorite":true}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/v1/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"product_id":"3017620422003"`)

	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/favorites/3017620422003", "").Code)
	rec = f.do(http.MethodGet, "/v1/favorites", "")
	require.JSONEq(t, `{"favorites":[]}`, rec.Body.String())
}

func TestGetProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	_, err := f.progress.UpdateProgress(context.Background(), func(up *domain.UserProgress) error {
		up.Coins = 30
		up.XP = 450
		return nil
	})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/v1/progress", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.EqualValues(t, 30, got.Coins)
	require.EqualValues(t, 3, got.Level)
	require.EqualValues(t, 600, got.XPTarget)
}

func TestAdjustProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})
	decode := func(rec *httptest.ResponseRecorder) progressResponse {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got progressResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		return got
	}

	got := decode(f.do(http.MethodPost, "/v1/progress/coins", `{"amount":15}`))
	require.EqualValues(t, 15, got.Coins)

	got = decode(f.do(http.MethodPost, "/v1/progress/xp", `{"amount":250}`))
	require.EqualValues(t, 250, got.XP)
	require.EqualValues(t, 2, got.Level)

	got = decode(f.do(http.MethodPut, "/v1/progress/streak", `{"days":4}`))
	require.Equal(t, 4, got.StreakDays)

	got = decode(f.do(http.MethodPost, "/v1/progress/checkin", `{"day":"2026-05-10T08:00:00Z"}`))
	require.Equal(t, 1, got.StreakDays)
	require.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), got.LastScanDay)

	got = decode(f.do(http.MethodPost, "/v1/progress/checkin", `{"day":"2026-05-11T20:00:00Z"}`))
	require.Equal(t, 2, got.StreakDays)
}

func TestAdjustProgressRejectsBadInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Config{})

	rec := f.do(http.MethodPost, "/v1/progress/coins", `{"amount":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"kind":"INVALID_INPUT"`)

	require.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/progress/xp", `nope`).Code)
	require.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/v1/progress/streak", `{}`).Code)

	rec = f.do(http.MethodPut, "/v1/progress/streak", `{"days":-1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Streak cannot be negative")
}
