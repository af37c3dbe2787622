package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/products/{barcode}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/v1/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	teapotBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418"))

	for _, path := range []string{"/v1/products/4001", "/v1/missing"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		if errClose := resp.Body.Close(); errClose != nil {
			t.Log(errClose)
		}
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); val != okBefore+1 {
		t.Errorf("expected 200 counter %f, got %f", okBefore+1, val)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418")); val != teapotBefore+1 {
		t.Errorf("expected 418 counter %f, got %f", teapotBefore+1, val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("expected httpRequestDurationSeconds to be observed, got %d", val)
	}
}
