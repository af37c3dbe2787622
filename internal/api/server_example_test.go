package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/JakeFAU/binbuddy/internal/config"
	"github.com/JakeFAU/binbuddy/internal/storage/memory"
)

// ExampleNewServer serves the localized waste categories.
func ExampleNewServer() {
	srv := NewServer(Deps{Categories: memory.NewCategoryStore()}, config.Config{}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/categories/glas?lang=de", nil))

	var cat struct {
		Name     string `json:"name"`
		ColorHex string `json:"color_hex"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cat); err != nil {
		fmt.Println("decode:", err)
		return
	}
	fmt.Println(rec.Code, cat.Name)
	// Output: 200 Glas
}
