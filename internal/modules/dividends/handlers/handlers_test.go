package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockledger/internal/modules/dividends"
	testingpkg "github.com/aristath/stockledger/internal/testing"
)

func setupRouter(t *testing.T) http.Handler {
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)
	testingpkg.SeedStock(t, db, "AAPL", "Apple", "US", "USD", "190")

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(dividends.NewService(db, &testingpkg.RecordingEmitter{}, logger), logger)

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, &buf))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return w, response
}

func TestDividendLifecycle(t *testing.T) {
	router := setupRouter(t)

	w, response := doRequest(t, router, "POST", "/api/dividends", map[string]interface{}{
		"stock_code":         "AAPL",
		"dividend_date":      "2024-05-16",
		"dividend_per_share": 0.25,
		"total_dividend":     1234.5,
		"tax_amount":         0,
		"currency":           "USD",
	})
	require.Equal(t, http.StatusCreated, w.Code, response)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "$1,234.50", data["net_dividend_display"])
	id := int64(data["id"].(float64))

	w, response = doRequest(t, router, "GET", "/api/dividends/annual?stock_code=AAPL&year=2024", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), response["data"].(map[string]interface{})["dividend_count"])

	w, _ = doRequest(t, router, "GET", "/api/dividends/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, response = doRequest(t, router, "PUT", fmt.Sprintf("/api/dividends/%d", id), map[string]interface{}{"tax_amount": 2000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", response["error"])

	w, _ = doRequest(t, router, "DELETE", fmt.Sprintf("/api/dividends/%d", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, router, "GET", fmt.Sprintf("/api/dividends/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterRoutes(t *testing.T) {
	router := setupRouter(t)

	for _, path := range []string{"/api/dividends", "/api/dividends/stats", "/api/dividends/annual?stock_code=AAPL", "/api/dividends/1"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.NotEqual(t, http.StatusMethodNotAllowed, w.Code, path)
		assert.Contains(t, w.Body.String(), `"success"`, path)
	}
}
