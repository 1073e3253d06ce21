package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockledger/internal/modules/stocks"
	testingpkg "github.com/aristath/stockledger/internal/testing"
)

func setupRouter(t *testing.T) http.Handler {
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	service := stocks.NewService(db, &testingpkg.RecordingEmitter{}, logger)
	handler := NewHandler(service, logger)

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return w, response
}

func TestHandleCreateAndGet(t *testing.T) {
	router := setupRouter(t)

	w, response := doRequest(t, router, "POST", "/api/stocks", map[string]interface{}{
		"stock_code": "0700.hk",
		"stock_name": "Tencent",
		"market":     "HK",
		"currency":   "HKD",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, response["success"])

	w, response = doRequest(t, router, "GET", "/api/stocks/0700.HK", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "0700.HK", data["stock_code"])
	assert.Equal(t, float64(0), data["transaction_count"])
	assert.Equal(t, float64(0), data["total_shares"])
}

func TestHandleCreate_Errors(t *testing.T) {
	router := setupRouter(t)

	w, response := doRequest(t, router, "POST", "/api/stocks", map[string]interface{}{
		"stock_code": "AAPL",
		"stock_name": "Apple",
		"market":     "NASDAQ",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "ValidationError", response["error"])

	w, _ = doRequest(t, router, "POST", "/api/stocks", map[string]interface{}{
		"stock_code": "AAPL",
		"unknown":    true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := map[string]interface{}{"stock_code": "AAPL", "stock_name": "Apple", "market": "US", "currency": "USD"}
	w, _ = doRequest(t, router, "POST", "/api/stocks", body)
	require.Equal(t, http.StatusCreated, w.Code)
	w, response = doRequest(t, router, "POST", "/api/stocks", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ConflictError", response["error"])
}

func TestHandleGet_NotFound(t *testing.T) {
	router := setupRouter(t)

	w, response := doRequest(t, router, "GET", "/api/stocks/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", response["error"])
}

func TestHandleList_Pagination(t *testing.T) {
	router := setupRouter(t)
	for _, code := range []string{"A", "B", "C"} {
		w, _ := doRequest(t, router, "POST", "/api/stocks", map[string]interface{}{
			"stock_code": code, "stock_name": code, "market": "US", "currency": "USD",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, response := doRequest(t, router, "GET", "/api/stocks?per_page=2&page=2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"], 1)
	pagination := response["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["total"])
	assert.Equal(t, float64(2), pagination["pages"])
}

func TestHandleSetPrice(t *testing.T) {
	router := setupRouter(t)
	w, _ := doRequest(t, router, "POST", "/api/stocks", map[string]interface{}{
		"stock_code": "AAPL", "stock_name": "Apple", "market": "US", "currency": "USD",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, response := doRequest(t, router, "PUT", "/api/prices/AAPL", map[string]interface{}{"price": 187.5})
	assert.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "187.5", data["current_price"])
	assert.NotNil(t, data["price_update_time"])

	w, response = doRequest(t, router, "GET", "/api/prices/current", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"], 1)
}

func TestHandleDelete(t *testing.T) {
	router := setupRouter(t)
	w, _ := doRequest(t, router, "POST", "/api/stocks", map[string]interface{}{
		"stock_code": "AAPL", "stock_name": "Apple", "market": "US", "currency": "USD",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = doRequest(t, router, "DELETE", "/api/stocks/AAPL", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, router, "DELETE", "/api/stocks/AAPL", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
