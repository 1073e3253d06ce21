package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"

	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/di"
	"github.com/aristath/stockledger/internal/events"
	"github.com/aristath/stockledger/internal/modules/stocks"
)

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) (*Server, *di.Container) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.DatabasePath = filepath.Join(dir, "stockledger.db")
	cfg.Backup.Dir = filepath.Join(dir, "backups")
	if mutate != nil {
		mutate(cfg)
	}

	container, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	return New(Config{Log: zerolog.Nop(), Container: container}), container
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]interface{}) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response), w.Body.String())
	return w.Code, response
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/health", "/api/health"} {
		code, response := do(t, srv.Handler(), "GET", path, "")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, "stockledger", response["service"])
	}

	code, response := do(t, srv.Handler(), "GET", "/", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, response["success"])
}

func TestLedgerRoutesMounted(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	code, response := do(t, h, "POST", "/api/stocks",
		`{"stock_code":"0700.HK","stock_name":"Tencent","market":"HK","currency":"HKD"}`)
	require.Equal(t, http.StatusCreated, code, response)

	code, response = do(t, h, "POST", "/api/transactions",
		`{"stock_code":"0700.HK","transaction_type":"BUY","transaction_date":"2024-01-15","price":"400","shares":"100","commission":"60"}`)
	require.Equal(t, http.StatusCreated, code, response)

	code, response = do(t, h, "GET", "/api/portfolio/summary", "")
	assert.Equal(t, http.StatusOK, code)
	data := response["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["holdings_count"])

	code, _ = do(t, h, "GET", "/api/stocks/MISSING", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSystemEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	code, response := do(t, h, "GET", "/api/system/status", "")
	assert.Equal(t, http.StatusOK, code)
	status := response["data"].(map[string]interface{})
	assert.Equal(t, "healthy", status["status"])

	code, response = do(t, h, "GET", "/api/system/database", "")
	assert.Equal(t, http.StatusOK, code)
	tables := response["data"].(map[string]interface{})["tables"].([]interface{})
	assert.NotEmpty(t, tables)

	code, response = do(t, h, "GET", "/api/system/jobs", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, response["data"], 3)

	code, _ = do(t, h, "POST", "/api/system/jobs/reconcile_positions/run", "")
	assert.Equal(t, http.StatusOK, code)

	code, response = do(t, h, "POST", "/api/system/jobs/nope/run", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, response["success"])
}

func TestMaintenanceEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	code, response := do(t, h, "POST", "/api/maintenance/reconcile?dry_run=true", "")
	assert.Equal(t, http.StatusOK, code)
	report := response["data"].(map[string]interface{})
	assert.Equal(t, false, report["fixed"])

	code, _ = do(t, h, "POST", "/api/maintenance/reconcile?dry_run=maybe", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, "POST", "/api/maintenance/backup", "")
	assert.Equal(t, http.StatusCreated, code)

	code, response = do(t, h, "GET", "/api/maintenance/backups", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, response["data"], 1)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	do(t, h, "GET", "/api/health", "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stockledger_http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) { cfg.MetricsEnabled = false })

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogEndpoints(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		code, _ := do(t, srv.Handler(), "GET", "/api/system/logs", "")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("tail and filter", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "stockledger.log")
		content := strings.Join([]string{
			`{"level":"info","message":"Starting HTTP server"}`,
			`{"level":"error","message":"backup failed"}`,
			`{"level":"info","message":"Job completed"}`,
		}, "\n")
		require.NoError(t, os.WriteFile(logFile, []byte(content), 0644))

		srv, _ := newTestServer(t, func(cfg *config.Config) { cfg.LogFile = logFile })
		h := srv.Handler()

		code, response := do(t, h, "GET", "/api/system/logs?search=job", "")
		assert.Equal(t, http.StatusOK, code)
		data := response["data"].(map[string]interface{})
		assert.EqualValues(t, 3, data["total"])
		assert.Len(t, data["lines"], 1)

		code, response = do(t, h, "GET", "/api/system/logs/errors", "")
		assert.Equal(t, http.StatusOK, code)
		lines := response["data"].(map[string]interface{})["lines"].([]interface{})
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], "backup failed")
	})
}

func dialEvents(t *testing.T, url string) *websocket.Conn {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestEventStream_JSON(t *testing.T) {
	srv, container := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialEvents(t, ts.URL+"/api/events/ws?types=stock_created")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kind, payload, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, kind)
	var hello events.Event
	require.NoError(t, json.Unmarshal(payload, &hello))
	assert.Equal(t, events.EventType("CONNECTED"), hello.Type)

	_, err = container.StockService.Create(ctx, stocks.CreateInput{
		Code: "AAPL", Name: "Apple", Market: "US", Currency: "USD",
	})
	require.NoError(t, err)

	_, payload, err = conn.Read(ctx)
	require.NoError(t, err)
	var event events.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, events.StockCreated, event.Type)
	assert.Equal(t, "AAPL", event.Data["stock_code"])
}

func TestEventStream_Msgpack(t *testing.T) {
	srv, container := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialEvents(t, ts.URL+"/api/events/ws?encoding=msgpack")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kind, _, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageBinary, kind)

	container.EventManager.Emit(events.BackupCompleted, "test", map[string]interface{}{"archive": "a.tar.gz"})

	kind, payload, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageBinary, kind)

	var event events.Event
	require.NoError(t, msgpack.Unmarshal(payload, &event))
	assert.Equal(t, events.BackupCompleted, event.Type)
	assert.Equal(t, "a.tar.gz", event.Data["archive"])
}

func TestFilterLogs(t *testing.T) {
	lines := []string{
		`{"level":"warn","message":"Low disk space"}`,
		"",
		"10:00:00 ERR backup failed",
		`{"level":"info","message":"ok"}`,
	}

	assert.Len(t, filterLogs(lines, "", ""), 3)
	assert.Equal(t, []string{lines[0]}, filterLogs(lines, "WARN", ""))
	assert.Equal(t, []string{lines[2]}, filterLogs(lines, "ERROR", ""))
	assert.Equal(t, []string{lines[0]}, filterLogs(lines, "", "DISK"))
}

func TestTailFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\nd\n"), 0644))

	lines, err := tailFile(path, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, lines)

	lines, err = tailFile(path, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, lines)
}
