package server

import (
	"bufio"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/httpjson"
)

const maxLogLines = 10000

// LogHandlers serves the tail of the configured log file
type LogHandlers struct {
	path string
	log  zerolog.Logger
}

// NewLogHandlers creates a new log handlers instance. An empty path means
// logs only go to the console and the endpoints report that.
func NewLogHandlers(path string, log zerolog.Logger) *LogHandlers {
	return &LogHandlers{
		path: path,
		log:  log.With().Str("component", "log_handlers").Logger(),
	}
}

// LogContentResponse represents log content
type LogContentResponse struct {
	File  string   `json:"file"`
	Lines []string `json:"lines"`
	Total int      `json:"total"`
}

// HandleGetLogs returns the last ?lines lines filtered by ?level and ?search
func (h *LogHandlers) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	lines := clampLines(httpjson.QueryInt(r, "lines", 100))
	level := strings.ToUpper(r.URL.Query().Get("level"))
	search := r.URL.Query().Get("search")

	h.serve(w, lines, level, search)
}

// HandleGetErrors returns only error lines from a wider window
func (h *LogHandlers) HandleGetErrors(w http.ResponseWriter, r *http.Request) {
	h.serve(w, clampLines(httpjson.QueryInt(r, "lines", 500)), "ERROR", "")
}

func (h *LogHandlers) serve(w http.ResponseWriter, lines int, level, search string) {
	if h.path == "" {
		httpjson.Error(w, h.log, domain.NotFound("log file is not configured"))
		return
	}

	logLines, err := tailFile(h.path, lines)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			httpjson.OK(w, LogContentResponse{File: h.path, Lines: []string{}})
			return
		}
		httpjson.Error(w, h.log, domain.Store(err, "failed to read log file"))
		return
	}

	httpjson.OK(w, LogContentResponse{
		File:  h.path,
		Lines: filterLogs(logLines, level, search),
		Total: len(logLines),
	})
}

func clampLines(n int) int {
	if n <= 0 {
		return 100
	}
	if n > maxLogLines {
		return maxLogLines
	}
	return n
}

// tailFile keeps the last n lines in a ring while scanning
func tailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ring, nil
}

// filterLogs filters log lines by level and search term
func filterLogs(lines []string, level string, search string) []string {
	filtered := make([]string, 0, len(lines))
	search = strings.ToLower(search)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if level != "" && !lineMatchesLevel(line, level) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(line), search) {
			continue
		}
		filtered = append(filtered, line)
	}

	return filtered
}

// lineMatchesLevel understands zerolog JSON lines and console output
func lineMatchesLevel(line string, level string) bool {
	if strings.Contains(line, `"level"`) {
		return strings.Contains(strings.ToLower(line), `"level":"`+strings.ToLower(level)+`"`)
	}

	upperLine := strings.ToUpper(line)
	upperLevel := strings.ToUpper(level)

	// Console writer abbreviates levels (ERR, WRN, INF, DBG)
	short := map[string]string{"ERROR": "ERR", "WARN": "WRN", "INFO": "INF", "DEBUG": "DBG"}[upperLevel]

	return strings.Contains(upperLine, upperLevel+":") ||
		strings.Contains(upperLine, "["+upperLevel+"]") ||
		strings.Contains(upperLine, " "+upperLevel+" ") ||
		(short != "" && strings.Contains(upperLine, " "+short+" "))
}
