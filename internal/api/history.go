package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/nerrad567/aquarium-core/internal/history"
)

// maxQueryParamLen bounds free-text query parameters.
const maxQueryParamLen = 256

var errInvalidLimit = errors.New("limit must be a positive integer")

// handleHistory returns recorded events, newest first. An empty topic
// matches every topic; limit defaults to 20 and is capped at 1000.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	topic := strings.TrimSpace(q.Get("topic"))
	if len(topic) > maxQueryParamLen {
		writeError(w, r, http.StatusBadRequest, "topic too long")
		return
	}

	limit, err := parseHistoryLimit(q.Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if s.history == nil {
		writeError(w, r, http.StatusServiceUnavailable, "history unavailable")
		return
	}

	entries, err := s.history.Query(r.Context(), topic, limit)
	if err != nil {
		s.logger.Error("history query failed", "topic", topic, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to load history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"topic":   topic,
		"entries": entries,
		"count":   len(entries),
	})
}

func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return history.DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	if n > history.MaxLimit {
		n = history.MaxLimit
	}
	return n, nil
}
