package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-iec104/internal/audit"
)

// handleListForwardLog returns paginated forward log entries, newest first.
//
// Query parameters:
//   - source_id: filter by source channel
//   - outcome: filter by outcome (direct, converted, null_sentinel, failed, missing_target)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListForwardLog(w http.ResponseWriter, r *http.Request) {
	if s.forwardLog == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "forward log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		SourceID: q.Get("source_id"),
		Outcome:  q.Get("outcome"),
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be an integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "offset must be an integer")
		return
	}

	result, err := s.forwardLog.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list forward log", "error", err)
		writeInternalError(w, "failed to list forward log")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// intParam parses an optional integer query parameter.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
