package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nerrad567/cotbridge/internal/audit"
)

// auditFilter reads port, protocol, reason, since (RFC 3339), limit and
// offset from the query string.
func auditFilter(q url.Values) (audit.Filter, error) {
	f := audit.Filter{Protocol: q.Get("protocol"), Reason: q.Get("reason")}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"port", &f.Port},
		{"limit", &f.Limit},
		{"offset", &f.Offset},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("%s must be an integer, got %q", p.name, v)
		}
		*p.dst = n
	}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("since must be an RFC 3339 time, got %q", v)
		}
		f.Since = t
	}
	return f, nil
}

// handleListAudit serves GET /api/v1/audit.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		fail(w, http.StatusServiceUnavailable, "audit trail not configured")
		return
	}

	filter, err := auditFilter(r.URL.Query())
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries", "error", err, "request_id", requestIDFrom(r))
		fail(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	respond(w, http.StatusOK, page)
}
