package api

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/nerrad567/cotbridge/internal/symbol"
)

// SymbolResponse describes the symbolization of one CoT type.
type SymbolResponse struct {
	Type        string `json:"type"`
	Key         string `json:"catalog_key"`
	SymbolCode  string `json:"symbol_code"`
	Description string `json:"description"`
}

// handleSymbol maps a CoT type to its symbol code and description.
//
// Query parameters:
//   - type: CoT type string, e.g. a-f-G-U-C (required)
func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	cotType := r.URL.Query().Get("type")
	if cotType == "" {
		fail(w, http.StatusBadRequest, "type query parameter is required")
		return
	}

	respond(w, http.StatusOK, SymbolResponse{
		Type:        cotType,
		Key:         symbol.WildcardType(cotType),
		SymbolCode:  s.symbolizer.SymbolCode(cotType),
		Description: s.symbolizer.Description(cotType),
	})
}

// handleEnrich converts a CoT XML body into its augmented JSON tree.
//
// Query parameters:
//   - indent: spaces per nesting level (default: configured output indent)
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	indent := s.indent
	if v := r.URL.Query().Get("indent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 16 {
			fail(w, http.StatusBadRequest, "indent must be an integer between 0 and 16")
			return
		}
		indent = n
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		fail(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if len(bytes.TrimSpace(body)) == 0 {
		fail(w, http.StatusBadRequest, "request body must hold a CoT event")
		return
	}

	out, err := s.symbolizer.AugmentToTree(string(body), indent)
	if err != nil {
		fail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(out))
}
