package api

import (
	"encoding/json"
	"net/http"
)

// Problem is the body of every non-2xx response.
type Problem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// respond writes v as JSON with the given status.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // the client may already be gone
	json.NewEncoder(w).Encode(v)
}

// fail writes a Problem whose title is the standard status text.
func fail(w http.ResponseWriter, status int, detail string) {
	respond(w, status, Problem{Status: status, Title: http.StatusText(status), Detail: detail})
}
