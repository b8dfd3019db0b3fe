package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// maxListLimit caps the limit query parameter on listing endpoints so a
// single request cannot drag an arbitrarily large result set out of the
// store.
const maxListLimit = 500

// queryLimit parses the limit query parameter, falling back to def for
// missing or unusable values and capping the result at maxListLimit.
func queryLimit(r *http.Request, def int) int {
	limit := def
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
