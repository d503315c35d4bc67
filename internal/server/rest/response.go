package rest

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/server/apperr"
)

type errorResponse struct {
	Key string `json:"key"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError renders err as {"key": ...}. Errors that are not client-facing
// become the generic server error with no detail.
func writeError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	writeJSON(w, e.Status, errorResponse{Key: e.Key})
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return apperr.RequestBodyInvalid
	}
	return nil
}
