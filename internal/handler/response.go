package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// decodeJSON reads a request body into dst, rejecting malformed JSON
// with a uniform error.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.InvalidInput("body", "must be valid JSON")
	}
	return nil
}
