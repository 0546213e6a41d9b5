package middleware

import (
	"net/http"

	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/httputil"
)

// deny stops a request at the middleware layer using the same error
// envelope the handlers produce.
func deny(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: message, Code: code})
}
