package httpx

import (
	"errors"
	"net/http"

	"github.com/brightpath-hq/brightpath/internal/shared"
)

// Sentinel errors for the handler layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps portal errors to RFC7807 responses. Auth rejections keep
// the upstream's message so the user sees it inline; everything unexpected
// collapses to a generic 500 with no internals leaked.
func RespondError(w http.ResponseWriter, err error) {
	var authErr *shared.AuthError
	switch {
	case errors.As(err, &authErr):
		Problem(w, http.StatusUnauthorized, "Authentication Failed", authErr.Message)
	case errors.Is(err, shared.ErrSessionExpired):
		Problem(w, http.StatusUnauthorized, "Session Expired", "sign in again to continue")
	case errors.Is(err, shared.ErrNetwork):
		Problem(w, http.StatusBadGateway, "Upstream Unreachable", "the request could not complete; try again")
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
