package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-depot-engine/internal/dispatch"
	"github.com/ariefcatur/go-depot-engine/internal/postgres"
	"github.com/ariefcatur/go-depot-engine/internal/presence"
)

var errNoEffect = errors.New("transition not allowed from the current status")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, postgres.ErrOrderNotFound),
		errors.Is(err, dispatch.ErrJobNotFound),
		errors.Is(err, presence.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, postgres.ErrStaleOrder),
		errors.Is(err, postgres.ErrInsufficientStock),
		errors.Is(err, dispatch.ErrVersionConflict),
		errors.Is(err, errNoEffect):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}
