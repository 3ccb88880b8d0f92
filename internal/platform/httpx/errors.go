package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: verr.Error(),
			Fields: verr.Fields,
		})
	case errors.Is(err, ErrBodyTooLarge):
		Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidToken):
		Problem(w, http.StatusGone, "Invalid Signature Link", "This signing link is invalid or has expired. Request a new link from the sender.")
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrNetwork):
		retryable(w, http.StatusServiceUnavailable, "Backend Unavailable")
	case errors.Is(err, shared.ErrBackend):
		retryable(w, http.StatusBadGateway, "Backend Error")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func retryable(w http.ResponseWriter, status int, title string) {
	w.Header().Set("Retry-After", "5")
	JSON(w, status, ProblemDetail{
		Title:     title,
		Status:    status,
		Detail:    "The request could not be completed. Try again.",
		Retryable: true,
	})
}
