package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/readx/internal/auth"
	"github.com/desertthunder/readx/internal/shared"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	if auth.CodeOf(err) == auth.CodeTooManyRequests {
		return http.StatusTooManyRequests
	}

	switch {
	case errors.Is(err, shared.ErrDuplicateEntry), errors.Is(err, shared.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, shared.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrEntryNotFound),
		errors.Is(err, shared.ErrCommentNotFound),
		errors.Is(err, shared.ErrBookNotFound),
		errors.Is(err, shared.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrAPIRequest),
		errors.Is(err, shared.ErrFetchFailed),
		errors.Is(err, shared.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as {"error": ..., "code": ...}. Unmapped errors are logged and hidden.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), Code: string(auth.CodeOf(err))}

	switch {
	case body.Code != "":
		body.Error = auth.Message(err)
	case status == http.StatusInternalServerError:
		if logger != nil {
			logger.Error("request failed", "error", err)
		}
		body.Error = "internal server error"
	}

	writeJSON(w, status, body)
}
