package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
)

// errorResponse is the JSON error envelope carried by every non-2xx response.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errBodyTooLarge marks a request body that tripped the MaxBytesReader cap
// installed by the body-size middleware.
var errBodyTooLarge = errors.New("request body too large")

// writeJSON renders v with the given status. Encoding failures are logged,
// not surfaced: the header has already been written by then.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps a service error onto the wire contract:
//
//	domain.ErrValidation   -> 422 validation_error
//	domain.ErrNotFound     -> 404 not_found
//	domain.ErrInvalidState -> 409 invalid_state
//	domain.ErrUnauthorized -> 401 unauthorized
//	anything else          -> 500 internal_error
//
// The 404 and 409 messages are fixed. Every lookup on this API resolves a
// trip, and a row owned by someone else must read exactly like a row that
// does not exist.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: errorDetail{Code: "validation_error", Message: trimServicePrefix(err.Error())},
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: errorDetail{Code: "not_found", Message: "trip not found"},
		})
	case errors.Is(err, domain.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: errorDetail{Code: "invalid_state", Message: "trip already ended"},
		})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error: errorDetail{Code: "unauthorized", Message: trimServicePrefix(err.Error())},
		})
	case errors.Is(err, errBodyTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: errorDetail{Code: "request_too_large", Message: "request body exceeds the configured size limit"},
		})
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: errorDetail{Code: "internal_error", Message: "internal server error"},
		})
	}
}

// decodeJSON reads the request body into v. An empty body decodes as the
// zero value, because routes with all-optional fields accept "no body" as
// "no options".
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return fmt.Errorf("%w: invalid JSON body: %s", domain.ErrValidation, err)
	}
}

// trimServicePrefix strips the "service.Type.Method: " wrapping added by the
// service layer so clients see only the human-readable part.
// e.g. "service.TripService.Stop: validation failed: lat out of range"
// becomes "validation failed: lat out of range".
func trimServicePrefix(msg string) string {
	for strings.HasPrefix(msg, "service.") {
		i := strings.Index(msg, ": ")
		if i < 0 {
			break
		}
		msg = msg[i+2:]
	}
	return msg
}
