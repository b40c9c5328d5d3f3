package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mediacatalog/catalog/internal/model"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// WriteError writes a standardized error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteDomainError maps the command core's typed errors onto HTTP
// status codes. Anything outside the closed set is a 500.
func WriteDomainError(w http.ResponseWriter, err error) {
	var (
		permErr  *model.PermissionError
		notFound *model.NotFoundError
		conflict *model.ConflictError
		cmdErr   *model.CommandError
		dupErr   *model.DuplicateKeyError
	)
	switch {
	case errors.As(err, &permErr):
		WriteError(w, http.StatusForbidden, permErr.Error())
	case errors.As(err, &notFound):
		WriteError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		WriteError(w, http.StatusConflict, conflict.Error())
	case errors.As(err, &cmdErr):
		WriteError(w, http.StatusUnprocessableEntity, cmdErr.Error())
	case errors.As(err, &dupErr):
		WriteError(w, http.StatusUnprocessableEntity, dupErr.Error())
	default:
		log.Error().Err(err).Msg("unhandled service error")
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
