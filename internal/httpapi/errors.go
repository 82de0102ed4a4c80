package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/indoor-mall-nav/navign-sub000/internal/unlocker"
)

// errorBody is the JSON shape of an error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusForError translates unlocker.Service errors into HTTP status
// codes, mirroring the teacher's mapManagerError classification in
// internal/server/server.go.
func statusForError(err error) int {
	switch {
	case errors.Is(err, unlocker.ErrBeaconNotFound),
		errors.Is(err, unlocker.ErrInstanceNotFound),
		errors.Is(err, unlocker.ErrUserKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, unlocker.ErrBeaconEntityMismatch),
		errors.Is(err, unlocker.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, unlocker.ErrInvalidBeaconSignatureTail),
		errors.Is(err, unlocker.ErrInvalidDeviceSignature):
		return http.StatusUnauthorized
	case errors.Is(err, unlocker.ErrInstanceExpired):
		return http.StatusGone
	case errors.Is(err, unlocker.ErrStageMismatch),
		errors.Is(err, unlocker.ErrCounterConflict):
		return http.StatusConflict
	case errors.Is(err, unlocker.ErrTimestampOutOfWindow),
		errors.Is(err, unlocker.ErrMalformedPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err)
}
