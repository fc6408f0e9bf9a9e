package util

import (
	"encoding/json"
	"net/http"

	"taxi-fleet/internal/shared/apperrors"
)

func ResponseInJSON(w http.ResponseWriter, statusCode int, object interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(object)
}

// ErrResponseInJSON renders a domain error with the status code the
// taxonomy assigns to it.
func ErrResponseInJSON(w http.ResponseWriter, err error) {
	ResponseInJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
}

func WriteJSONError(w http.ResponseWriter, message string, status int) {
	ResponseInJSON(w, status, map[string]string{"error": message})
}
