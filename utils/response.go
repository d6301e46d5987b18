package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"lancehub/apperr"
	"lancehub/globals"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// RespondWithSuccess merges payload into a {"success": true} envelope.
func RespondWithSuccess(w http.ResponseWriter, statusCode int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	RespondWithJSON(w, statusCode, body)
}

// RespondWithAppError maps a workflow error to the {error, details?} contract.
// Details are withheld in production.
func RespondWithAppError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	body := map[string]string{"error": userMessage(err)}
	if !globals.Production {
		if cause := errors.Unwrap(err); cause != nil {
			body["details"] = cause.Error()
		}
	}
	RespondWithJSON(w, status, body)
}

func userMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return "Internal server error"
}

type M map[string]interface{}
