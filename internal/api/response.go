package api

import (
	"encoding/json"
	"net/http"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// Envelope wraps every JSON response body.
type Envelope struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
}

// ErrorEnvelope is returned for failed requests. Status is "fail" for client
// errors and "error" for server errors.
type ErrorEnvelope struct {
	Data             interface{} `json:"data"`
	Message          string      `json:"message"`
	DeveloperMessage string      `json:"developerMessage,omitempty"`
	Status           string      `json:"status"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondData(w http.ResponseWriter, status int, message string, data interface{}) {
	respondJSON(w, status, Envelope{Data: data, Message: message, Status: statusSuccess})
}

// respondError maps err onto its HTTP status. Errors that are not
// StandardErrors are reported as internal without exposing their text.
func respondError(w http.ResponseWriter, log logger.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	body := ErrorEnvelope{Status: statusFail}
	if status >= http.StatusInternalServerError {
		body.Status = statusError
	}

	if stdErr, ok := apperrors.AsStandardError(err); ok {
		body.Message = stdErr.Message
		body.DeveloperMessage = stdErr.Details
	} else {
		body.Message = "internal server error"
	}

	fields := map[string]interface{}{"status": status, "error": err.Error()}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields)
	} else {
		log.Debug("request rejected", fields)
	}

	respondJSON(w, status, body)
}
