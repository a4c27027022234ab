package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"compdash/internal/middleware"
	"compdash/pkg/errors"
	"compdash/pkg/logger"
)

// envelope wraps every successful response
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Message: message})
}

// respondError writes err as an ErrorResponse. Errors that are not
// AppErrors are reported as internal errors without leaking their text.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := errors.From(err)
	requestID := middleware.GetRequestID(r.Context())

	entry := log.WithError(err).WithFields(map[string]interface{}{
		"request_id": requestID,
		"error_type": string(appErr.Type),
		"path":       r.URL.Path,
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Request rejected")
	}

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = requestID
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Error("Failed to encode error response")
	}
}

// NotFound answers unknown routes
func NotFound(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, log, errors.NewNotFoundError("Endpoint not found"))
	}
}
