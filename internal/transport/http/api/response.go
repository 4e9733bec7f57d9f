package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ems/internal/apperror"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// FailError maps a domain error onto the envelope. Unclassified errors come
// back as unavailable so internals never reach the client.
func FailError(w http.ResponseWriter, err error, requestID string) {
	code := apperror.GetCode(err)
	message := "service unavailable"
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if code == apperror.CodeUnavailable {
		slog.Error("request failed", "err", err, "requestId", requestID)
		message = "service unavailable"
	}
	Fail(w, apperror.HTTPStatus(code), string(code), message, requestID)
}
