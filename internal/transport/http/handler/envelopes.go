package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-api-mailer/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// TokenEnvelope wraps the OTP request response.
type TokenEnvelope struct {
	Token string `json:"token"`
}

// VerifyEnvelope wraps OTP verification responses.
type VerifyEnvelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Token     string `json:"token,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// StatusEnvelope wraps the send response.
type StatusEnvelope struct {
	Status string `json:"status"`
}

// DraftsEnvelope wraps /email/improve responses.
type DraftsEnvelope struct {
	Result []domain.EmailDraft `json:"result"`
}

// SubjectsEnvelope wraps subject suggestions.
type SubjectsEnvelope struct {
	Subjects []string `json:"subjects"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// httpError maps a service error onto a status code and a client message.
func httpError(w http.ResponseWriter, err error) {
	status, msg := classify(err)
	writeError(w, status, msg)
}

func classify(err error) (int, string) {
	for _, m := range []struct {
		sentinel error
		status   int
	}{
		{domain.ErrBadRequest, http.StatusBadRequest},
		{domain.ErrInvalidOTP, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrTooManyRequests, http.StatusTooManyRequests},
		{domain.ErrDelivery, http.StatusInternalServerError},
	} {
		if errors.Is(err, m.sentinel) {
			return m.status, clientMessage(err, m.sentinel)
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// clientMessage drops the trailing ": <sentinel>" added by fmt.Errorf wrapping.
func clientMessage(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
