package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-api-mailer/internal/application/otp"
)

// OTPHandler handles the email ownership verification endpoints.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler { return &OTPHandler{svc: svc} }

func (h *OTPHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req otp.RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.svc.RequestOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{Token: token})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req otp.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, VerifyEnvelope{
			Message:   "invalid request body",
			Error:     "invalid request body",
			ErrorCode: http.StatusBadRequest,
		})
		return
	}
	res, err := h.svc.VerifyOTP(r.Context(), req)
	if err != nil {
		status, msg := classify(err)
		writeJSON(w, status, VerifyEnvelope{Message: msg, Error: msg, ErrorCode: status})
		return
	}
	writeJSON(w, http.StatusOK, VerifyEnvelope{Success: res.Success, Message: res.Message, Token: res.Token})
}
