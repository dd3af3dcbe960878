package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	emailapp "github.com/go-api-mailer/internal/application/email"
	"github.com/go-api-mailer/internal/domain"
)

const attachmentField = "attachment"

// EmailHandler handles the authenticated send endpoint.
type EmailHandler struct {
	svc      emailapp.Service
	maxBytes int64
}

func NewEmailHandler(svc emailapp.Service, maxBytes int64) *EmailHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &EmailHandler{svc: svc, maxBytes: maxBytes}
}

// sendBody accepts both casings of the display name field.
type sendBody struct {
	To          string `json:"to"`
	ReplyTo     string `json:"replyTo"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	UserName    string `json:"UserName"`
	UserNameAlt string `json:"userName"`
	Token       string `json:"token"`
}

func (b sendBody) displayName() string {
	if b.UserName != "" {
		return b.UserName
	}
	return b.UserNameAlt
}

func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	req, err := h.parse(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.svc.Send(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusEnvelope{Status: status})
}

func (h *EmailHandler) parse(r *http.Request) (domain.SendRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.parseMultipart(r)
	}

	var body sendBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.SendRequest{}, err
		}
		return domain.SendRequest{}, errors.New("invalid request body")
	}
	return domain.SendRequest{
		To:           body.To,
		ReplyTo:      body.ReplyTo,
		Subject:      body.Subject,
		Description:  body.Description,
		DisplayName:  body.displayName(),
		SessionToken: emailapp.ResolveSessionToken(body.Token, r.Header.Get("Authorization")),
	}, nil
}

func (h *EmailHandler) parseMultipart(r *http.Request) (domain.SendRequest, error) {
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.SendRequest{}, err
		}
		return domain.SendRequest{}, errors.New("invalid multipart form")
	}

	name := r.FormValue("UserName")
	if name == "" {
		name = r.FormValue("userName")
	}
	req := domain.SendRequest{
		To:           r.FormValue("to"),
		ReplyTo:      r.FormValue("replyTo"),
		Subject:      r.FormValue("subject"),
		Description:  r.FormValue("description"),
		DisplayName:  name,
		SessionToken: emailapp.ResolveSessionToken(r.FormValue("token"), r.Header.Get("Authorization")),
	}

	f, header, err := r.FormFile(attachmentField)
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return domain.SendRequest{}, errors.New("invalid attachment")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.SendRequest{}, errors.New("invalid attachment")
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = detectContentType(header.Filename)
	}
	req.Attachment = &domain.Attachment{
		Filename:    header.Filename,
		ContentType: contentType,
		Content:     content,
	}
	return req, nil
}

func detectContentType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".doc"):
		return "application/msword"
	case strings.HasSuffix(lower, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
