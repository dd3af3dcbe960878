package domain

// Attachment is a single file carried by an outbound email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// SendRequest is the caller-facing input of the send gateway. It is never persisted.
type SendRequest struct {
	To           string      `json:"to" validate:"required,mailbox"`
	ReplyTo      string      `json:"replyTo" validate:"required,mailbox"`
	Subject      string      `json:"subject" validate:"required"`
	Description  string      `json:"description" validate:"required"`
	DisplayName  string      `json:"UserName"`
	SessionToken string      `json:"token"`
	Attachment   *Attachment `json:"-"`
}

// OutboundEmail is a fully resolved message ready for the mail transport.
type OutboundEmail struct {
	MessageID   string
	FromName    string
	To          string
	ReplyTo     string
	Subject     string
	Text        string
	Attachments []Attachment
}

// EmailDraft is one AI-generated variant of an email.
type EmailDraft struct {
	Tone    string `json:"tone"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
