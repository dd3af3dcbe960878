package http

import (
	"github.com/go-api-mailer/internal/application/draft"
	emailapp "github.com/go-api-mailer/internal/application/email"
	"github.com/go-api-mailer/internal/application/otp"
	"github.com/go-api-mailer/internal/observability/metrics"
	"go.uber.org/zap"
)

// Deps holds the application services and ambient collaborators for the router.
type Deps struct {
	OTP     otp.Service
	Email   emailapp.Service
	Drafts  draft.Service
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}
