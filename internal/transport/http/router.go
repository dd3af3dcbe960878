package http

import (
	"net/http"

	"github.com/go-api-mailer/internal/config"
	"github.com/go-api-mailer/internal/transport/http/handler"
	appmiddleware "github.com/go-api-mailer/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. The returned limiter
// must be stopped on shutdown.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, *appmiddleware.RateLimiter) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(appmiddleware.RequestLogger(log, deps.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(deps.OTP)
	emailH := handler.NewEmailHandler(deps.Email, cfg.MaxUploadBytes)
	draftH := handler.NewDraftHandler(deps.Drafts)

	r.Get("/health-check/{action}", healthH.Ping)
	r.Post("/health-check/{action}", healthH.Ping)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/email", func(r chi.Router) {
		r.With(sensitiveRL.Limit).Post("/request-otp", otpH.Request)
		r.With(sensitiveRL.Limit).Post("/verify-otp", otpH.Verify)
		r.With(sensitiveRL.Limit).Post("/send", emailH.Send)
		r.Post("/improve", draftH.Improve)
	})

	r.Route("/llm", func(r chi.Router) {
		r.Post("/improve-description", draftH.ImproveDescription)
		r.Get("/subjects", draftH.Subjects)
		r.Get("/GetSubjects", draftH.Subjects)
	})

	return r, sensitiveRL
}
