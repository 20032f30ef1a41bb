package http

import (
	"net/http"

	"github.com/biolens/auth-api/internal/application/auth"
	"github.com/biolens/auth-api/internal/application/face"
	"github.com/biolens/auth-api/internal/application/identity"
	"github.com/biolens/auth-api/internal/config"
	"github.com/biolens/auth-api/internal/transport/http/handler"
	appmiddleware "github.com/biolens/auth-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10 — applied to all public auth endpoints.
	authRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	resolver := identity.NewResolver(deps.UserRepo)
	authSvc := auth.NewService(auth.ServiceDeps{
		Users:          deps.UserRepo,
		Resolver:       resolver,
		OTPStore:       deps.OTPStore,
		Mailer:         deps.Mailer,
		SMSSender:      deps.SMSSender,
		GoogleVerifier: deps.GoogleVerifier,
		Tokens:         deps.JWTProvider,
		OTPExpiry:      cfg.OTPExpiry,
	})
	faceSvc := face.NewService(deps.S3Store, deps.FaceRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	faceH := handler.NewFaceHandler(faceSvc)
	userH := handler.NewUserHandler(deps.UserRepo)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(authRL.Limit)

			r.Post("/auth/google", authH.Google)
			r.Post("/auth/register", authH.Register)
			r.Post("/auth/email", authH.Email)
			r.Post("/auth/email/send-otp", authH.SendEmailOTP)
			r.Post("/auth/email/verify-otp", authH.VerifyEmailOTP)
			r.Post("/auth/phone/send-otp", authH.SendPhoneOTP)
			r.Post("/auth/phone/verify-otp", authH.VerifyPhoneOTP)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/auth/upload-face", faceH.Upload)
			r.Get("/auth/faces", faceH.List)
			r.Get("/auth/faces/{id}", faceH.Download)
			r.Get("/users/me", userH.Me)
		})
	})

	return r
}
