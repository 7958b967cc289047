// Package httpapi exposes the credential core over HTTP/JSON. Handlers
// decode the request, call into the service layer, and map the shared
// sentinel errors to status codes and user-facing messages.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/commltd/authcore/internal/logging"
	"github.com/commltd/authcore/internal/policy"
	"github.com/commltd/authcore/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Accounts is the slice of the account service the HTTP layer needs.
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Account, error)
	Login(ctx context.Context, in services.LoginInput) (*services.Account, error)
}

// Verifications issues and confirms verification codes.
type Verifications interface {
	IssueCode(ctx context.Context, identity string) (*services.IssueResult, error)
	ConfirmCode(ctx context.Context, userID, code string) error
}

// Passwords runs the credential change workflow.
type Passwords interface {
	ChangePassword(ctx context.Context, in services.ChangePasswordInput) error
	ResetPassword(ctx context.Context, in services.ResetPasswordInput) error
}

type HTTPServer struct {
	address       string
	logger        logging.Logger
	accounts      Accounts
	verifications Verifications
	passwords     Passwords
	policy        *policy.Policy
}

func NewHTTPServer(a string, l logging.Logger, as Accounts, vs Verifications, ps Passwords, p *policy.Policy) *HTTPServer {
	return &HTTPServer{
		address:       a,
		logger:        l.With("module", "http_server"),
		accounts:      as,
		verifications: vs,
		passwords:     ps,
		policy:        p,
	}
}

// Router builds the chi router with the public API routes.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Route("/verifications", func(r chi.Router) {
			r.Post("/send-code", s.sendCode)
			r.Post("/verify", s.verify)
		})
		r.Route("/passwords", func(r chi.Router) {
			r.Get("/policy", s.getPolicy)
			r.Post("/change", s.changePassword)
			r.Post("/reset", s.resetPassword)
		})
	})

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
