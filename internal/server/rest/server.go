// Package rest exposes the authentication services as a JSON HTTP API.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/identity"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/julienschmidt/httprouter"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Authenticator is the password side of the API.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (*models.User, error)
	Register(ctx context.Context, email, phone, password string) (*models.User, error)
	SeedUser(ctx context.Context, email, phone, password string) (*models.User, error)
	ResetLockouts(ctx context.Context) error
}

// IdentityReconciler links external identities to users.
type IdentityReconciler interface {
	SignInWithToken(ctx context.Context, token string) (*services.Reconciliation, error)
	Reconcile(ctx context.Context, claims *identity.Claims) (*services.Reconciliation, error)
}

// WebSignIn is the browser OAuth2 flow.
type WebSignIn interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*identity.Claims, error)
}

// Options carries the transport settings taken from configuration.
type Options struct {
	Address         string
	JWTSecret       string
	SessionValidity time.Duration
	FrontendURL     string
	// AdminToken guards the administrative routes. Empty disables them.
	AdminToken string
}

type Server struct {
	opts       Options
	auth       Authenticator
	identities IdentityReconciler
	webFlow    WebSignIn
	logger     logging.Logger
	jwtSecret  []byte
}

// NewServer builds the HTTP server. identities and webFlow may be nil when
// Google sign-in is not configured; the corresponding routes answer 503.
func NewServer(opts Options, l logging.Logger, auth Authenticator, identities IdentityReconciler, webFlow WebSignIn) *Server {
	return &Server{
		opts:       opts,
		auth:       auth,
		identities: identities,
		webFlow:    webFlow,
		logger:     l.With("module", "http_server"),
		jwtSecret:  []byte(opts.JWTSecret),
	}
}

// Handler returns the routed handler wrapped in the common middleware.
func (s *Server) Handler() http.Handler {
	r := httprouter.New()

	r.GET("/api/ping", s.handlePing)
	r.POST("/api/login", s.handleLogin)
	r.POST("/api/register", s.handleRegister)
	r.POST("/api/google_signin_mobile", s.handleGoogleSignInMobile)
	r.GET("/api/auth/google", s.handleGoogleLogin)
	r.GET("/api/auth/google/callback", s.handleGoogleCallback)
	r.GET("/api/session", s.requireSession(s.handleSession))

	if s.opts.AdminToken != "" {
		r.POST("/api/reset_attempts", s.requireAdmin(s.handleResetAttempts))
		r.POST("/api/seed_user", s.requireAdmin(s.handleSeedUser))
	}

	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, response{Message: "Not found"})
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, response{Message: "Method not allowed"})
	})
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, p interface{}) {
		s.logger.Error(req.Context(), "handler panic", "path", req.URL.Path, "panic", p)
		writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
	}

	return s.logRequests(r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
