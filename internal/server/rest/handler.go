package rest

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/shared"
	"github.com/julienschmidt/httprouter"
)

const (
	stateCookieName   = "oauth_state"
	stateCookiePath   = "/api/auth/google"
	stateCookieMaxAge = 600
	stateBytes        = 16
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type mobileSignInRequest struct {
	IDToken *string `json:"idToken"`
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, response{Success: true, Message: "OK"})
}

// handleLogin answers 200 for every authentication outcome; only backend
// failures produce 500.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Message: msgInvalidJSON})
		return
	}

	user, err := s.auth.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		var inputErr *services.InputError
		switch {
		case errors.As(err, &inputErr):
			writeJSON(w, http.StatusOK, response{Message: inputErr.Reason})
		case errors.Is(err, common.ErrUserNotFound):
			writeJSON(w, http.StatusOK, response{Message: "User not found"})
		case errors.Is(err, common.ErrLocked):
			writeJSON(w, http.StatusOK, response{Message: "Too many failed attempts"})
		case errors.Is(err, common.ErrWrongPassword):
			writeJSON(w, http.StatusOK, response{Message: "Invalid password"})
		default:
			s.logger.Error(r.Context(), "login failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
		}
		return
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.opts.SessionValidity)
	if err != nil {
		s.logger.Error(r.Context(), "session token", "error", err)
		writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
		return
	}

	writeJSON(w, http.StatusOK, response{Success: true, Message: "Login successful", Token: token, UserID: user.ID})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Message: msgInvalidJSON})
		return
	}

	user, err := s.auth.Register(r.Context(), req.Email, req.Phone, req.Password)
	if err != nil {
		s.writeRegistrationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Success: true, Message: "Registration successful.", UserID: user.ID})
}

func (s *Server) writeRegistrationError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *services.InputError
	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, response{Message: inputErr.Reason})
	case errors.Is(err, common.ErrAlreadyExists):
		writeJSON(w, http.StatusBadRequest, response{Message: "User already exists."})
	default:
		s.logger.Error(r.Context(), "registration failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
	}
}

func (s *Server) handleGoogleSignInMobile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.identities == nil {
		writeJSON(w, http.StatusServiceUnavailable, response{Message: "Google sign-in is not configured"})
		return
	}

	var req mobileSignInRequest
	if err := decodeJSON(w, r, &req); err != nil || req.IDToken == nil {
		writeJSON(w, http.StatusBadRequest, response{Message: "Missing idToken"})
		return
	}

	res, err := s.identities.SignInWithToken(r.Context(), *req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidToken):
			writeJSON(w, http.StatusBadRequest, response{Message: "Invalid token"})
		case errors.Is(err, common.ErrMissingEmail):
			writeJSON(w, http.StatusBadRequest, response{Message: "No email found in token"})
		default:
			s.logger.Error(r.Context(), "mobile sign-in failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
		}
		return
	}

	token, err := auth.GenerateToken(res.User.ID, s.jwtSecret, s.opts.SessionValidity)
	if err != nil {
		s.logger.Error(r.Context(), "session token", "error", err)
		writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
		return
	}

	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: "Google sign-in success",
		Email:   res.User.Email.String,
		Token:   token,
		UserID:  res.User.ID,
	})
}

// handleGoogleLogin starts the browser flow. The state value is bound to the
// browser through a short-lived cookie and checked on callback.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.webFlow == nil {
		writeJSON(w, http.StatusServiceUnavailable, response{Message: "Google sign-in is not configured"})
		return
	}

	state, err := shared.MakeRandHexString(stateBytes)
	if err != nil {
		s.logger.Error(r.Context(), "oauth state", "error", err)
		writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.webFlow.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.webFlow == nil || s.identities == nil {
		writeJSON(w, http.StatusServiceUnavailable, response{Message: "Google sign-in is not configured"})
		return
	}

	q := r.URL.Query()
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		writeJSON(w, http.StatusBadRequest, response{Message: "Invalid OAuth state"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: stateCookiePath, MaxAge: -1, HttpOnly: true})

	if e := q.Get("error"); e != "" {
		writeJSON(w, http.StatusBadRequest, response{Message: "Google sign-in was cancelled"})
		return
	}

	claims, err := s.webFlow.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		s.logger.Info(r.Context(), "google code exchange failed", "error", err)
		writeJSON(w, http.StatusBadRequest, response{Message: "Invalid token"})
		return
	}

	res, err := s.identities.Reconcile(r.Context(), claims)
	if err != nil {
		if errors.Is(err, common.ErrMissingEmail) {
			writeJSON(w, http.StatusBadRequest, response{Message: "Could not retrieve email from Google"})
			return
		}
		s.logger.Error(r.Context(), "web sign-in failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
		return
	}

	target := strings.TrimRight(s.opts.FrontendURL, "/") + "/welcome?" + url.Values{"user": {res.User.Email.String}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, _ := UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Authenticated", UserID: userID})
}

func (s *Server) handleResetAttempts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.auth.ResetLockouts(r.Context()); err != nil {
		s.logger.Error(r.Context(), "reset attempts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Attempts reset."})
}

func (s *Server) handleSeedUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Message: msgInvalidJSON})
		return
	}

	user, err := s.auth.SeedUser(r.Context(), req.Email, req.Phone, req.Password)
	if err != nil {
		s.writeRegistrationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Message: "Test user seeded.", UserID: user.ID})
}
