package rest

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/julienschmidt/httprouter"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// UserIDFromContext returns the user id put there by requireSession.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// requireSession admits requests carrying a valid "Authorization: Bearer"
// session token.
func (s *Server) requireSession(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeJSON(w, http.StatusUnauthorized, response{Message: msgUnauthorized})
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			msg := msgUnauthorized
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "Token expired"
			}
			writeJSON(w, http.StatusUnauthorized, response{Message: msg})
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)), ps)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireAdmin admits requests whose admin header matches the configured
// token.
func (s *Server) requireAdmin(next httprouter.Handle) httprouter.Handle {
	expected := []byte(s.opts.AdminToken)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		got := []byte(r.Header.Get(common.AdminTokenHeaderName))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			s.logger.Warn(r.Context(), "admin request rejected", "path", r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, response{Message: msgUnauthorized})
			return
		}
		next(w, r, ps)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
