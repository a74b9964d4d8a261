package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/glowcare/storefront/internal/platform/httpx"
)

// Middleware guards routes with bearer token checks.
type Middleware struct {
	service *Service
	logger  *slog.Logger
}

// NewMiddleware constructs a Middleware.
func NewMiddleware(service *Service, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return Middleware{service: service, logger: logger}
}

// RequireUser admits any request carrying a valid, unrevoked token.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin admits only admin principals.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		if !p.IsAdmin() {
			httpx.RespondError(w, ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

func (m Middleware) authenticate(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	raw, ok := bearerToken(r)
	if !ok {
		httpx.RespondError(w, ErrMissingToken)
		return Principal{}, false
	}
	p, err := m.service.Authenticate(r.Context(), raw)
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			m.logger.Error("authenticate token", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return Principal{}, false
	}
	return p, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
