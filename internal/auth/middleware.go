package auth

import (
	"context"
	"net/http"

	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	SourceToken   = "token"
	SourceSession = "session"
)

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID string
	Role   models.Role
	Source string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// UserID returns the caller's id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.UserID
	}
	return ""
}

// Authenticator accepts a bearer access token or, failing that, an admin session cookie.
type Authenticator struct {
	tokens   *TokenIssuer
	sessions *AdminSessions
	logger   *logger.Logger
}

func NewAuthenticator(tokens *TokenIssuer, sessions *AdminSessions, log *logger.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, logger: log}
}

func (a *Authenticator) identify(r *http.Request) (Identity, error) {
	if raw, err := ExtractTokenFromRequest(r); err == nil {
		claims, err := a.tokens.ParseAccess(raw)
		if err != nil {
			return Identity{}, err
		}
		return Identity{UserID: claims.Subject, Role: claims.Role, Source: SourceToken}, nil
	}
	if a.sessions != nil {
		if id, ok := a.sessions.Current(r); ok {
			return id, nil
		}
	}
	return Identity{}, ErrInvalidToken
}

// Middleware rejects requests without valid credentials.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.identify(r)
		if err != nil {
			a.logger.LogSecurity("UNAUTHORIZED", r.Method+" "+r.URL.Path)
			utils.WriteError(w, http.StatusUnauthorized, "Authentication required", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Optional attaches an identity when credentials are valid and otherwise passes through.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := a.identify(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole must run after Middleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, "Authentication required", ErrInvalidToken)
				return
			}
			if !allowed[id.Role] {
				utils.WriteError(w, http.StatusForbidden, "Forbidden", ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
