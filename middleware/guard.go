package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	goIAM "github.com/MrEthical07/goIAM"
)

// AccessVerifier is satisfied by *goIAM.Engine.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, accessToken string) (*goIAM.ActiveUser, error)
}

type activeUserContextKey struct{}

// WithActiveUser stores user in ctx for downstream handlers.
func WithActiveUser(ctx context.Context, user *goIAM.ActiveUser) context.Context {
	return context.WithValue(ctx, activeUserContextKey{}, user)
}

func ActiveUserFromContext(ctx context.Context) (*goIAM.ActiveUser, bool) {
	user, ok := ctx.Value(activeUserContextKey{}).(*goIAM.ActiveUser)
	return user, ok && user != nil
}

// Guard rejects requests without a valid bearer access token and injects the
// verified identity into the request context.
func Guard(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := verifier.VerifyAccess(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActiveUser(r.Context(), user)))
		})
	}
}

// RequireRole admits requests whose verified identity holds one of roles.
// It must run after Guard; a request without an identity is unauthorized.
func RequireRole(roles ...goIAM.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := ActiveUserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
