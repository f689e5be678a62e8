package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type userContextKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the user stored by the middleware, if any.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey{}).(User)
	return u, ok && u.ID != ""
}

// Middleware verifies the bearer token when present. Requests without a valid token pass
// through anonymously; handlers decide whether a user is required. Browsers cannot set
// headers on websocket handshakes, so upgrade requests may carry the token in the
// access_token query parameter instead.
func Middleware(tm *TokenManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := requestToken(r)
			if err != nil || raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, err := tm.Verify(raw)
			if err != nil {
				logger.Debug("rejected bearer token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func requestToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return ExtractBearer(header)
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token"), nil
	}
	return "", nil
}
