package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
	"github.com/lodgepole/gatehouse/internal/gatehouse/service"
	"github.com/lodgepole/gatehouse/pkg/httpx"
	"github.com/lodgepole/gatehouse/pkg/slogx"
)

type userCtxKey struct{}

// SessionMiddleware resolves the session cookie to a user and injects the
// user into the request context. Requests without a live session get 401.
func SessionMiddleware(sessions *service.SessionService, cookies CookieConfig) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			token := sessionToken(r, cookies)
			user, err := sessions.Resolve(ctx, token)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
						Error:            "unauthenticated",
						ErrorDescription: "Sign in to continue",
					})
					return
				}
				log.Error("failed to resolve session", "err", err)
				httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
					Error:            "server_error",
					ErrorDescription: "Failed to resolve session",
				})
				return
			}

			ctx = context.WithValue(ctx, userCtxKey{}, user)
			ctx = httpx.ContextWithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userFromContext returns the user injected by SessionMiddleware.
func userFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(domain.User)
	return u, ok
}
