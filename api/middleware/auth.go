package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/brunotavares/sorrisodigital-backend/api/responses"
	pkgAuth "github.com/brunotavares/sorrisodigital-backend/pkg/auth"
	"github.com/brunotavares/sorrisodigital-backend/pkg/auth/session"
	"github.com/brunotavares/sorrisodigital-backend/pkg/config"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

// Auth validates an admin bearer token and seeds the request context with the
// claims. When a session verifier is wired the jti must still be live in
// Redis, so logout takes effect before the JWT expires.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxAdminID, claims.AdminID.String())
			ctx = context.WithValue(ctx, ctxAdminEmail, claims.Email)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"admin_id": claims.AdminID.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
