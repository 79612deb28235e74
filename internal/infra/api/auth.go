package api

import (
	"context"
	"net/http"
	"strings"

	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller extracted from a bearer token.
// Token issuance lives in the identity service; this side only verifies.
type Principal struct {
	UserID string
	Role   model.Role
}

type principalKey struct{}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate verifies an HS256 bearer token and stores the principal on
// the request context. Algorithm is pinned; "none" and RS* tokens fail.
func Authenticate(secret string) func(http.Handler) http.Handler {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			var claims accessClaims
			token, err := jwt.ParseWithClaims(parts[1], &claims, keyFunc,
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid || claims.Subject == "" {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			p := Principal{UserID: claims.Subject, Role: model.Role(claims.Role)}
			if p.Role == "" {
				p.Role = model.RoleUser
			}
			ctx := context.WithValue(r.Context(), principalKey{}, p)
			ctx = logging.WithUserID(ctx, p.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route group to the given roles. Admin passes every
// gate.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if p.Role == model.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient role")
		})
	}
}
