package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type callerKey struct{}

// Authenticate verifies a bearer token when one is present and stores its
// subject as the caller identity. Requests without a token pass through;
// handlers that mutate state reject them via requireCaller. The query surface
// stays open this way.
func Authenticate(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, codeInvalidToken, "malformed authorization header")
			return
		}

		var claims jwt.RegisteredClaims
		token, err := jwt.ParseWithClaims(tokenStr, &claims,
			func(t *jwt.Token) (any, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, codeInvalidToken, "invalid token")
			return
		}
		if claims.Subject == "" {
			writeError(w, http.StatusUnauthorized, codeInvalidToken, "token has no subject")
			return
		}

		ctx := context.WithValue(r.Context(), callerKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext returns the authenticated caller identity, if any.
func CallerFromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerKey{}).(string)
	return caller, ok
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeMissingToken, "authentication required")
		return "", false
	}
	return caller, true
}
