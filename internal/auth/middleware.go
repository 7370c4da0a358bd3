package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const TokenQueryParam = "token"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type subjectKey struct{}

// Middleware rejects requests without a valid access token. The token is read
// from the "token" query parameter, then from an Authorization bearer header.
func Middleware(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := tokenFromRequest(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing access token")
			return
		}

		subject, err := verifier.Verify(tokenStr)
		if err != nil {
			switch {
			case errors.Is(err, ErrExpired):
				writeError(w, http.StatusUnauthorized, "token expired")
			case errors.Is(err, ErrMalformedSubject):
				writeError(w, http.StatusUnauthorized, "token subject missing")
			default:
				writeError(w, http.StatusUnauthorized, "invalid token")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey{}).(string)
	return subject, ok && subject != ""
}

func tokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get(TokenQueryParam)); token != "" {
		return token
	}

	parts := strings.SplitN(strings.TrimSpace(r.Header.Get("Authorization")), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
