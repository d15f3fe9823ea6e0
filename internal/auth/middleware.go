package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingToken    = errors.New("missing token")
	ErrMalformedBearer = errors.New("authorization is not a bearer token")
)

// TokenQueryParam carries the token on websocket handshakes, where the
// browser cannot set an Authorization header.
const TokenQueryParam = "token"

type userIDKey struct{}

// BearerToken returns the token from the Authorization header. When
// allowQuery is set and no header is present, the token query parameter is
// used instead.
func BearerToken(r *http.Request, allowQuery bool) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", ErrMalformedBearer
		}
		return token, nil
	}
	if allowQuery {
		if token := r.URL.Query().Get(TokenQueryParam); token != "" {
			return token, nil
		}
	}
	return "", ErrMissingToken
}

// Authenticate resolves the user a request acts for.
func (s *Service) Authenticate(r *http.Request, allowQuery bool) (string, error) {
	token, err := BearerToken(r, allowQuery)
	if err != nil {
		return "", err
	}
	return s.ValidateToken(token)
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the user id in the request context.
func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.Authenticate(r, false)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="inkboard"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext is empty outside AuthMiddleware.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}
