package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/notes-app/backend/internal/token"
)

type contextKey string

const UserIDKey contextKey = "userID"

type AuthMiddleware struct {
	codec *token.Codec
}

func NewAuthMiddleware(codec *token.Codec) *AuthMiddleware {
	return &AuthMiddleware{codec: codec}
}

// Authenticate resolves the caller's identity from the Authorization header.
// A missing, malformed, expired or wrong-typed token leaves the request
// unauthenticated and passes it through; rejecting is RequireAuth's job.
// Only access tokens count — a refresh token never authenticates a request.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !m.codec.Validate(authHeader, token.TypeAccess) {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := m.codec.Subject(authHeader)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := uuid.Parse(subject)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests that Authenticate left unauthenticated.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}
