package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted record of one outstanding refresh token.
// Only a hash of the raw token is stored; the raw value is returned to the
// client once and never kept server-side.
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type RefreshTokenRepository interface {
	Create(token *RefreshToken) error
	GetByUserAndHash(userID uuid.UUID, tokenHash string) (*RefreshToken, error)
	// DeleteByUserAndHash removes the matching record and reports whether a
	// row was actually deleted. Concurrent callers racing on the same token
	// observe at most one true result.
	DeleteByUserAndHash(userID uuid.UUID, tokenHash string) (bool, error)
	DeleteByUserID(userID uuid.UUID) error
	DeleteExpired() error
}
