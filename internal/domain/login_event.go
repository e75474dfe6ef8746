package domain

import (
	"time"

	"github.com/google/uuid"
)

// LoginEvent is an audit record written on every successful password login.
type LoginEvent struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginEventRepository interface {
	Create(event *LoginEvent) error
	ListByUser(userID uuid.UUID, limit, offset int) ([]*LoginEvent, error)
}
