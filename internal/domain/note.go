package domain

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Color     int64     `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type NoteRepository interface {
	Save(note *Note) error
	GetByID(id uuid.UUID) (*Note, error)
	ListByOwner(ownerID uuid.UUID) ([]*Note, error)
	Delete(id uuid.UUID) error
}
