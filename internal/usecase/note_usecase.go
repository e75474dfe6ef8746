package usecase

import (
	"errors"

	"github.com/google/uuid"

	"github.com/notes-app/backend/internal/domain"
)

var ErrNoteNotFound = errors.New("note not found")

type NoteUsecase struct {
	noteRepo domain.NoteRepository
}

func NewNoteUsecase(noteRepo domain.NoteRepository) *NoteUsecase {
	return &NoteUsecase{noteRepo: noteRepo}
}

// Save creates a note, or updates it when id refers to an existing note
// owned by the caller. Notes belonging to other users are invisible: an
// update attempt against one behaves exactly like a missing note.
func (u *NoteUsecase) Save(ownerID uuid.UUID, note *domain.Note) (*domain.Note, error) {
	if note.ID != uuid.Nil {
		existing, err := u.noteRepo.GetByID(note.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.OwnerID != ownerID {
			return nil, ErrNoteNotFound
		}
		if existing != nil {
			note.CreatedAt = existing.CreatedAt
		}
	}

	note.OwnerID = ownerID
	if err := u.noteRepo.Save(note); err != nil {
		return nil, err
	}
	return note, nil
}

func (u *NoteUsecase) ListByOwner(ownerID uuid.UUID) ([]*domain.Note, error) {
	return u.noteRepo.ListByOwner(ownerID)
}

func (u *NoteUsecase) Delete(ownerID, noteID uuid.UUID) error {
	note, err := u.noteRepo.GetByID(noteID)
	if err != nil {
		return err
	}
	if note == nil || note.OwnerID != ownerID {
		return ErrNoteNotFound
	}
	return u.noteRepo.Delete(noteID)
}
