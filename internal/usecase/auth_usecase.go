package usecase

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/notes-app/backend/internal/domain"
	"github.com/notes-app/backend/internal/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthUsecase struct {
	userRepo  domain.UserRepository
	tokenRepo domain.RefreshTokenRepository
	eventRepo domain.LoginEventRepository
	codec     *token.Codec
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginMeta carries request metadata recorded in the login audit trail.
type LoginMeta struct {
	IPAddress string
	UserAgent string
}

func NewAuthUsecase(userRepo domain.UserRepository, tokenRepo domain.RefreshTokenRepository, eventRepo domain.LoginEventRepository, codec *token.Codec) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		eventRepo: eventRepo,
		codec:     codec,
	}
}

func (u *AuthUsecase) Register(email, password string) (*domain.User, error) {
	email = normalizeEmail(email)

	existing, err := u.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := u.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password are indistinguishable to the caller so the error
// surface cannot be used to enumerate accounts. Each login adds a refresh
// token without touching tokens issued to other sessions of the same user.
func (u *AuthUsecase) Login(email, password string, meta LoginMeta) (*TokenPair, error) {
	user, err := u.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := u.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	// Audit only; a failed write must not fail the login.
	if u.eventRepo != nil {
		_ = u.eventRepo.Create(&domain.LoginEvent{
			UserID:    user.ID,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
	}

	return pair, nil
}

// Refresh rotates a refresh token: the presented token is consumed exactly
// once and replaced by a new pair. The consume step (compare-and-delete at
// the store) runs before any new token is persisted, so a failure mid-flight
// can never leave two redeemable tokens behind.
func (u *AuthUsecase) Refresh(refreshToken string) (*TokenPair, error) {
	if !u.codec.Validate(refreshToken, token.TypeRefresh) {
		return nil, ErrInvalidToken
	}

	subject, err := u.codec.Subject(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := u.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	tokenHash := hashToken(refreshToken)
	stored, err := u.tokenRepo.GetByUserAndHash(user.ID, tokenHash)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrInvalidToken
	}

	// Single-use boundary: of two concurrent rotations presenting the same
	// token, exactly one sees deleted==true here.
	deleted, err := u.tokenRepo.DeleteByUserAndHash(user.ID, tokenHash)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrInvalidToken
	}

	return u.issuePair(user.ID)
}

// Logout revokes the presented refresh token. Tokens of other sessions
// remain valid.
func (u *AuthUsecase) Logout(refreshToken string) error {
	if !u.codec.Validate(refreshToken, token.TypeRefresh) {
		return ErrInvalidToken
	}
	subject, err := u.codec.Subject(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return ErrInvalidToken
	}
	_, err = u.tokenRepo.DeleteByUserAndHash(userID, hashToken(refreshToken))
	return err
}

func (u *AuthUsecase) GetUserByID(id uuid.UUID) (*domain.User, error) {
	return u.userRepo.GetByID(id)
}

func (u *AuthUsecase) ListLogins(userID uuid.UUID, limit, offset int) ([]*domain.LoginEvent, error) {
	if u.eventRepo == nil {
		return nil, nil
	}
	return u.eventRepo.ListByUser(userID, limit, offset)
}

func (u *AuthUsecase) issuePair(userID uuid.UUID) (*TokenPair, error) {
	accessToken, err := u.codec.IssueAccess(userID.String())
	if err != nil {
		return nil, err
	}
	refreshToken, err := u.codec.IssueRefresh(userID.String())
	if err != nil {
		return nil, err
	}

	record := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().Add(u.codec.RefreshTTL()),
	}
	if err := u.tokenRepo.Create(record); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashToken stores refresh tokens one-way hashed so a leaked table never
// yields redeemable bearer values.
func hashToken(rawToken string) string {
	hash := sha256.Sum256([]byte(rawToken))
	return base64.StdEncoding.EncodeToString(hash[:])
}
