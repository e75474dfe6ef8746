package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type discriminates access tokens from refresh tokens. The two are never
// interchangeable: a well-formed refresh token presented where an access
// token is expected fails validation on the type claim alone.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

var ErrUnparsable = errors.New("token: unparsable")

type Claims struct {
	TokenType Type `json:"type"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256-signed tokens with a single process-wide
// secret fixed at construction.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(secret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) IssueAccess(subject string) (string, error) {
	return c.issue(subject, TypeAccess, c.accessTTL)
}

func (c *Codec) IssueRefresh(subject string) (string, error) {
	return c.issue(subject, TypeRefresh, c.refreshTTL)
}

func (c *Codec) issue(subject string, typ Type, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Validate reports whether the token carries a valid signature, is not
// expired, and matches the expected type. Malformed, tampered and expired
// tokens are all just "invalid" here; no error detail escapes on purpose.
func (c *Codec) Validate(tokenString string, expected Type) bool {
	claims := c.parse(tokenString)
	return claims != nil && claims.TokenType == expected
}

// Subject returns the subject claim, or ErrUnparsable when the token does
// not verify.
func (c *Codec) Subject(tokenString string) (string, error) {
	claims := c.parse(tokenString)
	if claims == nil {
		return "", ErrUnparsable
	}
	return claims.Subject, nil
}

func (c *Codec) parse(tokenString string) *Claims {
	raw := strings.TrimPrefix(tokenString, "Bearer ")

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil
	}
	return claims
}
