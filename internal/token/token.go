// Package token issues and verifies the platform's signed bearer tokens:
// confirmation links, course-question access and raw repository access.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A token is only valid for the purpose it was issued
// with; verification against any other purpose fails.
const (
	PurposeConfirmEmail   = "confirm_email"
	PurposeCourseQuestion = "course_question"
	PurposeRawRepository  = "raw_repository"
	PurposeSession        = "session"
)

// ErrInvalidToken is the single verification failure. Expired, malformed,
// tampered and wrong-purpose tokens are deliberately indistinguishable to
// callers.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried inside a signed token.
type Claims struct {
	UserID  int64  `json:"uid"`
	Subject string `json:"sub,omitempty"`
	Purpose string `json:"pur"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens with a shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Generate issues a token for one purpose with the given lifetime.
func (s *Signer) Generate(userID int64, subject, purpose string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:  userID,
		Subject: subject,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, expiry and purpose. Any failure returns
// ErrInvalidToken; it never returns partially-trusted claims.
func (s *Signer) Verify(tokenString, purpose string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
