package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sumire/storeit/internal/domain"
)

// ChallengeCookieName is the cookie carrying a pending OTP challenge.
const ChallengeCookieName = "otp-challenge"

const challengeIssuer = "storeit"

// Challenge identifies an emailed code awaiting verification. ID is assigned
// by Sign and differs for every issued token.
type Challenge struct {
	ID        string
	AccountID string
	Email     string
}

type challengeClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ChallengeSigner signs and verifies challenge tokens. A challenge only
// tells the OTP page which account to verify; it never authenticates.
type ChallengeSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewChallengeSigner creates a ChallengeSigner issuing tokens valid for ttl.
func NewChallengeSigner(secret string, ttl time.Duration) *ChallengeSigner {
	return &ChallengeSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns how long issued challenges stay valid.
func (s *ChallengeSigner) TTL() time.Duration { return s.ttl }

// Sign returns a signed token for ch.
func (s *ChallengeSigner) Sign(ch Challenge) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, challengeClaims{
		Email: ch.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   ch.AccountID,
			Issuer:    challengeIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign challenge: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its challenge. Invalid, expired or
// foreign tokens yield domain.ErrUnauthorized.
func (s *ChallengeSigner) Parse(tokenString string) (*Challenge, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: no challenge", domain.ErrUnauthorized)
	}

	var claims challengeClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(challengeIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: parse challenge: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: incomplete challenge", domain.ErrUnauthorized)
	}

	return &Challenge{ID: claims.ID, AccountID: claims.Subject, Email: claims.Email}, nil
}
