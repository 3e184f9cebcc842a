// Package auth verifies and mints the signed identity tokens clients present
// when they open a relay connection.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/Sketch/internal/domain"
)

var (
	// ErrInvalidToken is the only error Authenticate returns; the cause is wrapped.
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("token is missing")
	ErrMissingClaim = errors.New("identity claim is missing")
	ErrNoSecret     = errors.New("signing secret is empty")
)

// Claims is the payload carried by a relay token. The identity claim is named
// userId to stay compatible with tokens minted for existing clients.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Authenticator checks a bearer credential against a process-wide secret.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// withClock returns a copy that evaluates expiry against now.
func (a *Authenticator) withClock(now func() time.Time) *Authenticator {
	cp := *a
	cp.now = now
	return &cp
}

// Authenticate returns the user embedded in a valid, unexpired token.
func (a *Authenticator) Authenticate(token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingToken)
	}
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrNoSecret)
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	user, err := domain.NewUser(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingClaim)
	}
	return user, nil
}

// Issuer mints tokens the Authenticator accepts. The relay itself never
// issues tokens; this exists for the token CLI and tests.
type Issuer struct {
	secret []byte
	name   string
	now    func() time.Time
}

func NewIssuer(secret, name string) *Issuer {
	return &Issuer{secret: []byte(secret), name: name, now: time.Now}
}

// Issue signs a token for userID valid for ttl. A zero ttl yields a token
// without expiry; a negative one an already expired token.
func (i *Issuer) Issue(userID domain.UserID, ttl time.Duration) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrNoSecret
	}
	now := i.now()
	claims := &Claims{
		UserID: string(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   i.name,
			Subject:  string(userID),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
