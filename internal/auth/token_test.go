package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Sketch/internal/domain"
)

const secret = "test-secret-for-the-relay"

func TestAuthenticate_ValidToken(t *testing.T) {
	req := require.New(t)
	token, err := NewIssuer(secret, "sketch").Issue("alice", time.Hour)
	req.NoError(err)

	user, err := NewAuthenticator(secret).Authenticate(token)
	req.NoError(err)
	req.Equal(domain.UserID("alice"), user.ID)
}

func TestAuthenticate_TokenWithoutExpiry(t *testing.T) {
	req := require.New(t)
	token, err := NewIssuer(secret, "sketch").Issue("bob", 0)
	req.NoError(err)

	user, err := NewAuthenticator(secret).Authenticate(token)
	req.NoError(err)
	req.Equal(domain.UserID("bob"), user.ID)
}

func TestAuthenticate_Rejects(t *testing.T) {
	expiredIssuer := NewIssuer(secret, "sketch")
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.Issue("alice", time.Hour)
	require.NoError(t, err)

	foreign, err := NewIssuer("another-secret", "sketch").Issue("alice", time.Hour)
	require.NoError(t, err)

	noClaim, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte(secret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Missing token", ""},
		{"Blank token", "   "},
		{"Malformed token", "not-a-jwt"},
		{"Bad signature", foreign},
		{"Expired token", expired},
		{"Missing identity claim", noClaim},
		{"Unsigned token", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			user, err := NewAuthenticator(secret).Authenticate(tt.token)
			req.Nil(user)
			req.ErrorIs(err, ErrInvalidToken)
		})
	}
}

func TestAuthenticate_EmptySecretRejectsEverything(t *testing.T) {
	req := require.New(t)
	token, err := NewIssuer(secret, "sketch").Issue("alice", time.Hour)
	req.NoError(err)

	_, err = NewAuthenticator("").Authenticate(token)
	req.ErrorIs(err, ErrInvalidToken)
	req.ErrorIs(err, ErrNoSecret)
}

func TestAuthenticate_Clock(t *testing.T) {
	req := require.New(t)
	token, err := NewIssuer(secret, "sketch").Issue("alice", time.Minute)
	req.NoError(err)

	later := NewAuthenticator(secret).withClock(func() time.Time { return time.Now().Add(time.Hour) })
	_, err = later.Authenticate(token)
	req.ErrorIs(err, ErrInvalidToken)
	req.ErrorIs(err, jwt.ErrTokenExpired)
}

func TestIssue_EmptySecret(t *testing.T) {
	_, err := NewIssuer("", "sketch").Issue("alice", time.Hour)
	require.ErrorIs(t, err, ErrNoSecret)
}
