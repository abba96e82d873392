package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
)

const testSecret = "test-secret"

func newResolver() *Resolver {
	return NewResolver(config.AuthConfig{JWTSecret: testSecret, Issuer: "juruconnect"})
}

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "juruconnect",
			Subject:   "u-ana",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:   "u-ana",
		Username: "ana",
	}
}

func TestResolveValidToken(t *testing.T) {
	r := newResolver()
	id := r.Resolve(signToken(t, testSecret, validClaims()), "")

	assert.False(t, id.Anonymous)
	assert.Equal(t, "u-ana", id.UserID)
	assert.Equal(t, "ana", id.DisplayName)
	assert.True(t, id.Addressable())
}

func TestResolveEmptyTokenIsAnonymous(t *testing.T) {
	r := newResolver()

	id := r.Resolve("", "")
	assert.True(t, id.Anonymous)
	assert.Empty(t, id.UserID)
	assert.Contains(t, id.DisplayName, "visitante-")
	assert.False(t, id.Addressable())
}

func TestResolveAnonymousKeepsRequestedName(t *testing.T) {
	r := newResolver()

	id := r.Resolve("", "  Maria  ")
	assert.True(t, id.Anonymous)
	assert.Equal(t, "Maria", id.DisplayName)
}

func TestResolveAuthenticatedIgnoresRequestedName(t *testing.T) {
	r := newResolver()

	id := r.Resolve(signToken(t, testSecret, validClaims()), "Impostor")
	assert.Equal(t, "ana", id.DisplayName)
}

func TestResolveBadSignatureDowngradesToAnonymous(t *testing.T) {
	r := newResolver()

	id := r.Resolve(signToken(t, "wrong-secret", validClaims()), "")
	assert.True(t, id.Anonymous)
}

func TestResolveExpiredTokenDowngradesToAnonymous(t *testing.T) {
	r := newResolver()

	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	id := r.Resolve(signToken(t, testSecret, claims), "")
	assert.True(t, id.Anonymous)
}

func TestResolveWrongIssuerDowngradesToAnonymous(t *testing.T) {
	r := newResolver()

	claims := validClaims()
	claims.Issuer = "someone-else"
	id := r.Resolve(signToken(t, testSecret, claims), "")
	assert.True(t, id.Anonymous)
}

func TestResolveFallsBackToSubjectAndUserID(t *testing.T) {
	r := newResolver()

	claims := validClaims()
	claims.UserID = ""
	claims.Username = ""
	id := r.Resolve(signToken(t, testSecret, claims), "")

	assert.False(t, id.Anonymous)
	assert.Equal(t, "u-ana", id.UserID)
	assert.Equal(t, "u-ana", id.DisplayName)
}
