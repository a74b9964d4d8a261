package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcare/storefront/internal/catalog"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	raw, issued, err := issuer.Issue(Principal{Subject: "u-1", Role: RoleAdmin, Email: "a@glow.test"})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.TokenID)

	p, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.Subject)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.Equal(t, issued.TokenID, p.TokenID)
	assert.Equal(t, catalog.AccessAdmin, p.AccessLevel())
	assert.WithinDuration(t, issued.ExpiresAt, p.ExpiresAt, time.Second)
}

func TestTokenDefaultTTL(t *testing.T) {
	issuer, err := NewTokenIssuer("s", 0)
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	_, issued, err := issuer.Issue(Principal{Subject: "u", Role: RoleUser})
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), issued.ExpiresAt)
}

func TestTokenRejectsExpired(t *testing.T) {
	issuer, err := NewTokenIssuer("s", time.Minute)
	require.NoError(t, err)
	now := time.Now()
	issuer.now = func() time.Time { return now }
	raw, _, err := issuer.Issue(Principal{Subject: "u", Role: RoleUser})
	require.NoError(t, err)

	issuer.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsForeignSecretAndAlgorithm(t *testing.T) {
	issuer, err := NewTokenIssuer("right", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("wrong", time.Hour)
	require.NoError(t, err)

	raw, _, err := other.Issue(Principal{Subject: "u", Role: RoleAdmin})
	require.NoError(t, err)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u", "role": "admin", "jti": "x", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsUnknownRole(t *testing.T) {
	issuer, err := NewTokenIssuer("s", time.Hour)
	require.NoError(t, err)
	raw, _, err := issuer.Issue(Principal{Subject: "u", Role: Role("root")})
	require.NoError(t, err)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestPrincipalAccessLevel(t *testing.T) {
	assert.Equal(t, catalog.AccessPublic, Principal{Role: RoleUser}.AccessLevel())
	assert.Equal(t, catalog.AccessPublic, Principal{}.AccessLevel())
}
