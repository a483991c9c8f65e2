package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testTokens() *Tokens {
	return NewTokens(TokenSettings{
		Secret:   "test-secret",
		Issuer:   "project-management-api",
		Audience: "project-management-clients",
		TTL:      time.Hour,
	})
}

func TestIssueAndValidateToken(t *testing.T) {
	tokens := testTokens()
	token, err := tokens.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := tokens.Validate(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), userID)
}

func TestValidateToken_Invalid(t *testing.T) {
	_, err := testTokens().Validate("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := testTokens().Issue(1)
	require.NoError(t, err)

	other := NewTokens(TokenSettings{Secret: "other", Issuer: "project-management-api", Audience: "project-management-clients"})
	_, err = other.Validate(token)
	require.Error(t, err)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	token, err := testTokens().Issue(1)
	require.NoError(t, err)

	other := NewTokens(TokenSettings{Secret: "test-secret", Issuer: "project-management-api", Audience: "someone-else"})
	_, err = other.Validate(token)
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	tokens := testTokens()
	base := time.Now()
	now = func() time.Time { return base }
	t.Cleanup(func() { now = time.Now })

	token, err := tokens.Issue(7)
	require.NoError(t, err)

	base = base.Add(2 * time.Hour)
	_, err = tokens.Validate(token)
	require.Error(t, err)
}

func TestPasswordRoundTrip(t *testing.T) {
	digest, err := HashPassword("dev123")
	require.NoError(t, err)
	require.NotEqual(t, "dev123", digest)
	require.True(t, VerifyPassword("dev123", digest))
	require.False(t, VerifyPassword("wrong", digest))
}
