package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newJWTer() *JWTer {
	return &JWTer{
		Secret:   []byte("test-secret"),
		Issuer:   "go-user-admin",
		Audience: "go-user-admin-api",
		TTL:      time.Hour,
	}
}

func TestIssueAndParse(t *testing.T) {
	t.Parallel()

	j := newJWTer()
	tok, err := j.Issue("bob", true)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := j.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "bob", claims.Subject)
	require.True(t, claims.IsAdmin)
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	j := newJWTer()
	tok, err := j.Issue("bob", false)
	require.NoError(t, err)

	other := newJWTer()
	other.Secret = []byte("different")
	_, err = other.Parse(tok)
	require.Error(t, err)
}

func TestParse_WrongIssuerOrAudience(t *testing.T) {
	t.Parallel()

	j := newJWTer()
	tok, err := j.Issue("bob", false)
	require.NoError(t, err)

	badIss := newJWTer()
	badIss.Issuer = "someone-else"
	_, err = badIss.Parse(tok)
	require.Error(t, err)

	badAud := newJWTer()
	badAud.Audience = "another-api"
	_, err = badAud.Parse(tok)
	require.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	j := newJWTer()
	j.TTL = -2 * time.Minute // 超出 60s leeway
	tok, err := j.Issue("bob", false)
	require.NoError(t, err)

	_, err = j.Parse(tok)
	require.Error(t, err)
}
