package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken("s3cret", "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID())
	assert.Equal(t, "JWT", claims.Source())
}

func TestParseToken_Rejects(t *testing.T) {
	expired, err := IssueToken("s3cret", "alice", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other", "alice", time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"garbage":    "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken("s3cret", raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestUserClaimsContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetUserClaims(ctx))

	ctx = SetUserClaims(ctx, &DemoClaims{DemoUserID: "demo"})
	claims := GetUserClaims(ctx)
	require.NotNil(t, claims)
	assert.Equal(t, "demo", claims.UserID())
	assert.Equal(t, "DEMO", claims.Source())
}
