package auth

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/leduoyang/connect-backend/internal/utils"
)

type fakeCredentialStore map[string]string

func (s fakeCredentialStore) PasswordHash(_ context.Context, userID string) (string, error) {
	h, ok := s[userID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return h, nil
}

func TestVerify(t *testing.T) {
	hash, err := utils.HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	v := NewVerifier(fakeCredentialStore{"u1": hash})

	ctx := context.Background()
	assert.True(t, v.Verify(ctx, "u1", "s3cret"))
	assert.False(t, v.Verify(ctx, "u1", "wrong"))
}

func TestVerifyUnknownUserLooksLikeMismatch(t *testing.T) {
	hash, err := utils.HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	v := NewVerifier(fakeCredentialStore{"u1": hash})

	// Same observable result for a missing user and a bad password.
	assert.Equal(t,
		v.Verify(context.Background(), "nobody", "s3cret"),
		v.Verify(context.Background(), "u1", "wrong"))
}
