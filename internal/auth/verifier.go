package auth

import (
	"context"

	"github.com/leduoyang/connect-backend/internal/utils"
)

// CredentialStore looks up the stored one-way password hash for a user.
// A missing user is reported through the error; the hash itself never leaves
// the verifier.
type CredentialStore interface {
	PasswordHash(ctx context.Context, userID string) (string, error)
}

// Verifier checks a userID/password pair against stored credentials.
type Verifier struct {
	store CredentialStore
}

func NewVerifier(store CredentialStore) *Verifier {
	return &Verifier{store: store}
}

// Verify returns true iff the presented password matches the stored hash for
// userID. An unknown user and a wrong password both return false with no
// distinction, so the sign-in path cannot be used to probe which user ids
// exist.
func (v *Verifier) Verify(ctx context.Context, userID, password string) bool {
	hash, err := v.store.PasswordHash(ctx, userID)
	if err != nil {
		return false
	}
	return utils.VerifyPassword(hash, password)
}
