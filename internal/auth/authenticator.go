// Package auth issues and checks user identities: bcrypt password accounts and
// HS256 session tokens.
package auth

import (
	"context"

	"github.com/mmynk/splitwiser/internal/models"
)

var _ Authenticator = (*PasswordAuthenticator)(nil)

// Authenticator registers and authenticates users. The credential format is up
// to the implementation.
type Authenticator interface {
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)
	// Authenticate returns the user whose credential matches, or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)
	ValidateCredential(credential string) error
}
