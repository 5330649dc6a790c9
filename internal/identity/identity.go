package identity

import (
	"context"
	"errors"
	"fmt"
)

// ErrAuthenticationFailed covers missing, malformed, expired and unverifiable tokens.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Identity is the verified caller. Subject is the owner id of every book the caller writes.
type Identity struct {
	Subject     string
	PhoneNumber string
	Email       string
	Provider    string
}

// Verifier checks a bearer token against an identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

func failed(err error) error {
	return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
}
