package identity

import (
	"context"
	"errors"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

const ProviderGoogle = "google"

// GoogleVerifier verifies Google Sign-In ID tokens issued for clientID.
type GoogleVerifier struct {
	clientID string
	verify   func(token string, audience []string) error
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	v := googleAuthIDTokenVerifier.Verifier{}
	return &GoogleVerifier{clientID: clientID, verify: v.VerifyIDToken}
}

// Verify runs the blocking signature check off the request goroutine so ctx still bounds it.
func (g *GoogleVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, failed(errors.New("empty token"))
	}

	done := make(chan error, 1)
	go func() { done <- g.verify(token, []string{g.clientID}) }()

	select {
	case <-ctx.Done():
		return Identity{}, failed(ctx.Err())
	case err := <-done:
		if err != nil {
			return Identity{}, failed(err)
		}
	}

	claimSet, err := googleAuthIDTokenVerifier.Decode(token)
	if err != nil {
		return Identity{}, failed(err)
	}
	if claimSet.Sub == "" {
		return Identity{}, failed(errors.New("token has no subject"))
	}
	return Identity{Subject: claimSet.Sub, Email: claimSet.Email, Provider: ProviderGoogle}, nil
}
