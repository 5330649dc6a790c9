package identity

import "fmt"

// Settings selects and configures a Verifier.
type Settings struct {
	Provider          string
	FirebaseProjectID string
	GoogleClientID    string
	Secret            string
}

func New(s Settings) (Verifier, error) {
	switch s.Provider {
	case ProviderFirebase:
		return NewFirebaseVerifier(s.FirebaseProjectID), nil
	case ProviderGoogle:
		return NewGoogleVerifier(s.GoogleClientID), nil
	case ProviderHMAC:
		return NewHMACVerifier(s.Secret), nil
	default:
		return nil, fmt.Errorf("identity: unknown provider %q", s.Provider)
	}
}
