package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	ProviderFirebase = "firebase"

	firebaseCertsURL     = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	defaultCertsMaxAge   = time.Hour

	// minRefreshInterval bounds certificate downloads triggered by unknown kids.
	minRefreshInterval = time.Minute
)

// FirebaseVerifier verifies Firebase Authentication ID tokens (RS256, signed by the
// securetoken service account).
type FirebaseVerifier struct {
	projectID  string
	certsURL   string
	httpClient *http.Client
	now        func() time.Time

	fetches singleflight.Group

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	expires   time.Time
	lastFetch time.Time
}

type FirebaseOption func(*FirebaseVerifier)

func WithCertsURL(u string) FirebaseOption {
	return func(v *FirebaseVerifier) { v.certsURL = u }
}

func WithCertsHTTPClient(hc *http.Client) FirebaseOption {
	return func(v *FirebaseVerifier) { v.httpClient = hc }
}

func NewFirebaseVerifier(projectID string, opts ...FirebaseOption) *FirebaseVerifier {
	v := &FirebaseVerifier{
		projectID:  projectID,
		certsURL:   firebaseCertsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, failed(errors.New("empty token"))
	}

	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(firebaseIssuerPrefix+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Identity{}, failed(err)
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || claims.Subject == "" {
		return Identity{}, failed(jwt.ErrTokenInvalidClaims)
	}
	return Identity{
		Subject:     claims.Subject,
		PhoneNumber: claims.PhoneNumber,
		Email:       claims.Email,
		Provider:    ProviderFirebase,
	}, nil
}

// key returns the signing key for kid. The certificate set is downloaded when it is stale
// or does not know kid, at most once per minRefreshInterval. A stale key is still served
// while a refresh is throttled.
func (v *FirebaseVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	k, known, fresh, throttled := v.lookup(kid)
	if known && (fresh || throttled) {
		return k, nil
	}
	if throttled {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}

	if _, err, _ := v.fetches.Do("certs", func() (any, error) {
		return nil, v.refresh(context.WithoutCancel(ctx))
	}); err != nil {
		return nil, err
	}

	if k, known, _, _ := v.lookup(kid); known {
		return k, nil
	}
	return nil, fmt.Errorf("unknown kid %q", kid)
}

func (v *FirebaseVerifier) lookup(kid string) (k *rsa.PublicKey, known, fresh, throttled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	k, known = v.keys[kid]
	return k, known, now.Before(v.expires), now.Before(v.lastFetch.Add(minRefreshInterval))
}

// refresh downloads the certificate set outside v.mu and swaps it in. Failed attempts
// count toward the refresh interval too.
func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	if v.now().Before(v.lastFetch.Add(minRefreshInterval)) {
		v.mu.Unlock()
		return nil
	}
	v.lastFetch = v.now()
	v.mu.Unlock()

	keys, ttl, err := v.download(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.keys = keys
	v.expires = v.now().Add(ttl)
	v.mu.Unlock()
	return nil
}

func (v *FirebaseVerifier) download(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch certs: unexpected status code: %d", resp.StatusCode)
	}

	var pems map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pems); err != nil {
		return nil, 0, fmt.Errorf("decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, pem := range pems {
		k, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, 0, fmt.Errorf("parse cert %s: %w", kid, err)
		}
		keys[kid] = k
	}
	return keys, maxAge(resp.Header.Get("Cache-Control")), nil
}

func maxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return defaultCertsMaxAge
}
