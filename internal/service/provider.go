package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/samber/oops"
)

// DefaultGoogleJWKSURL publishes the keys Google signs ID tokens with.
const DefaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

var (
	ErrProviderToken      = errors.New("invalid provider token")
	ErrProviderUnverified = errors.New("provider email not verified")
)

// ProviderProfile is the identity asserted by a verified ID token.
type ProviderProfile struct {
	Subject string
	Email   string
	Name    string
}

// ProviderVerifier checks a third-party ID token.
type ProviderVerifier interface {
	Verify(ctx context.Context, idToken string) (ProviderProfile, error)
}

// KeySource returns the current signing keys of a provider.
type KeySource interface {
	Keys(ctx context.Context) (jose.JSONWebKeySet, error)
}

// GoogleVerifier validates Google ID tokens against the published JWKS
// and the configured client id.
type GoogleVerifier struct {
	ClientID string
	Keys     KeySource
	Now      func() time.Time
}

func NewGoogleVerifier(clientID, jwksURL string) *GoogleVerifier {
	if jwksURL == "" {
		jwksURL = DefaultGoogleJWKSURL
	}
	return &GoogleVerifier{
		ClientID: clientID,
		Keys:     NewRemoteKeySet(jwksURL, time.Hour),
		Now:      time.Now,
	}
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (ProviderProfile, error) {
	tok, err := jwt.ParseSigned(idToken, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("%w: %v", ErrProviderToken, err)
	}
	if len(tok.Headers) == 0 || tok.Headers[0].KeyID == "" {
		return ProviderProfile{}, fmt.Errorf("%w: missing kid", ErrProviderToken)
	}
	set, err := v.Keys.Keys(ctx)
	if err != nil {
		return ProviderProfile{}, err
	}
	keys := set.Key(tok.Headers[0].KeyID)
	if len(keys) == 0 {
		return ProviderProfile{}, fmt.Errorf("%w: unknown kid %q", ErrProviderToken, tok.Headers[0].KeyID)
	}

	var std jwt.Claims
	var extra googleClaims
	if err := tok.Claims(keys[0].Key, &std, &extra); err != nil {
		return ProviderProfile{}, fmt.Errorf("%w: %v", ErrProviderToken, err)
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	exp := jwt.Expected{AnyAudience: jwt.Audience{v.ClientID}, Time: now()}
	if err := std.ValidateWithLeeway(exp, time.Minute); err != nil {
		return ProviderProfile{}, fmt.Errorf("%w: %v", ErrProviderToken, err)
	}
	if !knownIssuer(std.Issuer) {
		return ProviderProfile{}, fmt.Errorf("%w: issuer %q", ErrProviderToken, std.Issuer)
	}
	if extra.Email == "" || !truthy(extra.EmailVerified) {
		return ProviderProfile{}, ErrProviderUnverified
	}
	return ProviderProfile{Subject: std.Subject, Email: extra.Email, Name: extra.Name}, nil
}

func knownIssuer(iss string) bool {
	for _, want := range googleIssuers {
		if iss == want {
			return true
		}
	}
	return false
}

// truthy accepts both the boolean and the string form of email_verified.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	}
	return false
}

// RemoteKeySet fetches a JWKS document over HTTP and caches it for TTL.
type RemoteKeySet struct {
	URL    string
	TTL    time.Duration
	Client *http.Client

	mu      sync.Mutex
	set     jose.JSONWebKeySet
	fetched time.Time
}

func NewRemoteKeySet(url string, ttl time.Duration) *RemoteKeySet {
	return &RemoteKeySet{URL: url, TTL: ttl, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (r *RemoteKeySet) Keys(ctx context.Context) (jose.JSONWebKeySet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.set.Keys) > 0 && time.Since(r.fetched) < r.TTL {
		return r.set, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return jose.JSONWebKeySet{}, oops.In("provider").Code("JWKS_FETCH").Wrap(err)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return jose.JSONWebKeySet{}, oops.In("provider").Code("JWKS_FETCH").With("url", r.URL).Wrap(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return jose.JSONWebKeySet{}, oops.In("provider").Code("JWKS_FETCH").With("url", r.URL).
			Errorf("unexpected status %d", resp.StatusCode)
	}
	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return jose.JSONWebKeySet{}, oops.In("provider").Code("JWKS_DECODE").With("url", r.URL).Wrap(err)
	}
	r.set = set
	r.fetched = time.Now()
	return set, nil
}

// StaticKeySet serves a fixed key set.
type StaticKeySet struct {
	Set jose.JSONWebKeySet
}

func (s StaticKeySet) Keys(context.Context) (jose.JSONWebKeySet, error) {
	return s.Set, nil
}
