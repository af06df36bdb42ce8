package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "client-123.apps.googleusercontent.com"

func signIDToken(t *testing.T, key *rsa.PrivateKey, kid string, std jwt.Claims, extra map[string]any) string {
	t.Helper()
	opts := (&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", kid)
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, opts)
	require.NoError(t, err)
	raw, err := jwt.Signed(signer).Claims(std).Claims(extra).Serialize()
	require.NoError(t, err)
	return raw
}

func TestGoogleVerifier(t *testing.T) {
	key := testKey(t)
	keys := StaticKeySet{Set: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: &key.PublicKey, KeyID: "k1", Algorithm: "RS256", Use: "sig"}}}}
	v := &GoogleVerifier{ClientID: testClientID, Keys: keys, Now: func() time.Time { return clock }}
	ctx := context.Background()

	good := jwt.Claims{
		Issuer:   "https://accounts.google.com",
		Subject:  "1180",
		Audience: jwt.Audience{testClientID},
		IssuedAt: jwt.NewNumericDate(clock.Add(-time.Minute)),
		Expiry:   jwt.NewNumericDate(clock.Add(time.Hour)),
	}
	extra := map[string]any{"email": "asha@example.com", "email_verified": true, "name": "Asha Rao"}

	profile, err := v.Verify(ctx, signIDToken(t, key, "k1", good, extra))
	require.NoError(t, err)
	assert.Equal(t, ProviderProfile{Subject: "1180", Email: "asha@example.com", Name: "Asha Rao"}, profile)

	t.Run("string email_verified", func(t *testing.T) {
		e := map[string]any{"email": "asha@example.com", "email_verified": "true"}
		_, err := v.Verify(ctx, signIDToken(t, key, "k1", good, e))
		require.NoError(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := good
		c.Audience = jwt.Audience{"someone-else"}
		_, err := v.Verify(ctx, signIDToken(t, key, "k1", c, extra))
		require.ErrorIs(t, err, ErrProviderToken)
	})

	t.Run("expired", func(t *testing.T) {
		c := good
		c.Expiry = jwt.NewNumericDate(clock.Add(-2 * time.Minute))
		_, err := v.Verify(ctx, signIDToken(t, key, "k1", c, extra))
		require.ErrorIs(t, err, ErrProviderToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		c := good
		c.Issuer = "https://evil.example"
		_, err := v.Verify(ctx, signIDToken(t, key, "k1", c, extra))
		require.ErrorIs(t, err, ErrProviderToken)
	})

	t.Run("unknown kid", func(t *testing.T) {
		_, err := v.Verify(ctx, signIDToken(t, key, "k2", good, extra))
		require.ErrorIs(t, err, ErrProviderToken)
	})

	t.Run("signed by another key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = v.Verify(ctx, signIDToken(t, other, "k1", good, extra))
		require.ErrorIs(t, err, ErrProviderToken)
	})

	t.Run("unverified email", func(t *testing.T) {
		e := map[string]any{"email": "asha@example.com", "email_verified": false}
		_, err := v.Verify(ctx, signIDToken(t, key, "k1", good, e))
		require.ErrorIs(t, err, ErrProviderUnverified)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(ctx, "not-a-token")
		require.ErrorIs(t, err, ErrProviderToken)
	})
}

func TestRemoteKeySetCaches(t *testing.T) {
	key := testKey(t)
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: &key.PublicKey, KeyID: "k1", Algorithm: "RS256", Use: "sig"}}}
	body, err := set.Keys[0].MarshalJSON()
	require.NoError(t, err)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keys":[` + string(body) + `]}`))
	}))
	defer srv.Close()

	rs := NewRemoteKeySet(srv.URL, time.Hour)
	for i := 0; i < 3; i++ {
		got, err := rs.Keys(context.Background())
		require.NoError(t, err)
		require.Len(t, got.Key("k1"), 1)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestRemoteKeySetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemoteKeySet(srv.URL, time.Hour).Keys(context.Background())
	require.Error(t, err)
}
