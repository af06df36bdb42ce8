package utils // package utils provides credential hashing, token signing and OTP helpers

import (
	"crypto/rand"   // key generation
	"crypto/rsa"    // RS256 key material
	"crypto/x509"   // PEM payload encoding
	"encoding/pem"  // PEM armour for key files
	"errors"        // sentinel errors
	"fmt"           // error wrapping
	"os"            // reading key files
	"time"          // expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

const (
	// DefaultIssuer is the iss claim written into every access token.
	DefaultIssuer = "myapp"
	// DefaultAccessTTL is how long an access token stays valid.
	DefaultAccessTTL = 4 * time.Hour
)

// ErrSigningDisabled is returned by Sign when the service was built from a
// public key only.
var ErrSigningDisabled = errors.New("token service has no private key")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens travel in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the payload of an access token.  User carries the account id
// and Role its role code; both are also what the auth middleware exposes
// to handlers.  The registered claims hold sub, iss, iat and exp.
type Claims struct {
	User string `json:"user"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies RS256 access tokens.  Signing needs the
// private key; verification only needs the public key so a verifier can be
// handed to components that must never mint tokens.
type TokenService struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	issuer  string
	ttl     time.Duration
	keyID   string
	now     func() time.Time
}

// NewTokenService builds a service able to sign and verify.  An empty
// issuer or non-positive ttl falls back to the defaults.
func NewTokenService(private *rsa.PrivateKey, public *rsa.PublicKey, issuer string, ttl time.Duration) (*TokenService, error) {
	if public == nil && private != nil {
		public = &private.PublicKey
	}
	if public == nil {
		return nil, errors.New("token service requires a public key")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	kid, err := KeyThumbprint(public)
	if err != nil {
		return nil, err
	}
	return &TokenService{
		private: private,
		public:  public,
		issuer:  issuer,
		ttl:     ttl,
		keyID:   kid,
		now:     time.Now,
	}, nil
}

// NewTokenVerifier builds a verify-only service from a public key.
func NewTokenVerifier(public *rsa.PublicKey, issuer string) (*TokenService, error) {
	return NewTokenService(nil, public, issuer, 0)
}

// LoadTokenService reads PEM encoded keys from disk.  privatePath may be
// empty, in which case the returned service can only verify.
func LoadTokenService(privatePath, publicPath, issuer string, ttl time.Duration) (*TokenService, error) {
	var priv *rsa.PrivateKey
	if privatePath != "" {
		raw, err := os.ReadFile(privatePath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		if priv, err = jwt.ParseRSAPrivateKeyFromPEM(raw); err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
	}
	var pub *rsa.PublicKey
	if publicPath != "" {
		raw, err := os.ReadFile(publicPath)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		if pub, err = jwt.ParseRSAPublicKeyFromPEM(raw); err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
	}
	return NewTokenService(priv, pub, issuer, ttl)
}

// WithClock replaces the time source used for iat/exp and for expiry
// checks.  It returns the receiver for chaining.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// Issuer returns the iss claim enforced by the service.
func (s *TokenService) Issuer() string { return s.issuer }

// KeyID returns the kid header written into signed tokens.
func (s *TokenService) KeyID() string { return s.keyID }

// PublicKey returns the verification key.
func (s *TokenService) PublicKey() *rsa.PublicKey { return s.public }

// Sign builds and signs an RS256 JWT for an account.  The token embeds
// the account id (as both sub and user) and the role, expiring ttl after
// issuance.
func (s *TokenService) Sign(subject, role string) (AccessToken, error) {
	if s.private == nil {
		return AccessToken{}, ErrSigningDisabled
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		User: subject,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.keyID
	signed, err := t.SignedString(s.private)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify parses raw and reports whether it is a valid token issued by
// this service.  Expired, malformed, wrongly signed or foreign-issuer
// tokens all yield ok == false; callers treat that as unauthenticated.
func (s *TokenService) Verify(raw string) (Claims, bool) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.public, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid || claims.User == "" {
		return Claims{}, false
	}
	return claims, true
}

// GenerateRSAKeyPair creates a new RSA key pair and returns it PEM
// encoded: PKCS#1 for the private key, PKIX for the public key.
func GenerateRSAKeyPair(bits int) (privatePEM, publicPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}
