package provider

import (
	"crypto"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
)

// TokenVerifier checks ID token signature, issuer, audience and expiry.
type TokenVerifier struct {
	key     crypto.PublicKey
	methods []string
	issuer  string
	aud     string
}

type idClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// NewTokenVerifier parses a PEM public key. The key type selects the
// accepted signing methods.
func NewTokenVerifier(publicKeyPEM, issuer, audience string) (*TokenVerifier, error) {
	raw := []byte(strings.TrimSpace(publicKeyPEM))
	if len(raw) == 0 {
		return nil, errors.New("provider public key is required")
	}
	v := &TokenVerifier{issuer: strings.TrimSpace(issuer), aud: strings.TrimSpace(audience)}
	if key, err := jwt.ParseRSAPublicKeyFromPEM(raw); err == nil {
		v.key, v.methods = key, []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512"}
		return v, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(raw); err == nil {
		v.key, v.methods = key, []string{"ES256", "ES384", "ES512"}
		return v, nil
	}
	if key, err := jwt.ParseEdPublicKeyFromPEM(raw); err == nil {
		v.key, v.methods = key, []string{"EdDSA"}
		return v, nil
	}
	return nil, errors.New("provider public key is not an RSA, ECDSA or Ed25519 PEM key")
}

// Verify returns the user named by a valid token.
func (v *TokenVerifier) Verify(token string) (auth.User, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.aud != "" {
		opts = append(opts, jwt.WithAudience(v.aud))
	}
	claims := &idClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return v.key, nil }, opts...)
	if err != nil {
		return auth.User{}, fmt.Errorf("verify id token: %w", err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return auth.User{}, errors.New("verify id token: subject is required")
	}
	return auth.User{
		ID:      subject,
		Email:   strings.TrimSpace(claims.Email),
		Name:    strings.TrimSpace(claims.Name),
		Picture: strings.TrimSpace(claims.Picture),
	}, nil
}
