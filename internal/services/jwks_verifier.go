package services

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/braindumpster/backend/internal/config"
	"github.com/braindumpster/backend/internal/middleware"
)

// JWKSTokenVerifier authenticates RS256 identity tokens (Firebase,
// Sign in with Apple) against a remote JWKS endpoint. Keys are cached
// for 24 hours and refreshed on unknown key IDs.
type JWKSTokenVerifier struct {
	httpClient *http.Client
	jwksURL    string
	issuer     string
	audience   string

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

type jwksDocument struct {
	Keys []jsonWebKey `json:"keys"`
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type identityTokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

type identityTokenClaims struct {
	Iss   string `json:"iss"`
	Sub   string `json:"sub"`
	Aud   string `json:"aud"`
	Exp   int64  `json:"exp"`
	Email string `json:"email"`
}

func NewJWKSTokenVerifier(cfg *config.Config) *JWKSTokenVerifier {
	return &JWKSTokenVerifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		jwksURL:    cfg.IdentityJWKSURL,
		issuer:     cfg.IdentityIssuer,
		audience:   cfg.IdentityAudience,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

func (v *JWKSTokenVerifier) Authenticate(header string) (*middleware.Identity, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, middleware.ErrInvalidCredential
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid token format")
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}

	var tokenHeader identityTokenHeader
	if err := json.Unmarshal(headerBytes, &tokenHeader); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	if tokenHeader.Alg != "RS256" {
		return nil, fmt.Errorf("unsupported algorithm: %s", tokenHeader.Alg)
	}

	pubKey, err := v.publicKey(tokenHeader.Kid)
	if err != nil {
		return nil, err
	}

	claimsBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}

	var claims identityTokenClaims
	if err := json.Unmarshal(claimsBytes, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	if claims.Iss != v.issuer {
		return nil, fmt.Errorf("invalid issuer: %s", claims.Iss)
	}
	if claims.Aud != v.audience {
		return nil, fmt.Errorf("invalid audience: %s", claims.Aud)
	}
	if time.Now().Unix() > claims.Exp {
		return nil, middleware.ErrInvalidCredential
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", err)
	}

	hashed := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(pubKey, crypto.SHA256, hashed[:], signature); err != nil {
		return nil, middleware.ErrInvalidCredential
	}

	return &middleware.Identity{UserID: claims.Sub, Email: claims.Email}, nil
}

func (v *JWKSTokenVerifier) publicKey(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	if key, ok := v.keys[kid]; ok && time.Now().Before(v.expiresAt) {
		v.mu.RUnlock()
		return key, nil
	}
	v.mu.RUnlock()

	if err := v.refreshKeys(); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("public key with kid %s not found", kid)
}

func (v *JWKSTokenVerifier) refreshKeys() error {
	resp, err := v.httpClient.Get(v.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.keys = make(map[string]*rsa.PublicKey)
	for _, jwk := range doc.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(jwk.N, jwk.E)
		if err != nil {
			continue
		}
		v.keys[jwk.Kid] = pubKey
	}
	v.expiresAt = time.Now().Add(24 * time.Hour)
	return nil
}

func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
