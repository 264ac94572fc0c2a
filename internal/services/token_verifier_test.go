package services

import (
	"testing"
	"time"

	"github.com/braindumpster/backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "unit-test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHMACVerifierAcceptsValidToken(t *testing.T) {
	v := NewHMACTokenVerifier(&config.Config{JWTSecret: testJWTSecret})
	raw := signedToken(t, testJWTSecret, jwt.MapClaims{
		"sub":   "user-42",
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	identity, err := v.Authenticate("Bearer " + raw)
	require.NoError(t, err)
	assert.Equal(t, "user-42", identity.UserID)
	assert.Equal(t, "user@example.com", identity.Email)
}

func TestHMACVerifierRejectsBadCredentials(t *testing.T) {
	v := NewHMACTokenVerifier(&config.Config{JWTSecret: testJWTSecret})
	valid := signedToken(t, testJWTSecret, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	cases := map[string]string{
		"no bearer prefix": valid,
		"garbage token":    "Bearer not.a.jwt",
		"wrong secret": "Bearer " + signedToken(t, "other-secret", jwt.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(time.Hour).Unix(),
		}),
		"expired": "Bearer " + signedToken(t, testJWTSecret, jwt.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}),
		"missing subject": "Bearer " + signedToken(t, testJWTSecret, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Authenticate(header)
			assert.Error(t, err)
		})
	}
}

func TestHMACVerifierRejectsUnsignedToken(t *testing.T) {
	v := NewHMACTokenVerifier(&config.Config{JWTSecret: testJWTSecret})

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Authenticate("Bearer " + raw)
	assert.Error(t, err)
}
