package services

import (
	"strings"

	"github.com/braindumpster/backend/internal/config"
	"github.com/braindumpster/backend/internal/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// HMACTokenVerifier authenticates HS256 access tokens issued by this
// backend's AuthService.
type HMACTokenVerifier struct {
	secret []byte
}

func NewHMACTokenVerifier(cfg *config.Config) *HMACTokenVerifier {
	return &HMACTokenVerifier{secret: []byte(cfg.JWTSecret)}
}

func (v *HMACTokenVerifier) Authenticate(header string) (*middleware.Identity, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, middleware.ErrInvalidCredential
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, middleware.ErrInvalidCredential
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, middleware.ErrInvalidCredential
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, middleware.ErrInvalidCredential
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, middleware.ErrInvalidCredential
	}
	email, _ := claims["email"].(string)

	return &middleware.Identity{UserID: sub, Email: email}, nil
}
