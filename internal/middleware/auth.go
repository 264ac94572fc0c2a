package middleware

import (
	"errors"

	"github.com/braindumpster/backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// Identity is the authenticated caller established by a CredentialVerifier.
type Identity struct {
	UserID string
	Email  string
}

var ErrInvalidCredential = errors.New("invalid or expired credential")

// CredentialVerifier authenticates the raw Authorization header value.
// Implementations decide the credential format (backend-issued JWT,
// Firebase/Apple identity token, ...).
type CredentialVerifier interface {
	Authenticate(header string) (*Identity, error)
}

// Protected rejects requests whose Authorization header the verifier
// does not accept, and stores the resulting Identity in context locals.
func Protected(verifier CredentialVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Missing authorization header",
			})
		}

		identity, err := verifier.Authenticate(header)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized: invalid or expired token",
			})
		}

		c.Locals("identity", identity)
		return c.Next()
	}
}

// GetIdentity extracts the authenticated identity from context locals.
func GetIdentity(c *fiber.Ctx) *Identity {
	if id, ok := c.Locals("identity").(*Identity); ok {
		return id
	}
	return nil
}
