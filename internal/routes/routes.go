package routes

import (
	"time"

	"github.com/braindumpster/backend/internal/handlers"
	"github.com/braindumpster/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	verifier middleware.CredentialVerifier,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	receiptHandler *handlers.ReceiptHandler,
	webhookHandler *handlers.WebhookHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health (public)
	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected routes — the receipt flow assumes an already-authorized
	// caller, established by the credential verifier.
	api.Post("/auth/logout", middleware.Protected(verifier), authHandler.Logout)
	api.Post("/verify-receipt", middleware.Protected(verifier), receiptHandler.VerifyReceipt)
	api.Get("/subscription/status", middleware.Protected(verifier), receiptHandler.SubscriptionStatus)

	// Webhooks — shared-secret auth, no user credential
	api.Post("/webhooks/appstore", webhookHandler.HandleAppStore)
}
