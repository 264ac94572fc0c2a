package handlers

import (
	"crypto/subtle"
	"log/slog"

	"github.com/braindumpster/backend/internal/config"
	"github.com/braindumpster/backend/internal/dto"
	"github.com/braindumpster/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	expectedAuth        string
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{
		subscriptionService: subscriptionService,
		expectedAuth:        cfg.AppStoreWebhookAuth,
	}
}

// HandleAppStore receives Apple's server-to-server subscription
// notifications, gated by a shared auth header.
func (h *WebhookHandler) HandleAppStore(c *fiber.Ctx) error {
	if h.expectedAuth == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhooks not configured",
		})
	}

	authHeader := c.Get("Authorization")
	if subtle.ConstantTimeCompare([]byte(authHeader), []byte(h.expectedAuth)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var notification dto.AppStoreNotification
	if err := c.BodyParser(&notification); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid notification payload",
		})
	}

	if err := h.subscriptionService.HandleAppStoreNotification(&notification); err != nil {
		slog.Error("app store notification processing failed", "type", notification.NotificationType, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process notification",
		})
	}

	slog.Info("app store notification processed", "type", notification.NotificationType)
	return c.JSON(fiber.Map{"received": true})
}
