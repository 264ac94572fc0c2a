package handlers

import (
	"errors"
	"log/slog"

	"github.com/braindumpster/backend/internal/dto"
	"github.com/braindumpster/backend/internal/middleware"
	"github.com/braindumpster/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ReceiptHandler struct {
	receiptService      *services.ReceiptService
	subscriptionService *services.SubscriptionService
}

func NewReceiptHandler(receiptService *services.ReceiptService, subscriptionService *services.SubscriptionService) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService:      receiptService,
		subscriptionService: subscriptionService,
	}
}

// VerifyReceipt handles POST /api/verify-receipt. Error-to-status
// mapping: malformed input, bundle mismatch and Apple rejections are
// 400, an Apple timeout is 504, anything unexpected is 500. Both
// premium and non-premium resolutions are 200.
func (h *ReceiptHandler) VerifyReceipt(c *fiber.Ctx) error {
	var req dto.VerifyReceiptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.VerifyReceiptResponse{
			Success: false, IsPremium: false, Message: "Missing request body",
		})
	}

	// The persisted entitlement belongs to the authenticated caller;
	// a client-supplied userId is only honored when it matches.
	if identity := middleware.GetIdentity(c); identity != nil {
		if req.UserID != "" && req.UserID != identity.UserID {
			slog.Warn("request userId does not match authenticated identity", "user_id", identity.UserID)
		}
		req.UserID = identity.UserID
	}

	resp, err := h.receiptService.VerifyReceipt(c.UserContext(), &req)
	if err != nil {
		return writeVerifyError(c, err)
	}

	return c.JSON(resp)
}

func writeVerifyError(c *fiber.Ctx, err error) error {
	var authorityErr *services.AuthorityError

	switch {
	case errors.Is(err, services.ErrReceiptMissing):
		return c.Status(fiber.StatusBadRequest).JSON(dto.VerifyReceiptResponse{
			Success: false, IsPremium: false, Message: "Missing receipt data",
		})
	case errors.Is(err, services.ErrBundleMismatch):
		return c.Status(fiber.StatusBadRequest).JSON(dto.VerifyReceiptResponse{
			Success: false, IsPremium: false, Message: "Invalid bundle ID",
		})
	case errors.Is(err, services.ErrVerifyTimeout):
		return c.Status(fiber.StatusGatewayTimeout).JSON(dto.VerifyReceiptResponse{
			Success: false, IsPremium: false, Message: "Request timed out",
		})
	case errors.As(err, &authorityErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.VerifyReceiptResponse{
			Success: false, IsPremium: false, Message: authorityErr.Message,
		})
	default:
		slog.Error("receipt verification failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.VerifyReceiptResponse{
			Success: false, IsPremium: false, Message: "Internal server error",
		})
	}
}

// SubscriptionStatus handles GET /api/subscription/status for the
// authenticated user.
func (h *ReceiptHandler) SubscriptionStatus(c *fiber.Ctx) error {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	sub, err := h.subscriptionService.Status(identity.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNoSubscription) {
			return c.JSON(dto.SubscriptionStatusResponse{IsPremium: false})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.SubscriptionStatusResponse{
		IsPremium:   sub.IsPremium,
		ProductID:   sub.ProductID,
		ExpiresAt:   sub.ExpiresAt,
		Environment: sub.Environment,
		UpdatedAt:   &sub.UpdatedAt,
	})
}
