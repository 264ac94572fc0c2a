package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/braindumpster/backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookApp(authSecret string) *fiber.App {
	h := NewWebhookHandler(nil, &config.Config{AppStoreWebhookAuth: authSecret})
	app := fiber.New()
	app.Post("/api/webhooks/appstore", h.HandleAppStore)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, auth string, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/appstore", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	return resp
}

func TestWebhookUnconfiguredIsNotFound(t *testing.T) {
	app := webhookApp("")

	resp := postWebhook(t, app, "whatever", `{}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestWebhookRejectsBadAuth(t *testing.T) {
	app := webhookApp("shared-secret")

	assert.Equal(t, fiber.StatusUnauthorized, postWebhook(t, app, "", `{}`).StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, postWebhook(t, app, "wrong-secret", `{}`).StatusCode)
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	app := webhookApp("shared-secret")

	resp := postWebhook(t, app, "shared-secret", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
