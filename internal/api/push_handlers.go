package api

import (
	"database/sql"
	"fmt"
	"time"

	"step26/internal/logger"
	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
)

func SubscribePushHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sub models.PushSubscription
		if err := c.BodyParser(&sub); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Missing subscription fields")
		}

		_, err := db.Exec(
			`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth`,
			currentUserID(c), sub.Endpoint, sub.P256dh, sub.Auth,
		)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

func UnsubscribePushHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Endpoint string `json:"endpoint"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Endpoint == "" {
			return fiber.NewError(fiber.StatusBadRequest, "endpoint is required")
		}

		_, err := db.Exec(
			"DELETE FROM push_subscriptions WHERE user_id = ? AND endpoint = ?",
			currentUserID(c), body.Endpoint,
		)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

func VapidPublicKeyHandler(p *pusher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !p.Enabled() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push notifications not configured")
		}
		return c.JSON(fiber.Map{
			"publicKey": p.cfg.VAPIDPublicKey,
		})
	}
}

// SendTestPushHandler pushes the user's current reminder text, or a
// placeholder when nothing is pending today.
func SendTestPushHandler(db *sql.DB, p *pusher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		if !p.Enabled() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push notifications not configured")
		}

		pending, err := pendingHabits(db, userID, todayFor(db, userID))
		if err != nil {
			return err
		}
		payload := reminderPayload(pending)
		if len(pending) == 0 {
			payload.Body = "All habits done for today."
		}
		payload.Tag = fmt.Sprintf("step26-test-%d", time.Now().Unix())

		if err := p.SendToUser(db, userID, payload); err != nil {
			logger.Warn("Test push failed", "user_id", userID, "error", err)
			return fiber.NewError(fiber.StatusBadGateway, "Failed to send test notification: "+err.Error())
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Test notification sent",
		})
	}
}
