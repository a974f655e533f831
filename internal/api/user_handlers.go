package api

import (
	"database/sql"
	"net/mail"
	"strings"
	"time"

	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
)

type UpdateEmailRequest struct {
	Email *string `json:"email"`
}

type UpdateTimezoneRequest struct {
	Timezone string `json:"timezone"`
}

func GetUserProfileHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var u models.User
		err := db.QueryRow(
			"SELECT id, username, COALESCE(email, ''), timezone, created_at FROM users WHERE id = ?",
			currentUserID(c),
		).Scan(&u.ID, &u.Username, &u.Email, &u.Timezone, &u.CreatedAt)
		if err != nil {
			return notFound(err, "User")
		}
		return c.JSON(u)
	}
}

// UpdateUserEmailHandler sets the reminder address. An empty or null
// email clears it.
func UpdateUserEmailHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateEmailRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		var email any
		if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
			addr, err := mail.ParseAddress(strings.TrimSpace(*req.Email))
			if err != nil || len(addr.Address) > 254 {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid email format")
			}
			email = addr.Address
		}

		if _, err := db.Exec("UPDATE users SET email = ? WHERE id = ?", email, currentUserID(c)); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Email updated successfully",
		})
	}
}

// UpdateTimezoneHandler changes the zone that defines the user's "today".
// Streaks are recomputed since a new zone can move today across midnight.
func UpdateTimezoneHandler(db *sql.DB, cache *todayCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)

		var req UpdateTimezoneRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		loc, err := time.LoadLocation(strings.TrimSpace(req.Timezone))
		if err != nil || req.Timezone == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown timezone")
		}

		if _, err := db.Exec("UPDATE users SET timezone = ? WHERE id = ?", loc.String(), userID); err != nil {
			return err
		}
		cache.invalidate(userID)

		if _, err := recomputeUserStreaks(db, userID, time.Now()); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":  true,
			"timezone": loc.String(),
		})
	}
}
