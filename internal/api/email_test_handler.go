package api

import (
	"database/sql"
	"fmt"
	"time"

	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
)

const emailTestInterval = 10 * time.Minute

// TestEmailHandler sends a sample reminder to the user's address. It is
// rate limited server-wide.
func TestEmailHandler(db *sql.DB, m *mailer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)

		if !m.Enabled() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "SMTP not configured")
		}

		var email sql.NullString
		var username string
		if err := db.QueryRow("SELECT email, username FROM users WHERE id = ?", userID).Scan(&email, &username); err != nil {
			return notFound(err, "User")
		}
		if !email.Valid || email.String == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Your account does not have an email address set")
		}

		m.mu.Lock()
		since := time.Since(m.lastTest)
		if since < emailTestInterval {
			m.mu.Unlock()
			return fiber.NewError(fiber.StatusTooManyRequests,
				fmt.Sprintf("Please wait %s before testing again", formatDuration(emailTestInterval-since)))
		}
		m.lastTest = time.Now()
		m.mu.Unlock()

		sample := []models.Habit{{Name: "Test habit", Color: "#4f46e5", CurrentStreak: 3}}
		if err := m.SendHabitReminder(email.String, username, todayFor(db, userID).String(), sample); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Test email sent successfully to %s", email.String),
		})
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	if seconds > 0 {
		return fmt.Sprintf("%d minutes %d seconds", minutes, seconds)
	}
	return fmt.Sprintf("%d minutes", minutes)
}
