package api

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"step26/internal/auth"
	"step26/internal/logger"
	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
)

const refreshCookie = "refresh_token"

func setRefreshCookie(c *fiber.Ctx, value string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    value,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   auth.CookieSecure,
		SameSite: "Lax",
		Path:     "/api/auth",
	})
}

// issueSession creates an access token and a stored refresh token, and
// sets the refresh cookie.
func issueSession(c *fiber.Ctx, tokens *refreshStore, userID int, username string, days int) (string, error) {
	accessToken, err := auth.GenerateToken(userID, username)
	if err != nil {
		return "", err
	}
	refreshToken, err := auth.GenerateRefreshToken(userID, username, days)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	if err := tokens.Store(userID, refreshToken, expiresAt, days); err != nil {
		return "", err
	}
	setRefreshCookie(c, refreshToken, expiresAt)
	return accessToken, nil
}

func RegisterHandler(db *sql.DB, tokens *refreshStore, disabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if disabled {
			return fiber.NewError(fiber.StatusForbidden, "Registration is disabled")
		}

		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Username and password are required")
		}
		if len(req.Password) < 8 {
			return fiber.NewError(fiber.StatusBadRequest, "Password must be at least 8 characters")
		}

		tz := req.Timezone
		if tz == "" {
			tz = "UTC"
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown timezone")
		}

		hashedPassword, err := auth.HashPassword(req.Password)
		if err != nil {
			return err
		}

		result, err := db.Exec(
			"INSERT INTO users (username, password_hash, timezone) VALUES (?, ?, ?)",
			req.Username, hashedPassword, tz,
		)
		if err != nil {
			if isConstraintErr(err) {
				return fiber.NewError(fiber.StatusConflict, "Username already exists")
			}
			return err
		}
		userID, _ := result.LastInsertId()

		accessToken, err := issueSession(c, tokens, int(userID), req.Username, auth.RefreshDays(req.Remember))
		if err != nil {
			return err
		}
		logger.Info("User registered", "user_id", userID)

		return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
			Token: accessToken,
			User:  models.User{ID: int(userID), Username: req.Username, Timezone: tz},
		})
	}
}

func LoginHandler(db *sql.DB, tokens *refreshStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		var user models.User
		err := db.QueryRow(
			"SELECT id, username, password_hash, COALESCE(email, ''), timezone, created_at FROM users WHERE username = ?",
			strings.TrimSpace(req.Username),
		).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.Timezone, &user.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
		}
		if err != nil {
			return err
		}

		if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
		}

		accessToken, err := issueSession(c, tokens, user.ID, user.Username, auth.RefreshDays(req.Remember))
		if err != nil {
			return err
		}

		return c.JSON(models.AuthResponse{
			Token: accessToken,
			User:  user,
		})
	}
}

// RefreshTokenHandler exchanges a valid refresh cookie for a new access
// token and rotates the refresh token.
func RefreshTokenHandler(tokens *refreshStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		refreshToken := c.Cookies(refreshCookie)
		if refreshToken == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token not found")
		}

		claims, err := auth.ValidateRefreshToken(refreshToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired refresh token")
		}

		userID, ttlDays, err := tokens.Validate(refreshToken)
		if err != nil {
			logger.Warn("Refresh token rejected", "user_id", claims.UserID, "error", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token not valid")
		}
		if userID != claims.UserID {
			return fiber.NewError(fiber.StatusUnauthorized, "Token user mismatch")
		}

		accessToken, err := issueSession(c, tokens, claims.UserID, claims.Username, ttlDays)
		if err != nil {
			return err
		}
		if err := tokens.Revoke(refreshToken); err != nil {
			logger.Warn("Failed to revoke rotated refresh token", "user_id", userID, "error", err)
		}

		return c.JSON(fiber.Map{
			"token": accessToken,
		})
	}
}

func LogoutHandler(tokens *refreshStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if old := c.Cookies(refreshCookie); old != "" {
			if err := tokens.Revoke(old); err != nil {
				logger.Warn("Failed to revoke refresh token on logout", "error", err)
			}
		}
		setRefreshCookie(c, "", time.Now().Add(-time.Hour))

		return c.JSON(fiber.Map{
			"message": "Logged out successfully",
		})
	}
}

// PublicConfigHandler exposes the settings the client needs before login.
func PublicConfigHandler(disableRegistration, pushEnabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"disableRegistration": disableRegistration,
			"pushEnabled":         pushEnabled,
		})
	}
}
