package api

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"step26/internal/logger"
	"step26/internal/streak"

	"github.com/gofiber/fiber/v2"
	"github.com/mattn/go-sqlite3"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// ErrorHandler renders every handler error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

func currentUserID(c *fiber.Ctx) int {
	return c.Locals("userID").(int)
}

func paramID(c *fiber.Ctx, name, label string) (int, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+label+" ID")
	}
	return id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *fiber.Ctx, name string) (string, error) {
	v := c.Query(name)
	if v == "" {
		return "", nil
	}
	if _, err := streak.ParseDate(v); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Invalid "+name+": expected YYYY-MM-DD")
	}
	return v, nil
}

func requireDate(value, field string) (streak.Date, error) {
	if value == "" {
		return streak.Date{}, fiber.NewError(fiber.StatusBadRequest, field+" is required")
	}
	d, err := streak.ParseDate(value)
	if err != nil {
		return streak.Date{}, fiber.NewError(fiber.StatusBadRequest, "Invalid "+field+": expected YYYY-MM-DD")
	}
	return d, nil
}

func pagination(c *fiber.Ctx) (page, limit int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", 20)
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// userLocation returns the user's configured zone, falling back to UTC.
func userLocation(q dbtx, userID int) *time.Location {
	var tz string
	if err := q.QueryRow("SELECT timezone FROM users WHERE id = ?", userID).Scan(&tz); err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("Unknown user timezone, using UTC", "user_id", userID, "timezone", tz)
		return time.UTC
	}
	return loc
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	}
	return err
}

func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
