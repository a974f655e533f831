package api

import (
	"database/sql"
	"net/url"
	"strings"

	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
)

const linkColumns = "id, user_id, title, url, description, created_at"

func scanLink(s scanner) (models.Link, error) {
	var l models.Link
	err := s.Scan(&l.ID, &l.UserID, &l.Title, &l.URL, &l.Description, &l.CreatedAt)
	return l, err
}

// validateLink accepts only absolute http(s) URLs. An empty title falls
// back to the host.
func validateLink(req *models.LinkRequest) error {
	req.URL = strings.TrimSpace(req.URL)
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fiber.NewError(fiber.StatusBadRequest, "url must be an absolute http or https URL")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		req.Title = u.Host
	}
	return nil
}

func ListLinksHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := db.Query(
			"SELECT "+linkColumns+" FROM links WHERE user_id = ? ORDER BY created_at DESC, id DESC",
			currentUserID(c),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		links := []models.Link{}
		for rows.Next() {
			l, err := scanLink(rows)
			if err != nil {
				return err
			}
			links = append(links, l)
		}
		return c.JSON(links)
	}
}

func CreateLinkHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LinkRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateLink(&req); err != nil {
			return err
		}

		result, err := db.Exec(
			"INSERT INTO links (user_id, title, url, description) VALUES (?, ?, ?, ?)",
			currentUserID(c), req.Title, req.URL, req.Description,
		)
		if err != nil {
			return err
		}
		id, _ := result.LastInsertId()

		link, err := scanLink(db.QueryRow("SELECT "+linkColumns+" FROM links WHERE id = ?", id))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(link)
	}
}

func UpdateLinkHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		id, err := paramID(c, "id", "link")
		if err != nil {
			return err
		}

		var req models.LinkRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateLink(&req); err != nil {
			return err
		}

		result, err := db.Exec(
			"UPDATE links SET title = ?, url = ?, description = ? WHERE id = ? AND user_id = ?",
			req.Title, req.URL, req.Description, id, userID,
		)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Link not found")
		}

		link, err := scanLink(db.QueryRow("SELECT "+linkColumns+" FROM links WHERE id = ?", id))
		if err != nil {
			return err
		}
		return c.JSON(link)
	}
}

func DeleteLinkHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id", "link")
		if err != nil {
			return err
		}
		result, err := db.Exec("DELETE FROM links WHERE id = ? AND user_id = ?", id, currentUserID(c))
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Link not found")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
