package api

import (
	"database/sql"
	"strings"

	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
)

func ListCategoriesHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := db.Query(
			"SELECT id, user_id, name, color, created_at FROM journal_categories WHERE user_id = ? ORDER BY name ASC",
			currentUserID(c),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		categories := []models.JournalCategory{}
		for rows.Next() {
			var jc models.JournalCategory
			if err := rows.Scan(&jc.ID, &jc.UserID, &jc.Name, &jc.Color, &jc.CreatedAt); err != nil {
				return err
			}
			categories = append(categories, jc)
		}
		return c.JSON(categories)
	}
}

func CreateCategoryHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)

		var req models.CategoryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name is required")
		}

		result, err := db.Exec(
			"INSERT INTO journal_categories (user_id, name, color) VALUES (?, ?, ?)",
			userID, req.Name, req.Color,
		)
		if err != nil {
			if isConstraintErr(err) {
				return fiber.NewError(fiber.StatusConflict, "Category already exists")
			}
			return err
		}
		id, _ := result.LastInsertId()

		var jc models.JournalCategory
		err = db.QueryRow(
			"SELECT id, user_id, name, color, created_at FROM journal_categories WHERE id = ?", id,
		).Scan(&jc.ID, &jc.UserID, &jc.Name, &jc.Color, &jc.CreatedAt)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(jc)
	}
}

func UpdateCategoryHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		id, err := paramID(c, "id", "category")
		if err != nil {
			return err
		}

		var req models.CategoryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name is required")
		}

		result, err := db.Exec(
			"UPDATE journal_categories SET name = ?, color = ? WHERE id = ? AND user_id = ?",
			req.Name, req.Color, id, userID,
		)
		if err != nil {
			if isConstraintErr(err) {
				return fiber.NewError(fiber.StatusConflict, "Category already exists")
			}
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// DeleteCategoryHandler removes a category; its notes become uncategorized.
func DeleteCategoryHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id", "category")
		if err != nil {
			return err
		}
		result, err := db.Exec("DELETE FROM journal_categories WHERE id = ? AND user_id = ?", id, currentUserID(c))
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

const noteColumns = "id, user_id, category_id, title, content, mood, created_at, updated_at"

func scanNote(s scanner) (models.Note, error) {
	var n models.Note
	var category sql.NullInt64
	if err := s.Scan(&n.ID, &n.UserID, &category, &n.Title, &n.Content, &n.Mood, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return n, err
	}
	if category.Valid {
		id := int(category.Int64)
		n.CategoryID = &id
	}
	return n, nil
}

func validateNote(db *sql.DB, userID int, req *models.NoteRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Title is required")
	}
	if req.CategoryID != nil {
		var owner int
		err := db.QueryRow("SELECT user_id FROM journal_categories WHERE id = ?", *req.CategoryID).Scan(&owner)
		if err != nil || owner != userID {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown category")
		}
	}
	return nil
}

// ListNotesHandler returns a page of notes, newest first, optionally
// filtered by category and a text query.
func ListNotesHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		page, limit := pagination(c)

		where := " WHERE user_id = ?"
		args := []any{userID}
		if v := c.Query("category_id"); v != "" {
			id := c.QueryInt("category_id", 0)
			if id <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid category_id")
			}
			where += " AND category_id = ?"
			args = append(args, id)
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			where += " AND (title LIKE ? OR content LIKE ?)"
			pattern := "%" + q + "%"
			args = append(args, pattern, pattern)
		}

		var total int
		if err := db.QueryRow("SELECT COUNT(*) FROM notes"+where, args...).Scan(&total); err != nil {
			return err
		}

		rows, err := db.Query(
			"SELECT "+noteColumns+" FROM notes"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
			append(args, limit, (page-1)*limit)...,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		notes := []models.Note{}
		for rows.Next() {
			n, err := scanNote(rows)
			if err != nil {
				return err
			}
			notes = append(notes, n)
		}

		return c.JSON(models.Page[models.Note]{Items: notes, Page: page, Limit: limit, Total: total})
	}
}

func GetNoteHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id", "note")
		if err != nil {
			return err
		}
		note, err := scanNote(db.QueryRow("SELECT "+noteColumns+" FROM notes WHERE id = ? AND user_id = ?", id, currentUserID(c)))
		if err != nil {
			return notFound(err, "Note")
		}
		return c.JSON(note)
	}
}

func CreateNoteHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)

		var req models.NoteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateNote(db, userID, &req); err != nil {
			return err
		}

		result, err := db.Exec(
			"INSERT INTO notes (user_id, category_id, title, content, mood) VALUES (?, ?, ?, ?, ?)",
			userID, req.CategoryID, req.Title, req.Content, req.Mood,
		)
		if err != nil {
			return err
		}
		id, _ := result.LastInsertId()

		note, err := scanNote(db.QueryRow("SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(note)
	}
}

func UpdateNoteHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		id, err := paramID(c, "id", "note")
		if err != nil {
			return err
		}

		var req models.NoteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateNote(db, userID, &req); err != nil {
			return err
		}

		result, err := db.Exec(
			`UPDATE notes SET category_id = ?, title = ?, content = ?, mood = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND user_id = ?`,
			req.CategoryID, req.Title, req.Content, req.Mood, id, userID,
		)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Note not found")
		}

		note, err := scanNote(db.QueryRow("SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
		if err != nil {
			return err
		}
		return c.JSON(note)
	}
}

func DeleteNoteHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id", "note")
		if err != nil {
			return err
		}
		result, err := db.Exec("DELETE FROM notes WHERE id = ? AND user_id = ?", id, currentUserID(c))
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Note not found")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
