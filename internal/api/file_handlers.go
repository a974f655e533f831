package api

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"step26/internal/logger"
	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const fileColumns = "id, user_id, original_name, stored_name, content_type, size, created_at"

func scanFile(s scanner) (models.StoredFile, error) {
	var f models.StoredFile
	err := s.Scan(&f.ID, &f.UserID, &f.OriginalName, &f.StoredName, &f.ContentType, &f.Size, &f.CreatedAt)
	return f, err
}

func getFile(db *sql.DB, userID, fileID int) (models.StoredFile, error) {
	return scanFile(db.QueryRow("SELECT "+fileColumns+" FROM files WHERE id = ? AND user_id = ?", fileID, userID))
}

// UploadFileHandler stores the multipart field "file" under a random name
// inside uploadDir. The original name is kept only as metadata.
func UploadFileHandler(db *sql.DB, uploadDir string, maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)

		header, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Missing file field")
		}
		if maxBytes > 0 && header.Size > maxBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "File too large")
		}

		original := filepath.Base(header.Filename)
		if original == "." || original == string(filepath.Separator) {
			original = "upload"
		}
		storedName := uuid.NewString() + strings.ToLower(filepath.Ext(original))
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		if err := os.MkdirAll(uploadDir, 0755); err != nil {
			return err
		}
		path := filepath.Join(uploadDir, storedName)
		if err := c.SaveFile(header, path); err != nil {
			return err
		}

		result, err := db.Exec(
			"INSERT INTO files (user_id, original_name, stored_name, content_type, size) VALUES (?, ?, ?, ?, ?)",
			userID, original, storedName, contentType, header.Size,
		)
		if err != nil {
			os.Remove(path)
			return err
		}
		id, _ := result.LastInsertId()

		f, err := getFile(db, userID, int(id))
		if err != nil {
			return err
		}
		logger.Info("File uploaded", "user_id", userID, "file_id", id, "size", header.Size)
		return c.Status(fiber.StatusCreated).JSON(f)
	}
}

func ListFilesHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := db.Query(
			"SELECT "+fileColumns+" FROM files WHERE user_id = ? ORDER BY created_at DESC, id DESC",
			currentUserID(c),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		files := []models.StoredFile{}
		for rows.Next() {
			f, err := scanFile(rows)
			if err != nil {
				return err
			}
			files = append(files, f)
		}
		return c.JSON(files)
	}
}

func DownloadFileHandler(db *sql.DB, uploadDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id", "file")
		if err != nil {
			return err
		}
		f, err := getFile(db, currentUserID(c), id)
		if err != nil {
			return notFound(err, "File")
		}

		path := filepath.Join(uploadDir, f.StoredName)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Warn("Stored file missing on disk", "file_id", f.ID, "path", path)
				return fiber.NewError(fiber.StatusNotFound, "File not found")
			}
			return err
		}

		c.Set(fiber.HeaderContentType, f.ContentType)
		return c.Download(path, f.OriginalName)
	}
}

func DeleteFileHandler(db *sql.DB, uploadDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		id, err := paramID(c, "id", "file")
		if err != nil {
			return err
		}
		f, err := getFile(db, userID, id)
		if err != nil {
			return notFound(err, "File")
		}

		if _, err := db.Exec("DELETE FROM files WHERE id = ? AND user_id = ?", id, userID); err != nil {
			return err
		}
		if err := os.Remove(filepath.Join(uploadDir, f.StoredName)); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to remove stored file", "file_id", id, "error", err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
