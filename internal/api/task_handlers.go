package api

import (
	"database/sql"
	"strings"

	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

const taskColumns = "id, user_id, title, description, status, priority, due_date, created_at, updated_at"

func validTaskStatus(s string) bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskDone
}

func scanTask(s scanner) (models.Task, error) {
	var t models.Task
	err := s.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func validateTask(req *models.TaskRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Title is required")
	}
	if req.Status == "" {
		req.Status = TaskTodo
	}
	if !validTaskStatus(req.Status) {
		return fiber.NewError(fiber.StatusBadRequest, "status must be one of todo, in_progress, done")
	}
	if req.DueDate != "" {
		if _, err := requireDate(req.DueDate, "due_date"); err != nil {
			return err
		}
	}
	return nil
}

func ListTasksHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ?"
		args := []any{currentUserID(c)}
		if status := c.Query("status"); status != "" {
			if !validTaskStatus(status) {
				return fiber.NewError(fiber.StatusBadRequest, "status must be one of todo, in_progress, done")
			}
			query += " AND status = ?"
			args = append(args, status)
		}
		query += " ORDER BY priority DESC, created_at ASC, id ASC"

		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		tasks := []models.Task{}
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, t)
		}
		return c.JSON(tasks)
	}
}

func CreateTaskHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.TaskRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateTask(&req); err != nil {
			return err
		}

		result, err := db.Exec(
			"INSERT INTO tasks (user_id, title, description, status, priority, due_date) VALUES (?, ?, ?, ?, ?, ?)",
			currentUserID(c), req.Title, req.Description, req.Status, req.Priority, req.DueDate,
		)
		if err != nil {
			return err
		}
		id, _ := result.LastInsertId()

		task, err := scanTask(db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	}
}

func UpdateTaskHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		id, err := paramID(c, "id", "task")
		if err != nil {
			return err
		}

		var req models.TaskRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateTask(&req); err != nil {
			return err
		}

		result, err := db.Exec(
			`UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ?,
			updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?`,
			req.Title, req.Description, req.Status, req.Priority, req.DueDate, id, userID,
		)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Task not found")
		}

		task, err := scanTask(db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
		if err != nil {
			return err
		}
		return c.JSON(task)
	}
}

func DeleteTaskHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id", "task")
		if err != nil {
			return err
		}
		result, err := db.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", id, currentUserID(c))
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Task not found")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
