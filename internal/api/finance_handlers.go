package api

import (
	"database/sql"
	"strings"

	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	KindIncome  = "income"
	KindExpense = "expense"
)

const transactionColumns = "id, user_id, kind, amount_cents, category, description, date, created_at"

func scanTransaction(s scanner) (models.Transaction, error) {
	var t models.Transaction
	err := s.Scan(&t.ID, &t.UserID, &t.Kind, &t.AmountCents, &t.Category, &t.Description, &t.Date, &t.CreatedAt)
	return t, err
}

// rangeFilter builds the date clause shared by the list and summary views.
func rangeFilter(c *fiber.Ctx) (string, []any, string, string, error) {
	from, err := queryDate(c, "from")
	if err != nil {
		return "", nil, "", "", err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return "", nil, "", "", err
	}
	if from != "" && to != "" && from > to {
		return "", nil, "", "", fiber.NewError(fiber.StatusBadRequest, "from must not be after to")
	}

	clause := " WHERE user_id = ?"
	args := []any{currentUserID(c)}
	if from != "" {
		clause += " AND date >= ?"
		args = append(args, from)
	}
	if to != "" {
		clause += " AND date <= ?"
		args = append(args, to)
	}
	return clause, args, from, to, nil
}

func ListTransactionsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		where, args, _, _, err := rangeFilter(c)
		if err != nil {
			return err
		}

		rows, err := db.Query("SELECT "+transactionColumns+" FROM transactions"+where+" ORDER BY date DESC, id DESC", args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		txs := []models.Transaction{}
		for rows.Next() {
			t, err := scanTransaction(rows)
			if err != nil {
				return err
			}
			txs = append(txs, t)
		}
		return c.JSON(txs)
	}
}

func CreateTransactionHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)

		var req models.TransactionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.Kind != KindIncome && req.Kind != KindExpense {
			return fiber.NewError(fiber.StatusBadRequest, "kind must be income or expense")
		}
		if req.AmountCents <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "amount_cents must be positive")
		}
		if req.Date == "" {
			req.Date = todayFor(db, userID).String()
		} else if _, err := requireDate(req.Date, "date"); err != nil {
			return err
		}
		req.Category = strings.TrimSpace(req.Category)

		result, err := db.Exec(
			"INSERT INTO transactions (user_id, kind, amount_cents, category, description, date) VALUES (?, ?, ?, ?, ?, ?)",
			userID, req.Kind, req.AmountCents, req.Category, req.Description, req.Date,
		)
		if err != nil {
			return err
		}
		id, _ := result.LastInsertId()

		t, err := scanTransaction(db.QueryRow("SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	}
}

func DeleteTransactionHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id", "transaction")
		if err != nil {
			return err
		}
		result, err := db.Exec("DELETE FROM transactions WHERE id = ? AND user_id = ?", id, currentUserID(c))
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Transaction not found")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// FinanceSummaryHandler totals income and expenses over the range.
// by_category holds the net amount per category, expenses negative.
func FinanceSummaryHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		where, args, from, to, err := rangeFilter(c)
		if err != nil {
			return err
		}

		rows, err := db.Query("SELECT kind, category, SUM(amount_cents) FROM transactions"+where+" GROUP BY kind, category", args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		summary := models.FinanceSummary{From: from, To: to, ByCategory: map[string]int64{}}
		for rows.Next() {
			var kind, category string
			var total int64
			if err := rows.Scan(&kind, &category, &total); err != nil {
				return err
			}
			switch kind {
			case KindIncome:
				summary.IncomeCents += total
				summary.ByCategory[category] += total
			case KindExpense:
				summary.ExpenseCents += total
				summary.ByCategory[category] -= total
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		summary.BalanceCents = summary.IncomeCents - summary.ExpenseCents
		return c.JSON(summary)
	}
}
