package models

import "time"

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	Timezone     string    `json:"timezone"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Habit struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	TargetDays    *int      `json:"target_days,omitempty"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	StartDate     string    `json:"start_date"`
	IsActive      bool      `json:"is_active"`
	Color         string    `json:"color"`
	Icon          string    `json:"icon"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HabitLog is one entry per (habit, local date). Date is YYYY-MM-DD.
type HabitLog struct {
	ID        int       `json:"id"`
	HabitID   int       `json:"habit_id"`
	Date      string    `json:"date"`
	Completed bool      `json:"completed"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type HabitToday struct {
	Habit
	CompletedToday bool `json:"completed_today"`
}

type JournalCategory struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Note struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	CategoryID *int      `json:"category_id,omitempty"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Mood       string    `json:"mood,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Link struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type StoredFile struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"-"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

type Task struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Priority    int       `json:"priority"`
	DueDate     string    `json:"due_date,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Transaction amounts are integer cents.
type Transaction struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

type FinanceSummary struct {
	From         string           `json:"from,omitempty"`
	To           string           `json:"to,omitempty"`
	IncomeCents  int64            `json:"income_cents"`
	ExpenseCents int64            `json:"expense_cents"`
	BalanceCents int64            `json:"balance_cents"`
	ByCategory   map[string]int64 `json:"by_category"`
}

type PushSubscription struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type CreateHabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TargetDays  *int   `json:"target_days,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

type UpdateHabitRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	TargetDays  *int    `json:"target_days,omitempty"`
	StartDate   *string `json:"start_date,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	Color       *string `json:"color,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

type HabitLogRequest struct {
	Date      string `json:"date"`
	Completed *bool  `json:"completed,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type NoteRequest struct {
	CategoryID *int   `json:"category_id,omitempty"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Mood       string `json:"mood,omitempty"`
}

type CategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type LinkRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

type TransactionRequest struct {
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Timezone string `json:"timezone,omitempty"`
	Remember bool   `json:"remember,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
