package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"step26/internal/models"
	"step26/internal/streak"
)

// Login exchanges credentials for an access token and keeps it.
func (c *Client) Login(ctx context.Context, username, password string) (models.AuthResponse, error) {
	var out models.AuthResponse
	if strings.TrimSpace(username) == "" || password == "" {
		return out, errors.New("username and password are required")
	}
	err := c.do(ctx, "POST", "/auth/login", nil, models.LoginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return out, err
	}
	c.SetToken(out.Token)
	return out, nil
}

func (c *Client) ListHabits(ctx context.Context, activeOnly bool) ([]models.Habit, error) {
	var q url.Values
	if activeOnly {
		q = url.Values{"active": {"true"}}
	}
	var out []models.Habit
	err := c.do(ctx, "GET", "/habits", q, nil, &out)
	return out, err
}

// HabitLogs returns the logs of a habit in [from, to]. Zero dates leave
// that side open.
func (c *Client) HabitLogs(ctx context.Context, habitID int, from, to streak.Date) ([]models.HabitLog, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("date_from", from.String())
	}
	if !to.IsZero() {
		q.Set("date_to", to.String())
	}
	var out []models.HabitLog
	err := c.do(ctx, "GET", fmt.Sprintf("/habits/%d/logs", habitID), q, nil, &out)
	return out, err
}

// LogResult is the server's answer to a log mutation.
type LogResult struct {
	Log           models.HabitLog `json:"log"`
	CurrentStreak int             `json:"current_streak"`
	LongestStreak int             `json:"longest_streak"`
}

func (c *Client) CreateLog(ctx context.Context, habitID int, date streak.Date, completed bool) (LogResult, error) {
	var out LogResult
	req := models.HabitLogRequest{Date: date.String(), Completed: &completed}
	err := c.do(ctx, "POST", fmt.Sprintf("/habits/%d/logs", habitID), nil, req, &out)
	return out, err
}

func (c *Client) DeleteLog(ctx context.Context, habitID, logID int) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/habits/%d/logs/%d", habitID, logID), nil, nil, nil)
}

// DayDetail asks the server which habits were completed on date.
func (c *Client) DayDetail(ctx context.Context, date streak.Date) ([]streak.DayEntry, error) {
	var out struct {
		Entries []streak.DayEntry `json:"entries"`
	}
	err := c.do(ctx, "GET", "/habits/calendar/day", url.Values{"date": {date.String()}}, nil, &out)
	return out.Entries, err
}

// Today returns the user's local date and active habits with their
// completion state for it.
func (c *Client) Today(ctx context.Context) (streak.Date, []models.HabitToday, error) {
	var out struct {
		Date   streak.Date         `json:"date"`
		Habits []models.HabitToday `json:"habits"`
	}
	err := c.do(ctx, "GET", "/habits/today", nil, nil, &out)
	return out.Date, out.Habits, err
}
