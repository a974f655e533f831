package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createHabit(t *testing.T, app *fiber.App, token, name string) models.Habit {
	t.Helper()
	status, raw := doJSON(t, app, "POST", "/api/habits", token, models.CreateHabitRequest{Name: name})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return decode[models.Habit](t, raw)
}

type logResult struct {
	Log           models.HabitLog `json:"log"`
	CurrentStreak int             `json:"current_streak"`
	LongestStreak int             `json:"longest_streak"`
}

func markDone(t *testing.T, app *fiber.App, token string, habitID int, date string) logResult {
	t.Helper()
	status, raw := doJSON(t, app, "POST", fmt.Sprintf("/api/habits/%d/logs", habitID), token,
		models.HabitLogRequest{Date: date})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return decode[logResult](t, raw)
}

func TestHabitCRUD(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "habits")

	status, _ := doJSON(t, app, "POST", "/api/habits", token, models.CreateHabitRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	h := createHabit(t, app, token, "Read")
	assert.Equal(t, today().String(), h.StartDate)
	assert.True(t, h.IsActive)
	assert.Equal(t, "#4f46e5", h.Color)

	inactive := false
	name := "Read more"
	status, raw := doJSON(t, app, "PUT", fmt.Sprintf("/api/habits/%d", h.ID), token,
		models.UpdateHabitRequest{Name: &name, IsActive: &inactive})
	require.Equal(t, http.StatusOK, status, string(raw))
	updated := decode[models.Habit](t, raw)
	assert.Equal(t, "Read more", updated.Name)
	assert.False(t, updated.IsActive)

	createHabit(t, app, token, "Walk")

	status, raw = doJSON(t, app, "GET", "/api/habits?active=true", token, nil)
	require.Equal(t, http.StatusOK, status)
	active := decode[[]models.Habit](t, raw)
	require.Len(t, active, 1)
	assert.Equal(t, "Walk", active[0].Name)

	status, _ = doJSON(t, app, "GET", "/api/habits?active=maybe", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/habits/%d", h.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, app, "GET", fmt.Sprintf("/api/habits/%d", h.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHabitsAreScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")

	h := createHabit(t, app, alice, "Private")

	status, _ := doJSON(t, app, "GET", fmt.Sprintf("/api/habits/%d", h.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = doJSON(t, app, "GET", fmt.Sprintf("/api/habits/%d/logs", h.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/habits/%d/logs", h.ID), bob,
		models.HabitLogRequest{Date: today().String()})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLogUpsertRecomputesStreaks(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "streaker")
	h := createHabit(t, app, token, "Run")

	d := today()
	var res logResult
	for i := 4; i >= 0; i-- {
		res = markDone(t, app, token, h.ID, d.AddDays(-i).String())
	}
	assert.Equal(t, 5, res.CurrentStreak)
	assert.Equal(t, 5, res.LongestStreak)

	// Upserting the same day again does not create a duplicate.
	res = markDone(t, app, token, h.ID, d.String())
	assert.Equal(t, 5, res.CurrentStreak)

	// Breaking the middle of the run splits it.
	no := false
	status, raw := doJSON(t, app, "POST", fmt.Sprintf("/api/habits/%d/logs", h.ID), token,
		models.HabitLogRequest{Date: d.AddDays(-2).String(), Completed: &no})
	require.Equal(t, http.StatusCreated, status, string(raw))
	res = decode[logResult](t, raw)
	assert.Equal(t, 2, res.CurrentStreak)
	assert.Equal(t, 2, res.LongestStreak)

	status, raw = doJSON(t, app, "GET", fmt.Sprintf("/api/habits/%d", h.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	stored := decode[models.Habit](t, raw)
	assert.Equal(t, 2, stored.CurrentStreak)
	assert.Equal(t, 2, stored.LongestStreak)

	status, raw = doJSON(t, app, "GET", fmt.Sprintf("/api/habits/%d/logs", h.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.HabitLog](t, raw), 5)
}

func TestUnfinishedTodayKeepsStreak(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "graceful")
	h := createHabit(t, app, token, "Stretch")

	d := today()
	markDone(t, app, token, h.ID, d.AddDays(-2).String())
	res := markDone(t, app, token, h.ID, d.AddDays(-1).String())
	assert.Equal(t, 2, res.CurrentStreak)
}

func TestLogValidation(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "validator")
	h := createHabit(t, app, token, "Floss")
	path := fmt.Sprintf("/api/habits/%d/logs", h.ID)

	status, _ := doJSON(t, app, "POST", path, token, models.HabitLogRequest{Date: "2024-13-01"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = doJSON(t, app, "POST", path, token, models.HabitLogRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = doJSON(t, app, "GET", path+"?date_from=2024-02-01&date_to=2024-01-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = doJSON(t, app, "GET", path+"?date_from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLogRangeFilter(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "ranger")
	h := createHabit(t, app, token, "Journal")

	for _, d := range []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"} {
		markDone(t, app, token, h.ID, d)
	}

	status, raw := doJSON(t, app, "GET",
		fmt.Sprintf("/api/habits/%d/logs?date_from=2024-01-31&date_to=2024-02-01", h.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	logs := decode[[]models.HabitLog](t, raw)
	require.Len(t, logs, 2)
	assert.Equal(t, "2024-01-31", logs[0].Date)
	assert.Equal(t, "2024-02-01", logs[1].Date)
}

func TestUpdateAndDeleteLog(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "editor")
	h := createHabit(t, app, token, "Meditate")

	d := today()
	first := markDone(t, app, token, h.ID, d.AddDays(-1).String())
	markDone(t, app, token, h.ID, d.String())

	// Moving a log onto a day that already has one conflicts.
	status, raw := doJSON(t, app, "PUT", fmt.Sprintf("/api/habits/%d/logs/%d", h.ID, first.Log.ID), token,
		models.HabitLogRequest{Date: d.String()})
	assert.Equal(t, http.StatusConflict, status, string(raw))

	status, raw = doJSON(t, app, "DELETE", fmt.Sprintf("/api/habits/%d/logs/%d", h.ID, first.Log.ID), token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = doJSON(t, app, "GET", fmt.Sprintf("/api/habits/%d", h.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[models.Habit](t, raw).CurrentStreak)

	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/habits/%d/logs/%d", h.ID, first.Log.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHabitsToday(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "today")
	read := createHabit(t, app, token, "Read")
	walk := createHabit(t, app, token, "Walk")

	type todayResponse struct {
		Date   string              `json:"date"`
		Habits []models.HabitToday `json:"habits"`
	}

	status, raw := doJSON(t, app, "GET", "/api/habits/today", token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	before := decode[todayResponse](t, raw)
	assert.Equal(t, today().String(), before.Date)
	require.Len(t, before.Habits, 2)
	assert.False(t, before.Habits[0].CompletedToday)

	// The cached answer must be dropped by the log mutation.
	markDone(t, app, token, walk.ID, today().String())

	status, raw = doJSON(t, app, "GET", "/api/habits/today", token, nil)
	require.Equal(t, http.StatusOK, status)
	after := decode[todayResponse](t, raw)
	done := map[int]bool{}
	for _, h := range after.Habits {
		done[h.ID] = h.CompletedToday
	}
	assert.False(t, done[read.ID])
	assert.True(t, done[walk.ID])
}
