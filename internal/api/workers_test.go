package api

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"step26/internal/config"
	"step26/internal/database"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/gomail.v2"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Initialize(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertUser(t *testing.T, db *sql.DB, name, email, tz string) int {
	t.Helper()
	var emailValue any
	if email != "" {
		emailValue = email
	}
	res, err := db.Exec("INSERT INTO users (username, password_hash, email, timezone) VALUES (?, 'x', ?, ?)", name, emailValue, tz)
	require.NoError(t, err)
	id, _ := res.LastInsertId()
	return int(id)
}

func insertHabit(t *testing.T, db *sql.DB, userID int, name string, current, longest int) int {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO habits (user_id, name, start_date, current_streak, longest_streak) VALUES (?, ?, '2024-01-01', ?, ?)",
		userID, name, current, longest,
	)
	require.NoError(t, err)
	id, _ := res.LastInsertId()
	return int(id)
}

func insertLog(t *testing.T, db *sql.DB, habitID int, date string) {
	t.Helper()
	_, err := db.Exec("INSERT INTO habit_logs (habit_id, date) VALUES (?, ?)", habitID, date)
	require.NoError(t, err)
}

func streaksOf(t *testing.T, db *sql.DB, habitID int) (int, int) {
	t.Helper()
	var current, longest int
	require.NoError(t, db.QueryRow("SELECT current_streak, longest_streak FROM habits WHERE id = ?", habitID).Scan(&current, &longest))
	return current, longest
}

func TestRecomputeAllStreaksDecaysBrokenRuns(t *testing.T) {
	db := newTestDB(t)
	u := insertUser(t, db, "decay", "", "UTC")
	h := insertHabit(t, db, u, "Run", 3, 3)
	for _, d := range []string{"2024-05-07", "2024-05-08", "2024-05-09"} {
		insertLog(t, db, h, d)
	}

	// Still alive on the 10th: today is unfinished, not missed.
	require.NoError(t, RecomputeAllStreaks(db, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)))
	current, longest := streaksOf(t, db, h)
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, longest)

	require.NoError(t, RecomputeAllStreaks(db, time.Date(2024, 5, 11, 12, 0, 0, 0, time.UTC)))
	current, longest = streaksOf(t, db, h)
	assert.Equal(t, 0, current)
	assert.Equal(t, 3, longest)
}

func TestRecomputeUsesUserTimezone(t *testing.T) {
	db := newTestDB(t)
	u := insertUser(t, db, "tokyo", "", "Asia/Tokyo")
	h := insertHabit(t, db, u, "Read", 0, 0)
	insertLog(t, db, h, "2024-05-10")

	// 2024-05-11 20:00 UTC is already the 12th in Tokyo.
	require.NoError(t, RecomputeAllStreaks(db, time.Date(2024, 5, 11, 20, 0, 0, 0, time.UTC)))
	current, _ := streaksOf(t, db, h)
	assert.Equal(t, 0, current)

	require.NoError(t, RecomputeAllStreaks(db, time.Date(2024, 5, 11, 10, 0, 0, 0, time.UTC)))
	current, _ = streaksOf(t, db, h)
	assert.Equal(t, 1, current)
}

func TestRecomputeAllStreaksSkipsUnreadableHabit(t *testing.T) {
	db := newTestDB(t)
	broken := insertUser(t, db, "broken", "", "UTC")
	fine := insertUser(t, db, "fine", "", "UTC")
	bad := insertHabit(t, db, broken, "Legacy", 9, 9)
	insertLog(t, db, bad, "2024-05-10T08:00:00Z")
	good := insertHabit(t, db, fine, "Walk", 0, 0)
	insertLog(t, db, good, "2024-05-10")

	require.NoError(t, RecomputeAllStreaks(db, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)))

	current, longest := streaksOf(t, db, bad)
	assert.Equal(t, 9, current)
	assert.Equal(t, 9, longest)
	current, longest = streaksOf(t, db, good)
	assert.Equal(t, 1, current)
	assert.Equal(t, 1, longest)
}

type sentPush struct {
	endpoint string
	body     string
}

func fakePusher(status int, sent *[]sentPush) *pusher {
	p := newPusher(config.PushConfig{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv", Subject: "mailto:ops@example.com"})
	p.send = func(message []byte, s *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
		*sent = append(*sent, sentPush{endpoint: s.Endpoint, body: string(message)})
		return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	return p
}

func fakeMailer(sent *[]*gomail.Message) *mailer {
	m := newMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com", AppURL: "https://app.example.com"})
	m.send = func(msg *gomail.Message) error {
		*sent = append(*sent, msg)
		return nil
	}
	return m
}

func subscribe(t *testing.T, db *sql.DB, userID int, endpoint string) {
	t.Helper()
	_, err := db.Exec("INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth) VALUES (?, ?, 'k', 'a')", userID, endpoint)
	require.NoError(t, err)
}

func TestProcessHabitRemindersOncePerDay(t *testing.T) {
	db := newTestDB(t)
	lazy := insertUser(t, db, "lazy", "lazy@example.com", "UTC")
	busy := insertUser(t, db, "busy", "busy@example.com", "UTC")
	insertHabit(t, db, lazy, "Floss", 0, 0)
	done := insertHabit(t, db, busy, "Walk", 0, 0)
	insertLog(t, db, done, "2024-05-10")
	subscribe(t, db, lazy, "https://push.example.com/lazy")
	subscribe(t, db, busy, "https://push.example.com/busy")

	var pushes []sentPush
	var mails []*gomail.Message
	p, m := fakePusher(http.StatusCreated, &pushes), fakeMailer(&mails)

	early := time.Date(2024, 5, 10, 19, 59, 0, 0, time.UTC)
	require.NoError(t, ProcessHabitReminders(db, p, m, 20, early))
	assert.Empty(t, pushes)
	assert.Empty(t, mails)

	late := time.Date(2024, 5, 10, 20, 30, 0, 0, time.UTC)
	require.NoError(t, ProcessHabitReminders(db, p, m, 20, late))
	require.Len(t, pushes, 1)
	assert.Equal(t, "https://push.example.com/lazy", pushes[0].endpoint)
	assert.Contains(t, pushes[0].body, "Floss")
	require.Len(t, mails, 1)
	assert.Equal(t, []string{"lazy@example.com"}, mails[0].GetHeader("To"))
	assert.Equal(t, []string{"1 habit left today"}, mails[0].GetHeader("Subject"))

	require.NoError(t, ProcessHabitReminders(db, p, m, 20, late.Add(time.Hour)))
	assert.Len(t, pushes, 1)
	assert.Len(t, mails, 1)

	var marked string
	require.NoError(t, db.QueryRow("SELECT last_reminded_on FROM users WHERE id = ?", busy).Scan(&marked))
	assert.Equal(t, "2024-05-10", marked)

	// A new local day re-arms the reminder.
	require.NoError(t, ProcessHabitReminders(db, p, m, 20, late.Add(24*time.Hour)))
	assert.Len(t, pushes, 3)
}

func TestPusherDropsGoneSubscriptions(t *testing.T) {
	db := newTestDB(t)
	u := insertUser(t, db, "gone", "", "UTC")
	subscribe(t, db, u, "https://push.example.com/old")

	var pushes []sentPush
	p := fakePusher(http.StatusGone, &pushes)

	err := p.SendToUser(db, u, PushPayload{Title: "t", Body: "b"})
	assert.Error(t, err)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM push_subscriptions WHERE user_id = ?", u).Scan(&n))
	assert.Zero(t, n)

	err = p.SendToUser(db, u, PushPayload{Title: "t", Body: "b"})
	assert.ErrorContains(t, err, "no push subscriptions")
}

func TestPusherDisabledIsNoop(t *testing.T) {
	db := newTestDB(t)
	p := newPusher(config.PushConfig{})
	assert.False(t, p.Enabled())
	assert.NoError(t, p.SendToUser(db, 1, PushPayload{Title: "t"}))
}

func TestRenderReminderEmail(t *testing.T) {
	html, err := renderReminderEmail(reminderEmailData{
		Username: "ada",
		Date:     "2024-05-10",
		AppURL:   "https://app.example.com",
		Year:     2024,
		Habits:   nil,
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Hi ada")
	assert.Contains(t, html, "0 habits")
	assert.Contains(t, html, "https://app.example.com")
}

func TestRefreshStore(t *testing.T) {
	db := newTestDB(t)
	u := insertUser(t, db, "tokens", "", "UTC")
	store := newRefreshStore(db)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Store(u, "live", now.Add(time.Hour), 7))
	require.NoError(t, store.Store(u, "stale", now.Add(-time.Hour), 7))
	require.NoError(t, store.Store(u, "dropped", now.Add(time.Hour), 30))

	userID, ttl, err := store.Validate("live")
	require.NoError(t, err)
	assert.Equal(t, u, userID)
	assert.Equal(t, 7, ttl)

	_, _, err = store.Validate("stale")
	assert.ErrorIs(t, err, errRefreshExpired)
	_, _, err = store.Validate("unknown")
	assert.ErrorIs(t, err, errRefreshNotFound)

	require.NoError(t, store.Revoke("dropped"))
	_, _, err = store.Validate("dropped")
	assert.ErrorIs(t, err, errRefreshRevoked)

	n, err := store.PurgeExpired()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, _, err = store.Validate("live")
	assert.NoError(t, err)
}

func TestRunWorkersStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	u := insertUser(t, db, "worker", "", "UTC")
	h := insertHabit(t, db, u, "Stale", 9, 9)

	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := config.DefaultConfig()
	cfg.WorkerInterval = "10ms"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunWorkers(ctx, db, cfg) }()

	require.Eventually(t, func() bool {
		current, _ := streaksOf(t, db, h)
		return current == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestRunWorkersRejectsBadInterval(t *testing.T) {
	db := newTestDB(t)
	cfg := config.DefaultConfig()
	cfg.WorkerInterval = "soon"
	assert.Error(t, RunWorkers(context.Background(), db, cfg))
}
