package api_test

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"step26/internal/config"
	"step26/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalCategoriesAndNotes(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "writer")

	status, raw := doJSON(t, app, "POST", "/api/journal/categories", token, models.CategoryRequest{Name: "Work"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	work := decode[models.JournalCategory](t, raw)

	status, _ = doJSON(t, app, "POST", "/api/journal/categories", token, models.CategoryRequest{Name: "Work"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, app, "POST", "/api/notes", token, models.NoteRequest{Content: "no title"})
	assert.Equal(t, http.StatusBadRequest, status)

	for i := 1; i <= 3; i++ {
		req := models.NoteRequest{Title: fmt.Sprintf("note %d", i), Content: "standup notes"}
		if i == 2 {
			req.CategoryID = &work.ID
		}
		status, raw = doJSON(t, app, "POST", "/api/notes", token, req)
		require.Equal(t, http.StatusCreated, status, string(raw))
	}

	status, raw = doJSON(t, app, "GET", "/api/notes?limit=2&page=1", token, nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[models.Page[models.Note]](t, raw)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Len(t, page.Items, 2)

	status, raw = doJSON(t, app, "GET", "/api/notes?limit=2&page=2", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[models.Page[models.Note]](t, raw).Items, 1)

	status, raw = doJSON(t, app, "GET", fmt.Sprintf("/api/notes?category_id=%d", work.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	filtered := decode[models.Page[models.Note]](t, raw)
	require.Equal(t, 1, filtered.Total)
	assert.Equal(t, "note 2", filtered.Items[0].Title)

	status, raw = doJSON(t, app, "GET", "/api/notes?q=note%203", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[models.Page[models.Note]](t, raw).Total)

	// Deleting the category keeps its notes, uncategorized.
	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/journal/categories/%d", work.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	status, raw = doJSON(t, app, "GET", fmt.Sprintf("/api/notes/%d", filtered.Items[0].ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, decode[models.Note](t, raw).CategoryID)
}

func TestNoteRejectsForeignCategory(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")

	status, raw := doJSON(t, app, "POST", "/api/journal/categories", alice, models.CategoryRequest{Name: "Mine"})
	require.Equal(t, http.StatusCreated, status)
	cat := decode[models.JournalCategory](t, raw)

	status, _ = doJSON(t, app, "POST", "/api/notes", bob, models.NoteRequest{Title: "sneaky", CategoryID: &cat.ID})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLinks(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "linker")

	for _, bad := range []string{"", "ftp://example.com", "example.com", "https://"} {
		status, _ := doJSON(t, app, "POST", "/api/links", token, models.LinkRequest{URL: bad})
		assert.Equal(t, http.StatusBadRequest, status, bad)
	}

	status, raw := doJSON(t, app, "POST", "/api/links", token, models.LinkRequest{URL: "https://go.dev/doc"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	link := decode[models.Link](t, raw)
	assert.Equal(t, "go.dev", link.Title)

	status, raw = doJSON(t, app, "PUT", fmt.Sprintf("/api/links/%d", link.ID), token,
		models.LinkRequest{Title: "Go docs", URL: "https://go.dev/doc/"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "Go docs", decode[models.Link](t, raw).Title)

	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/links/%d", link.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	status, raw = doJSON(t, app, "GET", "/api/links", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]models.Link](t, raw))
}

func TestFileUploadDownloadDelete(t *testing.T) {
	db := setupTestDB(t)
	cfg := config.DefaultConfig()
	cfg.UploadDir = t.TempDir()
	cfg.MaxUploadMB = 1
	app := setupTestAppWithConfig(db, cfg)
	token := register(t, app, "uploader")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("quarterly numbers"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/files", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	f := decode[models.StoredFile](t, raw)
	assert.Equal(t, "report.txt", f.OriginalName)
	assert.EqualValues(t, len("quarterly numbers"), f.Size)

	entries, err := os.ReadDir(cfg.UploadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEqual(t, "report.txt", entries[0].Name())

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/files/%d/download", f.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "quarterly numbers", string(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "report.txt")

	status, _ := doJSON(t, app, "DELETE", fmt.Sprintf("/api/files/%d", f.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	entries, err = os.ReadDir(cfg.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	status, _ = doJSON(t, app, "GET", fmt.Sprintf("/api/files/%d/download", f.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUploadRequiresFileField(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "nofile")

	status, _ := doJSON(t, app, "POST", "/api/files", token, map[string]string{"file": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTasks(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "tasker")

	status, _ := doJSON(t, app, "POST", "/api/tasks", token, models.TaskRequest{Title: "x", Status: "blocked"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw := doJSON(t, app, "POST", "/api/tasks", token, models.TaskRequest{Title: "Write report", Priority: 2})
	require.Equal(t, http.StatusCreated, status, string(raw))
	task := decode[models.Task](t, raw)
	assert.Equal(t, "todo", task.Status)

	status, raw = doJSON(t, app, "POST", "/api/tasks", token, models.TaskRequest{Title: "Ship", Status: "in_progress"})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, raw = doJSON(t, app, "PUT", fmt.Sprintf("/api/tasks/%d", task.ID), token,
		models.TaskRequest{Title: "Write report", Status: "done", DueDate: "2024-06-01"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "done", decode[models.Task](t, raw).Status)

	status, raw = doJSON(t, app, "GET", "/api/tasks?status=done", token, nil)
	require.Equal(t, http.StatusOK, status)
	done := decode[[]models.Task](t, raw)
	require.Len(t, done, 1)
	assert.Equal(t, "2024-06-01", done[0].DueDate)

	status, _ = doJSON(t, app, "GET", "/api/tasks?status=later", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFinanceSummary(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "saver")

	txs := []models.TransactionRequest{
		{Kind: "income", AmountCents: 500000, Category: "salary", Date: "2024-03-01"},
		{Kind: "expense", AmountCents: 120000, Category: "rent", Date: "2024-03-02"},
		{Kind: "expense", AmountCents: 4550, Category: "food", Date: "2024-03-05"},
		{Kind: "expense", AmountCents: 999, Category: "food", Date: "2024-04-01"},
	}
	for _, tx := range txs {
		status, raw := doJSON(t, app, "POST", "/api/finance/transactions", token, tx)
		require.Equal(t, http.StatusCreated, status, string(raw))
	}

	status, _ := doJSON(t, app, "POST", "/api/finance/transactions", token,
		models.TransactionRequest{Kind: "gift", AmountCents: 1, Date: "2024-03-01"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = doJSON(t, app, "POST", "/api/finance/transactions", token,
		models.TransactionRequest{Kind: "expense", AmountCents: -5, Date: "2024-03-01"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw := doJSON(t, app, "GET", "/api/finance/summary?from=2024-03-01&to=2024-03-31", token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	sum := decode[models.FinanceSummary](t, raw)
	assert.EqualValues(t, 500000, sum.IncomeCents)
	assert.EqualValues(t, 124550, sum.ExpenseCents)
	assert.EqualValues(t, 375450, sum.BalanceCents)
	assert.Equal(t, map[string]int64{"salary": 500000, "rent": -120000, "food": -4550}, sum.ByCategory)

	status, raw = doJSON(t, app, "GET", "/api/finance/transactions?from=2024-04-01", token, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[[]models.Transaction](t, raw)
	require.Len(t, list, 1)

	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/finance/transactions/%d", list[0].ID), token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, "GET", "/api/finance/summary?from=2024-04-02&to=2024-04-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
