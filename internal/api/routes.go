package api

import (
	"database/sql"

	"step26/internal/config"

	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, db *sql.DB, cfg *config.Config) {
	api := app.Group("/api")

	tokens := newRefreshStore(db)
	push := newPusher(cfg.Push)
	mail := newMailer(cfg.SMTP)
	today := newTodayCache()

	// Public routes
	api.Get("/config", PublicConfigHandler(cfg.DisableRegistration, push.Enabled()))

	auth := api.Group("/auth")
	auth.Post("/register", RegisterHandler(db, tokens, cfg.DisableRegistration))
	auth.Post("/login", LoginHandler(db, tokens))
	auth.Post("/refresh", RefreshTokenHandler(tokens))
	auth.Post("/logout", LogoutHandler(tokens))

	// Must precede the protected group
	api.Get("/push/vapid-public-key", VapidPublicKeyHandler(push))

	// Protected routes
	protected := api.Group("/", AuthMiddleware())

	// Fixed paths are registered before /:id so they are not taken as IDs.
	habits := protected.Group("/habits")
	habits.Get("/today", HabitsTodayHandler(db, today))
	habits.Get("/calendar/day", DayDetailHandler(db))
	habits.Get("/calendar", CalendarOverviewHandler(db))
	habits.Post("/", CreateHabitHandler(db))
	habits.Get("/", ListHabitsHandler(db))
	habits.Get("/:id", GetHabitHandler(db))
	habits.Put("/:id", UpdateHabitHandler(db, today))
	habits.Delete("/:id", DeleteHabitHandler(db, today))
	habits.Get("/:id/calendar", HabitCalendarHandler(db))
	habits.Get("/:id/logs", ListHabitLogsHandler(db))
	habits.Post("/:id/logs", UpsertHabitLogHandler(db, today))
	habits.Put("/:id/logs/:logId", UpdateHabitLogHandler(db, today))
	habits.Delete("/:id/logs/:logId", DeleteHabitLogHandler(db, today))

	journal := protected.Group("/journal/categories")
	journal.Get("/", ListCategoriesHandler(db))
	journal.Post("/", CreateCategoryHandler(db))
	journal.Put("/:id", UpdateCategoryHandler(db))
	journal.Delete("/:id", DeleteCategoryHandler(db))

	notes := protected.Group("/notes")
	notes.Get("/", ListNotesHandler(db))
	notes.Post("/", CreateNoteHandler(db))
	notes.Get("/:id", GetNoteHandler(db))
	notes.Put("/:id", UpdateNoteHandler(db))
	notes.Delete("/:id", DeleteNoteHandler(db))

	links := protected.Group("/links")
	links.Get("/", ListLinksHandler(db))
	links.Post("/", CreateLinkHandler(db))
	links.Put("/:id", UpdateLinkHandler(db))
	links.Delete("/:id", DeleteLinkHandler(db))

	files := protected.Group("/files")
	files.Get("/", ListFilesHandler(db))
	files.Post("/", UploadFileHandler(db, cfg.UploadDir, int64(cfg.MaxUploadMB)*1024*1024))
	files.Get("/:id/download", DownloadFileHandler(db, cfg.UploadDir))
	files.Delete("/:id", DeleteFileHandler(db, cfg.UploadDir))

	tasks := protected.Group("/tasks")
	tasks.Get("/", ListTasksHandler(db))
	tasks.Post("/", CreateTaskHandler(db))
	tasks.Put("/:id", UpdateTaskHandler(db))
	tasks.Delete("/:id", DeleteTaskHandler(db))

	finance := protected.Group("/finance")
	finance.Get("/summary", FinanceSummaryHandler(db))
	finance.Get("/transactions", ListTransactionsHandler(db))
	finance.Post("/transactions", CreateTransactionHandler(db))
	finance.Delete("/transactions/:id", DeleteTransactionHandler(db))

	pushGroup := protected.Group("/push")
	pushGroup.Post("/subscribe", SubscribePushHandler(db))
	pushGroup.Delete("/unsubscribe", UnsubscribePushHandler(db))
	pushGroup.Post("/test", SendTestPushHandler(db, push))

	user := protected.Group("/user")
	user.Get("/profile", GetUserProfileHandler(db))
	user.Put("/email", UpdateUserEmailHandler(db))
	user.Put("/timezone", UpdateTimezoneHandler(db, today))
	user.Post("/email/test", TestEmailHandler(db, mail))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
