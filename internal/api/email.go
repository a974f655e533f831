package api

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"step26/internal/config"
	"step26/internal/logger"
	"step26/internal/models"

	"gopkg.in/gomail.v2"
)

//go:embed templates/habit_reminder.html
var templateFS embed.FS

var reminderTemplate = template.Must(template.ParseFS(templateFS, "templates/habit_reminder.html"))

type reminderEmailData struct {
	Username string
	Date     string
	Habits   []models.Habit
	AppURL   string
	Year     int
}

// mailer sends HTML email through the configured SMTP relay.
type mailer struct {
	cfg  config.SMTPConfig
	send func(*gomail.Message) error

	mu       sync.Mutex
	lastTest time.Time
}

func newMailer(cfg config.SMTPConfig) *mailer {
	m := &mailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

func (m *mailer) Enabled() bool {
	return m.cfg.Enabled()
}

func (m *mailer) dialAndSend(msg *gomail.Message) error {
	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if m.cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: m.cfg.Host}
		d.SSL = m.cfg.Port == 465
	}
	return d.DialAndSend(msg)
}

func renderReminderEmail(data reminderEmailData) (string, error) {
	var buf bytes.Buffer
	if err := reminderTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return buf.String(), nil
}

func plainReminder(data reminderEmailData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nStill open today (%s):\n", data.Username, data.Date)
	for _, h := range data.Habits {
		fmt.Fprintf(&b, "  - %s\n", h.Name)
	}
	fmt.Fprintf(&b, "\n%s\n", data.AppURL)
	return b.String()
}

// SendHabitReminder emails the list of habits still pending on date.
func (m *mailer) SendHabitReminder(to, username, date string, pending []models.Habit) error {
	if !m.Enabled() {
		logger.Debug("SMTP not configured, skipping email", "to", to)
		return nil
	}

	data := reminderEmailData{
		Username: username,
		Date:     date,
		Habits:   pending,
		AppURL:   m.cfg.AppURL,
		Year:     time.Now().Year(),
	}
	html, err := renderReminderEmail(data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", reminderSubject(len(pending)))
	msg.SetBody("text/plain", plainReminder(data))
	msg.AddAlternative("text/html", html)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	logger.Info("Reminder email sent", "to", to, "habits", len(pending))
	return nil
}

func reminderSubject(n int) string {
	if n == 1 {
		return "1 habit left today"
	}
	return fmt.Sprintf("%d habits left today", n)
}
