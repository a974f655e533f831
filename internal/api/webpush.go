package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"step26/internal/config"
	"step26/internal/logger"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// PushPayload is the JSON body delivered to the service worker.
type PushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Badge string         `json:"badge,omitempty"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type sendFunc func(message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// pusher delivers web push notifications with the configured VAPID keys.
type pusher struct {
	cfg  config.PushConfig
	send sendFunc
}

func newPusher(cfg config.PushConfig) *pusher {
	return &pusher{cfg: cfg, send: webpush.SendNotification}
}

func (p *pusher) Enabled() bool {
	return p.cfg.Enabled()
}

func (p *pusher) options() *webpush.Options {
	return &webpush.Options{
		Subscriber:      p.cfg.Subject,
		VAPIDPublicKey:  p.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: p.cfg.VAPIDPrivateKey,
		TTL:             30,
	}
}

// SendToUser pushes payload to every subscription of the user. Gone (404,
// 410) and key-mismatched (403) subscriptions are deleted so the client
// re-subscribes.
func (p *pusher) SendToUser(db *sql.DB, userID int, payload PushPayload) error {
	if !p.Enabled() {
		logger.Debug("Web push not configured, skipping notification", "user_id", userID)
		return nil
	}

	subs, err := userSubscriptions(db, userID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return fmt.Errorf("no push subscriptions found for user %d", userID)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	options := p.options()
	var stale []string
	sent, failed := 0, 0
	for _, sub := range subs {
		resp, err := p.send(body, sub, options)
		if err != nil {
			failed++
			logger.Warn("Push send failed", "user_id", userID, "error", err)
			if resp != nil && (resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound) {
				stale = append(stale, sub.Endpoint)
			}
			continue
		}

		status := resp.StatusCode
		if status >= 400 {
			msg, _ := io.ReadAll(resp.Body)
			logger.Warn("Push service rejected notification", "user_id", userID, "status", status, "response", string(msg))
		}
		resp.Body.Close()

		switch {
		case status == http.StatusForbidden, status == http.StatusGone, status == http.StatusNotFound:
			stale = append(stale, sub.Endpoint)
			failed++
		case status >= 400:
			failed++
		default:
			sent++
		}
	}

	for _, endpoint := range stale {
		if _, err := db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint); err != nil {
			logger.Warn("Failed to remove stale subscription", "error", err)
		}
	}

	logger.Info("Push notification summary", "user_id", userID, "subscriptions", len(subs), "sent", sent, "failed", failed)
	if sent == 0 {
		return fmt.Errorf("failed to send any push notifications (attempted %d)", failed)
	}
	return nil
}

func userSubscriptions(db *sql.DB, userID int) ([]*webpush.Subscription, error) {
	rows, err := db.Query("SELECT endpoint, p256dh, auth FROM push_subscriptions WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*webpush.Subscription
	for rows.Next() {
		s := &webpush.Subscription{}
		if err := rows.Scan(&s.Endpoint, &s.Keys.P256dh, &s.Keys.Auth); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
