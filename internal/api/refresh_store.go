package api

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

var (
	errRefreshNotFound = errors.New("refresh token not found")
	errRefreshRevoked  = errors.New("refresh token revoked")
	errRefreshExpired  = errors.New("refresh token expired")
)

// refreshStore keeps SHA-256 hashes of issued refresh tokens so they can
// be rotated and revoked server-side.
type refreshStore struct {
	db  *sql.DB
	now func() time.Time
}

func newRefreshStore(db *sql.DB) *refreshStore {
	return &refreshStore{db: db, now: time.Now}
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Store records a token. Expiry is stored as unix seconds.
func (s *refreshStore) Store(userID int, token string, expiresAt time.Time, ttlDays int) error {
	_, err := s.db.Exec(
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, ttl_days) VALUES (?, ?, ?, ?)
		ON CONFLICT(token_hash) DO UPDATE SET expires_at = excluded.expires_at, ttl_days = excluded.ttl_days, revoked = 0`,
		userID, hashToken(token), expiresAt.Unix(), ttlDays,
	)
	return err
}

// Validate returns the owner and TTL of a live token.
func (s *refreshStore) Validate(token string) (userID, ttlDays int, err error) {
	var expiresAt int64
	var revoked bool
	err = s.db.QueryRow(
		"SELECT user_id, expires_at, revoked, ttl_days FROM refresh_tokens WHERE token_hash = ?",
		hashToken(token),
	).Scan(&userID, &expiresAt, &revoked, &ttlDays)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, errRefreshNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	if revoked {
		return 0, 0, errRefreshRevoked
	}
	if s.now().Unix() > expiresAt {
		return 0, 0, errRefreshExpired
	}
	return userID, ttlDays, nil
}

func (s *refreshStore) Revoke(token string) error {
	_, err := s.db.Exec("UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?", hashToken(token))
	return err
}

// PurgeExpired deletes revoked and expired rows and reports how many went.
func (s *refreshStore) PurgeExpired() (int64, error) {
	result, err := s.db.Exec(
		"DELETE FROM refresh_tokens WHERE revoked = 1 OR expires_at < ?",
		s.now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
