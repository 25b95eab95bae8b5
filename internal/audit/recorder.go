// Package audit persists the portal's auth event trail in postgres. The
// upstream backend owns account truth; this trail exists for operational
// forensics on the gateway itself.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Auth event actions.
const (
	ActionLogin          = "auth.login"
	ActionLoginFailed    = "auth.login_failed"
	ActionRegister       = "auth.register"
	ActionLogout         = "auth.logout"
	ActionSessionExpired = "auth.session_expired"
	ActionVerifyEmail    = "auth.verify_email"
)

// Event is one auth event row.
type Event struct {
	ActorID   string
	Action    string
	IP        string
	UserAgent string
	Meta      map[string]any
	At        time.Time
}

// Recorder writes events and session rows. A nil pool disables the trail;
// every method then drops silently so a portal without postgres still runs.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder returns a Recorder backed by pool.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record persists one event. Best-effort: failures are logged, never
// surfaced to the user flow that triggered them.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.pool == nil {
		return
	}
	if err := r.record(ctx, event); err != nil && r.logger != nil {
		r.logger.Warn("record auth event", slog.String("action", event.Action), slog.Any("error", err))
	}
}

func (r *Recorder) record(ctx context.Context, event Event) error {
	if event.Action == "" {
		return errors.New("audit event requires an action")
	}
	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO auth_events (actor_id, action, ip, user_agent, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, '0001-01-01 00:00:00+00'::timestamptz), NOW()))`,
		event.ActorID, event.Action, event.IP, event.UserAgent, metaJSON, event.At)
	return err
}

// StartSession mirrors an upstream-issued session into portal_sessions.
// Only a hash of the token is stored.
func (r *Recorder) StartSession(ctx context.Context, id, userID, token string, expiresAt time.Time, ip, ua string) {
	if r == nil || r.pool == nil {
		return
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO portal_sessions (id, user_id, token_hash, expires_at, ip, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		id, userID, hashToken(token), expiresAt, ip, ua)
	if err != nil && r.logger != nil {
		r.logger.Warn("record portal session", slog.Any("error", err))
	}
}

// EndSession marks the session row closed.
func (r *Recorder) EndSession(ctx context.Context, id string) {
	if r == nil || r.pool == nil || id == "" {
		return
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE portal_sessions SET ended_at = NOW() WHERE id = $1 AND ended_at IS NULL`, id)
	if err != nil && r.logger != nil {
		r.logger.Warn("end portal session", slog.Any("error", err))
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
