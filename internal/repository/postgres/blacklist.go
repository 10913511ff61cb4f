package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/blacklist-api/internal/domain"
	"github.com/ignite/blacklist-api/internal/service/blacklist"
)

// BlacklistRepo implements blacklist.Repository against PostgreSQL.
type BlacklistRepo struct{ db *sql.DB }

// NewBlacklistRepo creates a Postgres-backed blacklist repository.
func NewBlacklistRepo(db *sql.DB) *BlacklistRepo { return &BlacklistRepo{db: db} }

func (r *BlacklistRepo) Insert(ctx context.Context, e *domain.BlacklistEntry) error {
	var requestIP sql.NullString
	if e.RequestIP != "" {
		requestIP = sql.NullString{String: e.RequestIP, Valid: true}
	}
	var requestTime sql.NullTime
	if e.RequestTime != nil {
		requestTime = sql.NullTime{Time: *e.RequestTime, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blacklist_entries (id, email, app_uuid, blocked_reason, request_ip, request_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Email, e.AppUUID, e.BlockedReason, requestIP, requestTime, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	return nil
}

func (r *BlacklistRepo) FindByEmail(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	var (
		e           domain.BlacklistEntry
		requestIP   sql.NullString
		requestTime sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, app_uuid, blocked_reason, request_ip, request_time, created_at
		FROM blacklist_entries
		WHERE email = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, email).Scan(&e.ID, &e.Email, &e.AppUUID, &e.BlockedReason, &requestIP, &requestTime, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blacklist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find blacklist entry: %w", err)
	}

	e.RequestIP = requestIP.String
	if requestTime.Valid {
		t := requestTime.Time.UTC()
		e.RequestTime = &t
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func (r *BlacklistRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
