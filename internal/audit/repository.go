package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// LoginAttempt is a row of the gateway's authentication audit trail.
type LoginAttempt struct {
	ID          int       `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	Success     bool      `db:"success" json:"success"`
	AttemptedAt time.Time `db:"attempted_at" json:"attempted_at"`
}

// Repository persists authentication events in PostgreSQL.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new audit repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// RecordLoginAttempt appends a login attempt to the audit trail.
func (r *Repository) RecordLoginAttempt(ctx context.Context, email, ipAddress string, success bool) error {
	query := `INSERT INTO login_attempts (email, ip_address, success, attempted_at)
			  VALUES ($1, $2, $3, NOW())`

	if _, err := r.db.ExecContext(ctx, query, email, ipAddress, success); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// RecentAttempts returns the newest attempts for an email, most recent first.
// An empty email returns attempts across all accounts.
func (r *Repository) RecentAttempts(ctx context.Context, email string, limit int) ([]LoginAttempt, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	attempts := []LoginAttempt{}
	var err error
	if email == "" {
		query := `SELECT id, email, ip_address, success, attempted_at
				  FROM login_attempts
				  ORDER BY attempted_at DESC
				  LIMIT $1`
		err = r.db.SelectContext(ctx, &attempts, query, limit)
	} else {
		query := `SELECT id, email, ip_address, success, attempted_at
				  FROM login_attempts
				  WHERE email = $1
				  ORDER BY attempted_at DESC
				  LIMIT $2`
		err = r.db.SelectContext(ctx, &attempts, query, email, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list login attempts: %w", err)
	}

	return attempts, nil
}
