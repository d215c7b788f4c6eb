package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/upiguard/upiguard/internal/models"
)

// PostgresUsers is the pgx-backed UserRepository
type PostgresUsers struct {
	db *pgxpool.Pool
}

// NewPostgresUsers creates a user repository on the given pool
func NewPostgresUsers(db *pgxpool.Pool) *PostgresUsers {
	return &PostgresUsers{db: db}
}

// CreateUser inserts an account; emails are stored lower-cased
func (p *PostgresUsers) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := p.db.Exec(ctx, `
		INSERT INTO users (id, email, full_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Email, u.FullName, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail looks up an account by email
func (p *PostgresUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := p.db.QueryRow(ctx, `SELECT id, email, full_name, password_hash, created_at FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// GetUser looks up an account by id
func (p *PostgresUsers) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := p.db.QueryRow(ctx, `SELECT id, email, full_name, password_hash, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// PostgresActivity is the pgx-backed ActivityRepository
type PostgresActivity struct {
	db *pgxpool.Pool
}

// NewPostgresActivity creates an activity repository on the given pool
func NewPostgresActivity(db *pgxpool.Pool) *PostgresActivity {
	return &PostgresActivity{db: db}
}

// Log appends a timeline entry
func (p *PostgresActivity) Log(ctx context.Context, a *models.ReportActivity) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO report_activity (id, report_id, user_id, activity_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.ReportID, a.UserID, a.Type, a.Description, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListByReport returns a report's timeline, newest first
func (p *PostgresActivity) ListByReport(ctx context.Context, reportID uuid.UUID, limit int) ([]models.ReportActivity, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, report_id, user_id, activity_type, description, created_at
		FROM report_activity
		WHERE report_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, reportID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	logs := make([]models.ReportActivity, 0)
	for rows.Next() {
		var a models.ReportActivity
		if err := rows.Scan(&a.ID, &a.ReportID, &a.UserID, &a.Type, &a.Description, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		logs = append(logs, a)
	}
	return logs, rows.Err()
}
