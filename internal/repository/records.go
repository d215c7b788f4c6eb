package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/upiguard/upiguard/internal/models"
)

const recordColumns = `id, name, upi_id, score, status, created_at, updated_at`

// PostgresRecords is the pgx-backed RecordRepository
type PostgresRecords struct {
	db *pgxpool.Pool
}

// NewPostgresRecords creates a record repository on the given pool
func NewPostgresRecords(db *pgxpool.Pool) *PostgresRecords {
	return &PostgresRecords{db: db}
}

// List returns records matching the filter, oldest first
func (p *PostgresRecords) List(ctx context.Context, filter RecordFilter) ([]models.UPIRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM upi_records
		WHERE ($1 = '' OR strpos(lower(name), lower($1)) > 0 OR strpos(lower(upi_id), lower($1)) > 0)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := p.db.Query(ctx, query, filter.Search, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]models.UPIRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Get returns one record by id
func (p *PostgresRecords) Get(ctx context.Context, id string) (*models.UPIRecord, error) {
	row := p.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM upi_records WHERE id = $1`, id)
	return scanRecord(row)
}

// Create inserts a record, assigning an id when none is set
func (p *PostgresRecords) Create(ctx context.Context, rec *models.UPIRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := p.db.Exec(ctx, `
		INSERT INTO upi_records (id, name, upi_id, score, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, rec.ID, rec.Name, rec.UPIID, rec.Score, string(rec.Status), now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert record: %w", err)
	}

	rec.CreatedAt = &now
	rec.UpdatedAt = &now
	return nil
}

// Update applies a partial update and returns the stored result
func (p *PostgresRecords) Update(ctx context.Context, id string, patch models.UPIRecordPatch) (*models.UPIRecord, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	row := p.db.QueryRow(ctx, `
		UPDATE upi_records SET
			name       = COALESCE($2, name),
			upi_id     = COALESCE($3, upi_id),
			score      = COALESCE($4, score),
			status     = COALESCE($5, status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+recordColumns,
		id, patch.Name, patch.UPIID, patch.Score, status)
	return scanRecord(row)
}

// Delete removes a record by id
func (p *PostgresRecords) Delete(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM upi_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of records
func (p *PostgresRecords) Count(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.QueryRow(ctx, "SELECT COUNT(*) FROM upi_records").Scan(&count)
	return count, err
}

func scanRecord(row pgx.Row) (*models.UPIRecord, error) {
	var (
		rec                  models.UPIRecord
		status               string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.UPIID, &rec.Score, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	rec.Status = models.RecordStatus(status)
	rec.CreatedAt = &createdAt
	rec.UpdatedAt = &updatedAt
	return &rec, nil
}
