package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/upiguard/upiguard/internal/models"
)

const reportColumns = `id, user_id, reported_upi_id, reported_full_name, reported_phone_number,
	reported_address, amount_involved, transaction_id, transaction_date, report_category,
	urgency_level, detailed_description, report_status, police_notified, notification_sent_at,
	created_at, updated_at, submitted_at`

const evidenceColumns = `id, report_id, file_name, file_size, file_type, file_url, storage_path, checksum, uploaded_at`

// PostgresReports is the pgx-backed ReportRepository
type PostgresReports struct {
	db *pgxpool.Pool
}

// NewPostgresReports creates a report repository on the given pool
func NewPostgresReports(db *pgxpool.Pool) *PostgresReports {
	return &PostgresReports{db: db}
}

// CreateReport inserts a new report row
func (p *PostgresReports) CreateReport(ctx context.Context, r *models.Report) error {
	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := p.db.Exec(ctx, query,
		r.ID, r.UserID, r.ReportedUPIID, r.ReportedFullName, r.ReportedPhoneNumber,
		r.ReportedAddress, r.AmountInvolved, r.TransactionID, r.TransactionDate, string(r.Category),
		string(r.Urgency), r.Description, string(r.Status), r.PoliceNotified, r.NotificationSentAt,
		r.CreatedAt, r.UpdatedAt, r.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetReport returns one of the user's reports
func (p *PostgresReports) GetReport(ctx context.Context, userID, id uuid.UUID) (*models.Report, error) {
	row := p.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1 AND user_id = $2`, id, userID)
	return scanReport(row)
}

// ListReports returns the user's reports, newest first
func (p *PostgresReports) ListReports(ctx context.Context, userID uuid.UUID) ([]models.Report, error) {
	rows, err := p.db.Query(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// SaveReport writes every mutable column of an existing report
func (p *PostgresReports) SaveReport(ctx context.Context, r *models.Report) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE reports SET
			reported_upi_id = $3, reported_full_name = $4, reported_phone_number = $5,
			reported_address = $6, amount_involved = $7, transaction_id = $8,
			transaction_date = $9, report_category = $10, urgency_level = $11,
			detailed_description = $12, report_status = $13, police_notified = $14,
			notification_sent_at = $15, updated_at = $16, submitted_at = $17
		WHERE id = $1 AND user_id = $2
	`,
		r.ID, r.UserID, r.ReportedUPIID, r.ReportedFullName, r.ReportedPhoneNumber,
		r.ReportedAddress, r.AmountInvolved, r.TransactionID,
		r.TransactionDate, string(r.Category), string(r.Urgency),
		r.Description, string(r.Status), r.PoliceNotified,
		r.NotificationSentAt, r.UpdatedAt, r.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReport removes a report; evidence rows and activity cascade
func (p *PostgresReports) DeleteReport(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM reports WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertEvidence stores the metadata row for an uploaded file
func (p *PostgresReports) InsertEvidence(ctx context.Context, f *models.EvidenceFile) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO evidence_files (`+evidenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, f.ID, f.ReportID, f.FileName, f.FileSize, f.FileType, f.FileURL, f.StoragePath, f.Checksum, f.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert evidence file: %w", err)
	}
	return nil
}

// ListEvidence returns a report's evidence files, newest first
func (p *PostgresReports) ListEvidence(ctx context.Context, reportID uuid.UUID) ([]models.EvidenceFile, error) {
	rows, err := p.db.Query(ctx, `
		SELECT `+evidenceColumns+`
		FROM evidence_files
		WHERE report_id = $1
		ORDER BY uploaded_at DESC
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("query evidence files: %w", err)
	}
	defer rows.Close()

	files := make([]models.EvidenceFile, 0)
	for rows.Next() {
		var f models.EvidenceFile
		if err := rows.Scan(&f.ID, &f.ReportID, &f.FileName, &f.FileSize, &f.FileType,
			&f.FileURL, &f.StoragePath, &f.Checksum, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan evidence file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Summary counts the user's reports per category and per status
func (p *PostgresReports) Summary(ctx context.Context, userID uuid.UUID) (*models.ReportSummary, error) {
	summary := &models.ReportSummary{
		ByCategory: make([]models.CategoryDistribution, 0),
		ByStatus:   make([]models.StatusDistribution, 0),
	}

	rows, err := p.db.Query(ctx, `
		SELECT report_category, COUNT(*) AS count
		FROM reports
		WHERE user_id = $1 AND report_category <> ''
		GROUP BY report_category
		ORDER BY count DESC, report_category
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query category distribution: %w", err)
	}
	for rows.Next() {
		var (
			cat   string
			count int
		)
		if err := rows.Scan(&cat, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan category distribution: %w", err)
		}
		summary.ByCategory = append(summary.ByCategory, models.CategoryDistribution{Category: models.ReportCategory(cat), Count: count})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = p.db.Query(ctx, `
		SELECT report_status, COUNT(*) AS count
		FROM reports
		WHERE user_id = $1
		GROUP BY report_status
		ORDER BY count DESC, report_status
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query status distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status distribution: %w", err)
		}
		summary.ByStatus = append(summary.ByStatus, models.StatusDistribution{Status: models.ReportStatus(status), Count: count})
		summary.Total += count
	}
	return summary, rows.Err()
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var (
		r                         models.Report
		category, urgency, status string
		notifiedAt, submittedAt   *time.Time
	)
	err := row.Scan(&r.ID, &r.UserID, &r.ReportedUPIID, &r.ReportedFullName, &r.ReportedPhoneNumber,
		&r.ReportedAddress, &r.AmountInvolved, &r.TransactionID, &r.TransactionDate, &category,
		&urgency, &r.Description, &status, &r.PoliceNotified, &notifiedAt,
		&r.CreatedAt, &r.UpdatedAt, &submittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	r.Category = models.ReportCategory(category)
	r.Urgency = models.UrgencyLevel(urgency)
	r.Status = models.ReportStatus(status)
	r.NotificationSentAt = notifiedAt
	r.SubmittedAt = submittedAt
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
