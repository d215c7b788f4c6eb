// Package repository persists records, reports, evidence metadata,
// report activity and user accounts. Postgres implementations use pgx;
// memory implementations back tests and database-less development runs.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/models"
)

var (
	// ErrNotFound is returned when no row matches the lookup (or the row
	// belongs to another user)
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("already exists")
)

// RecordFilter narrows a record listing. Zero value lists everything.
type RecordFilter struct {
	Search string
	Status models.RecordStatus
}

// RecordRepository stores payment identity risk records
type RecordRepository interface {
	List(ctx context.Context, filter RecordFilter) ([]models.UPIRecord, error)
	Get(ctx context.Context, id string) (*models.UPIRecord, error)
	Create(ctx context.Context, rec *models.UPIRecord) error
	Update(ctx context.Context, id string, patch models.UPIRecordPatch) (*models.UPIRecord, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// ReportRepository stores reports and their evidence metadata.
// Every report read and write is scoped to the owning user.
type ReportRepository interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, userID, id uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, userID uuid.UUID) ([]models.Report, error)
	SaveReport(ctx context.Context, r *models.Report) error
	DeleteReport(ctx context.Context, userID, id uuid.UUID) error
	InsertEvidence(ctx context.Context, f *models.EvidenceFile) error
	ListEvidence(ctx context.Context, reportID uuid.UUID) ([]models.EvidenceFile, error)
	Summary(ctx context.Context, userID uuid.UUID) (*models.ReportSummary, error)
}

// ActivityRepository stores the per-report timeline
type ActivityRepository interface {
	Log(ctx context.Context, a *models.ReportActivity) error
	ListByReport(ctx context.Context, reportID uuid.UUID, limit int) ([]models.ReportActivity, error)
}

// UserRepository stores operator accounts
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}
