// Package services contains business logic layers.
// Services are called by handlers and talk to repositories and storage.
package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/evidence"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/repository"
	"github.com/upiguard/upiguard/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated is returned when an operation has no session user
	ErrUnauthenticated = errors.New("user not authenticated")
	// ErrMissingFields is returned when a report is submitted without the
	// fields a submission needs
	ErrMissingFields = errors.New("please fill in all required fields")
	// ErrInvalidTransition is returned when submitting a report that is no
	// longer a draft
	ErrInvalidTransition = errors.New("only draft reports can be submitted")
	// ErrNotFound is returned when the report does not exist for this user
	ErrNotFound = repository.ErrNotFound
)

// EvidenceUpload is one attachment handed to UploadEvidence
type EvidenceUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ReportService handles report business logic
type ReportService struct {
	repo     repository.ReportRepository
	bucket   storage.Bucket
	activity *ActivityLogService
	notifier PoliceNotifier
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewReportService creates a new report service
func NewReportService(repo repository.ReportRepository, bucket storage.Bucket, activity *ActivityLogService, notifier PoliceNotifier, logger *zap.SugaredLogger) *ReportService {
	return &ReportService{
		repo:     repo,
		bucket:   bucket,
		activity: activity,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateReport stores a new report owned by userID. A report created
// directly in the submitted state must carry every required field and
// may trigger a police notification.
func (s *ReportService) CreateReport(ctx context.Context, userID uuid.UUID, in models.ReportInput) (*models.Report, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	status := in.Status
	if status == "" {
		status = models.ReportDraft
	}
	urgency := in.Urgency
	if urgency == "" {
		urgency = models.UrgencyMedium
	}

	now := s.now().UTC()
	report := &models.Report{
		ID:                  uuid.New(),
		UserID:              userID,
		ReportedUPIID:       in.ReportedUPIID,
		ReportedFullName:    in.ReportedFullName,
		ReportedPhoneNumber: in.ReportedPhoneNumber,
		ReportedAddress:     in.ReportedAddress,
		AmountInvolved:      in.AmountInvolved,
		TransactionID:       in.TransactionID,
		TransactionDate:     in.TransactionDate,
		Category:            in.Category,
		Urgency:             urgency,
		Description:         in.Description,
		Status:              status,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if status == models.ReportSubmitted {
		if err := checkSubmittable(report); err != nil {
			return nil, err
		}
		report.SubmittedAt = &now
	}

	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.logActivity(ctx, report, models.ActivityCreated, "Report created as "+string(status))
	s.logger.Infow("Report created",
		"report_id", report.ID,
		"user_id", userID,
		"status", status,
		"category", report.Category,
	)

	if status == models.ReportSubmitted {
		s.logActivity(ctx, report, models.ActivitySubmitted, "Report submitted")
		s.notifyPolice(ctx, report)
	}
	return report, nil
}

// SubmitReport moves a draft report to submitted
func (s *ReportService) SubmitReport(ctx context.Context, userID, reportID uuid.UUID) (*models.Report, error) {
	report, err := s.GetReport(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportDraft {
		return nil, fmt.Errorf("%w: report is %s", ErrInvalidTransition, report.Status)
	}
	if err := checkSubmittable(report); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	report.Status = models.ReportSubmitted
	report.SubmittedAt = &now
	report.UpdatedAt = now
	if err := s.repo.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("submit report: %w", err)
	}

	s.logActivity(ctx, report, models.ActivitySubmitted, "Report submitted")
	s.notifyPolice(ctx, report)
	return report, nil
}

// UpdateReport applies a partial update to one of the user's reports
func (s *ReportService) UpdateReport(ctx context.Context, userID, reportID uuid.UUID, patch models.ReportPatch) (*models.Report, error) {
	report, err := s.GetReport(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*report)
	updated.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveReport(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}

	s.logActivity(ctx, &updated, models.ActivityUpdated, "Report details updated")
	return &updated, nil
}

// GetUserReports lists the user's reports, newest first
func (s *ReportService) GetUserReports(ctx context.Context, userID uuid.UUID) ([]models.Report, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListReports(ctx, userID)
}

// GetReport returns one of the user's reports
func (s *ReportService) GetReport(ctx context.Context, userID, reportID uuid.UUID) (*models.Report, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.repo.GetReport(ctx, userID, reportID)
}

// GetEvidenceFiles lists a report's attachments, newest first
func (s *ReportService) GetEvidenceFiles(ctx context.Context, userID, reportID uuid.UUID) ([]models.EvidenceFile, error) {
	if _, err := s.GetReport(ctx, userID, reportID); err != nil {
		return nil, err
	}
	return s.repo.ListEvidence(ctx, reportID)
}

// GetActivity returns a report's timeline, newest first
func (s *ReportService) GetActivity(ctx context.Context, userID, reportID uuid.UUID, limit int) ([]models.ReportActivity, error) {
	if _, err := s.GetReport(ctx, userID, reportID); err != nil {
		return nil, err
	}
	return s.activity.FetchByReport(ctx, reportID, limit)
}

// Summary counts the user's reports by category and status
func (s *ReportService) Summary(ctx context.Context, userID uuid.UUID) (*models.ReportSummary, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.repo.Summary(ctx, userID)
}

// DeleteReport removes a report. Evidence rows and the timeline go with it;
// stored objects are removed afterwards and a failure there is only logged.
func (s *ReportService) DeleteReport(ctx context.Context, userID, reportID uuid.UUID) error {
	files, err := s.GetEvidenceFiles(ctx, userID, reportID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteReport(ctx, userID, reportID); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}

	for _, f := range files {
		if err := s.bucket.Remove(ctx, f.StoragePath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warnw("Failed to remove evidence object",
				"report_id", reportID,
				"path", f.StoragePath,
				"error", err,
			)
		}
	}

	s.logger.Infow("Report deleted", "report_id", reportID, "evidence_files", len(files))
	return nil
}

// UploadEvidence stores one attachment and its metadata row. Type and size
// are checked before storage is touched. If the row cannot be written the
// stored object is removed again.
func (s *ReportService) UploadEvidence(ctx context.Context, userID, reportID uuid.UUID, up EvidenceUpload) (*models.EvidenceFile, error) {
	meta := evidence.File{Name: up.FileName, ContentType: up.ContentType, Size: up.Size}
	if err := evidence.Validate(meta); err != nil {
		return nil, err
	}
	report, err := s.GetReport(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}

	// read one byte past the cap so an understated Size is still caught
	data, err := io.ReadAll(io.LimitReader(up.Body, evidence.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	meta.Size = int64(len(data))
	if err := evidence.Validate(meta); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	path := fmt.Sprintf("evidence/%s_%s%s", reportID, uuid.NewString(), evidence.Extension(up.FileName))

	if err := s.bucket.Upload(ctx, path, up.ContentType, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("upload evidence: %w", err)
	}

	file := &models.EvidenceFile{
		ID:          uuid.New(),
		ReportID:    reportID,
		FileName:    up.FileName,
		FileSize:    meta.Size,
		FileType:    up.ContentType,
		FileURL:     s.bucket.PublicURL(path),
		StoragePath: path,
		Checksum:    hex.EncodeToString(sum[:]),
		UploadedAt:  s.now().UTC(),
	}

	if err := s.repo.InsertEvidence(ctx, file); err != nil {
		if rmErr := s.bucket.Remove(ctx, path); rmErr != nil {
			s.logger.Errorw("Orphaned evidence object",
				"report_id", reportID,
				"path", path,
				"error", rmErr,
			)
		}
		return nil, fmt.Errorf("save evidence metadata: %w", err)
	}

	s.logActivity(ctx, report, models.ActivityEvidenceUploaded, "Uploaded "+up.FileName)
	return file, nil
}

// notifyPolice sends the police contact for categories that warrant it.
// A notifier failure leaves the report submitted but unflagged.
func (s *ReportService) notifyPolice(ctx context.Context, report *models.Report) {
	if !report.Category.NotifiesPolice() {
		return
	}

	phone := report.ReportedPhoneNumber
	if phone == "" {
		phone = UnknownPhone
	}

	res, err := s.notifier.Notify(ctx, phone, PoliceContact)
	if err != nil {
		s.logger.Warnw("Police notification failed", "report_id", report.ID, "error", err)
		return
	}

	sent := s.now().UTC()
	report.PoliceNotified = true
	report.NotificationSentAt = &sent
	if err := s.repo.SaveReport(ctx, report); err != nil {
		s.logger.Warnw("Failed to flag report as notified", "report_id", report.ID, "error", err)
		return
	}
	s.logActivity(ctx, report, models.ActivityNotified, res.Message)
}

func (s *ReportService) logActivity(ctx context.Context, report *models.Report, activityType, description string) {
	if err := s.activity.Log(ctx, report.ID, report.UserID, activityType, description); err != nil {
		s.logger.Warnw("Failed to log report activity", "report_id", report.ID, "error", err)
	}
}

// checkSubmittable enforces the fields a submitted report must carry
func checkSubmittable(r *models.Report) error {
	if r.ReportedUPIID == "" || r.ReportedFullName == "" ||
		!r.AmountInvolved.IsPositive() || r.TransactionDate == "" ||
		r.Category == "" || r.Description == "" {
		return ErrMissingFields
	}
	return nil
}
