package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/repository"
	"go.uber.org/zap"
)

// DefaultActivityLimit caps a timeline read when the caller gives no limit
const DefaultActivityLimit = 50

// ActivityLogService handles the report timeline
type ActivityLogService struct {
	repo   repository.ActivityRepository
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewActivityLogService creates a new activity log service
func NewActivityLogService(repo repository.ActivityRepository, logger *zap.SugaredLogger) *ActivityLogService {
	return &ActivityLogService{repo: repo, logger: logger, now: time.Now}
}

// Log records something that happened to a report
func (s *ActivityLogService) Log(ctx context.Context, reportID, userID uuid.UUID, activityType, description string) error {
	entry := &models.ReportActivity{
		ID:          uuid.New(),
		ReportID:    reportID,
		UserID:      userID,
		Type:        activityType,
		Description: description,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}

	s.logger.Infow("Activity logged",
		"report_id", reportID,
		"type", activityType,
		"action", description,
	)

	return nil
}

// FetchByReport returns a report's timeline, newest first
func (s *ActivityLogService) FetchByReport(ctx context.Context, reportID uuid.UUID, limit int) ([]models.ReportActivity, error) {
	if limit <= 0 || limit > DefaultActivityLimit {
		limit = DefaultActivityLimit
	}
	return s.repo.ListByReport(ctx, reportID, limit)
}
