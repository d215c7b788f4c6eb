package services

import (
	"context"
	"fmt"

	"github.com/upiguard/upiguard/internal/cache"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/records"
	"github.com/upiguard/upiguard/internal/repository"
	"go.uber.org/zap"
)

const allRecordsKey = "all"

// RecordService handles the payment identity risk records
type RecordService struct {
	repo   repository.RecordRepository
	cache  *cache.ViewCache[[]models.UPIRecord]
	logger *zap.SugaredLogger
}

// NewRecordService creates a new record service. listCache may be nil.
func NewRecordService(repo repository.RecordRepository, listCache *cache.ViewCache[[]models.UPIRecord], logger *zap.SugaredLogger) *RecordService {
	return &RecordService{repo: repo, cache: listCache, logger: logger}
}

// List returns records matching the filter. Only the unfiltered list is cached.
func (s *RecordService) List(ctx context.Context, filter repository.RecordFilter) ([]models.UPIRecord, error) {
	unfiltered := filter.Search == "" && filter.Status == ""
	if unfiltered && s.cache != nil {
		if recs, ok := s.cache.Get(ctx, allRecordsKey); ok {
			return *recs, nil
		}
	}

	recs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if unfiltered && s.cache != nil {
		s.cache.Set(ctx, allRecordsKey, &recs)
	}
	return recs, nil
}

// Get returns one record
func (s *RecordService) Get(ctx context.Context, id string) (*models.UPIRecord, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new record under a server-assigned id
func (s *RecordService) Create(ctx context.Context, rec models.UPIRecord) (*models.UPIRecord, error) {
	rec.ID = ""
	if err := s.repo.Create(ctx, &rec); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Infow("Record created", "id", rec.ID, "upi_id", rec.UPIID, "status", rec.Status)
	return &rec, nil
}

// Update applies a partial update
func (s *RecordService) Update(ctx context.Context, id string, patch models.UPIRecordPatch) (*models.UPIRecord, error) {
	rec, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return rec, nil
}

// Delete removes a record
func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Infow("Record deleted", "id", id)
	return nil
}

// Stats returns the dashboard totals over every record
func (s *RecordService) Stats(ctx context.Context) (models.RecordStats, error) {
	recs, err := s.List(ctx, repository.RecordFilter{})
	if err != nil {
		return models.RecordStats{}, err
	}
	return records.ComputeStats(recs), nil
}

// SeedIfEmpty inserts sample records into an empty table and reports how
// many were written
func (s *RecordService) SeedIfEmpty(ctx context.Context, sample []models.UPIRecord) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	for i := range sample {
		rec := sample[i]
		if err := s.repo.Create(ctx, &rec); err != nil {
			return i, fmt.Errorf("seed record %s: %w", rec.ID, err)
		}
	}
	s.invalidate(ctx)
	s.logger.Infow("Seeded sample records", "count", len(sample))
	return len(sample), nil
}

func (s *RecordService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Delete(ctx, allRecordsKey)
	}
}
