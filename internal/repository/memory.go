package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/records"
)

// MemoryRecords is an in-process RecordRepository
type MemoryRecords struct {
	mu      sync.Mutex
	records []models.UPIRecord
}

// NewMemoryRecords creates an empty in-memory record repository
func NewMemoryRecords() *MemoryRecords {
	return &MemoryRecords{}
}

func (m *MemoryRecords) List(_ context.Context, filter RecordFilter) ([]models.UPIRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := records.FilterAll
	if filter.Status != "" {
		status = records.StatusFilter(filter.Status)
	}
	out := make([]models.UPIRecord, 0, len(m.records))
	for _, r := range m.records {
		if records.Matches(r, filter.Search, status) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryRecords) Get(_ context.Context, id string) (*models.UPIRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRecords) Create(_ context.Context, rec *models.UPIRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	for _, r := range m.records {
		if r.ID == rec.ID {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	rec.CreatedAt = &now
	rec.UpdatedAt = &now
	m.records = append(m.records, *rec)
	return nil
}

func (m *MemoryRecords) Update(_ context.Context, id string, patch models.UPIRecordPatch) (*models.UPIRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.records {
		if r.ID == id {
			updated := patch.Apply(r)
			now := time.Now().UTC()
			updated.UpdatedAt = &now
			m.records[i] = updated
			return &updated, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRecords) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRecords) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.records)), nil
}

// MemoryReports is an in-process ReportRepository
type MemoryReports struct {
	mu          sync.Mutex
	reports     []models.Report
	evidence    []models.EvidenceFile
	evidenceErr error
}

// NewMemoryReports creates an empty in-memory report repository
func NewMemoryReports() *MemoryReports {
	return &MemoryReports{}
}

// WithEvidenceError makes every subsequent InsertEvidence call fail with err
func (m *MemoryReports) WithEvidenceError(err error) *MemoryReports {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evidenceErr = err
	return m
}

func (m *MemoryReports) CreateReport(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, *r)
	return nil
}

func (m *MemoryReports) GetReport(_ context.Context, userID, id uuid.UUID) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.reports {
		if r.ID == id && r.UserID == userID {
			out := r
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryReports) ListReports(_ context.Context, userID uuid.UUID) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Report, 0)
	for i := len(m.reports) - 1; i >= 0; i-- {
		if m.reports[i].UserID == userID {
			out = append(out, m.reports[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryReports) SaveReport(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.reports {
		if existing.ID == r.ID && existing.UserID == r.UserID {
			m.reports[i] = *r
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryReports) DeleteReport(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.reports {
		if r.ID == id && r.UserID == userID {
			m.reports = append(m.reports[:i], m.reports[i+1:]...)
			kept := m.evidence[:0]
			for _, f := range m.evidence {
				if f.ReportID != id {
					kept = append(kept, f)
				}
			}
			m.evidence = kept
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryReports) InsertEvidence(_ context.Context, f *models.EvidenceFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.evidenceErr != nil {
		return m.evidenceErr
	}
	m.evidence = append(m.evidence, *f)
	return nil
}

func (m *MemoryReports) ListEvidence(_ context.Context, reportID uuid.UUID) ([]models.EvidenceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.EvidenceFile, 0)
	for i := len(m.evidence) - 1; i >= 0; i-- {
		if m.evidence[i].ReportID == reportID {
			out = append(out, m.evidence[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (m *MemoryReports) Summary(_ context.Context, userID uuid.UUID) (*models.ReportSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byCategory := map[models.ReportCategory]int{}
	byStatus := map[models.ReportStatus]int{}
	summary := &models.ReportSummary{
		ByCategory: make([]models.CategoryDistribution, 0),
		ByStatus:   make([]models.StatusDistribution, 0),
	}
	for _, r := range m.reports {
		if r.UserID != userID {
			continue
		}
		summary.Total++
		if r.Category != "" {
			byCategory[r.Category]++
		}
		byStatus[r.Status]++
	}
	for cat, n := range byCategory {
		summary.ByCategory = append(summary.ByCategory, models.CategoryDistribution{Category: cat, Count: n})
	}
	for st, n := range byStatus {
		summary.ByStatus = append(summary.ByStatus, models.StatusDistribution{Status: st, Count: n})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		a, b := summary.ByCategory[i], summary.ByCategory[j]
		return a.Count > b.Count || (a.Count == b.Count && a.Category < b.Category)
	})
	sort.Slice(summary.ByStatus, func(i, j int) bool {
		a, b := summary.ByStatus[i], summary.ByStatus[j]
		return a.Count > b.Count || (a.Count == b.Count && a.Status < b.Status)
	})
	return summary, nil
}

// MemoryActivity is an in-process ActivityRepository
type MemoryActivity struct {
	mu   sync.Mutex
	logs []models.ReportActivity
}

// NewMemoryActivity creates an empty in-memory activity repository
func NewMemoryActivity() *MemoryActivity {
	return &MemoryActivity{}
}

func (m *MemoryActivity) Log(_ context.Context, a *models.ReportActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *a)
	return nil
}

func (m *MemoryActivity) ListByReport(_ context.Context, reportID uuid.UUID, limit int) ([]models.ReportActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ReportActivity, 0)
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.logs[i].ReportID == reportID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

// MemoryUsers is an in-process UserRepository
type MemoryUsers struct {
	mu    sync.Mutex
	users []models.User
}

// NewMemoryUsers creates an empty in-memory user repository
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{}
}

func (m *MemoryUsers) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	m.users = append(m.users, *u)
	return nil
}

func (m *MemoryUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUsers) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID == id {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}
