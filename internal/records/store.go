package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/models"
	"go.uber.org/zap"
)

// OfflineMessage is the error shown whenever Refresh had to substitute the
// fallback dataset
const OfflineMessage = "Using offline data: failed to fetch UPI records"

// maxHistory bounds the finished operations kept for inspection
const maxHistory = 100

// Source tells where the current record set came from
type Source string

const (
	SourceNone     Source = ""
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	// SourcePartial is a remote set carrying at least one mutation the
	// remote never confirmed
	SourcePartial Source = "partial"
)

// SyncState tells whether a single record matches the remote
type SyncState string

const (
	SyncConfirmed SyncState = "confirmed"
	SyncLocalOnly SyncState = "local_only"
)

// Entry is a record together with its sync state
type Entry struct {
	models.UPIRecord
	Sync SyncState `json:"sync"`
}

type OpKind string

const (
	OpAdd    OpKind = "add"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

type OpState string

const (
	OpPending         OpState = "pending"
	OpConfirmed       OpState = "confirmed"
	OpFailedLocalOnly OpState = "failed_local_only"
	// OpFailed is a remote failure for an intent that had nothing to change
	// locally, such as an update of an unknown id
	OpFailed OpState = "failed"
)

// Operation is one mutation intent and how it resolved
type Operation struct {
	ID         uint64     `json:"id"`
	Kind       OpKind     `json:"kind"`
	RecordID   string     `json:"recordId"`
	State      OpState    `json:"state"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Snapshot is a read-only copy of the store state
type Snapshot struct {
	Records     []Entry     `json:"records"`
	Loading     bool        `json:"loading"`
	Error       string      `json:"error,omitempty"`
	Source      Source      `json:"source"`
	Pending     []Operation `json:"pending"`
	Unconfirmed []Operation `json:"unconfirmed"`
}

// Remote is the record API as seen by the store
type Remote interface {
	List(ctx context.Context) ([]models.UPIRecord, error)
	Create(ctx context.Context, rec models.UPIRecord) (*models.UPIRecord, error)
	Update(ctx context.Context, id string, patch models.UPIRecordPatch) (*models.UPIRecord, error)
	Delete(ctx context.Context, id string) error
}

// Store holds the operator's working set of records. Each intent makes one
// remote call and falls back to a local mutation when that call fails.
// There is no retry and no background sync.
type Store struct {
	remote   Remote
	fallback func() []models.UPIRecord
	logger   *zap.SugaredLogger

	mu       sync.Mutex
	records  []Entry
	loading  int
	errMsg   string
	base     Source
	diverged bool
	nextOp   uint64
	pending  map[uint64]*Operation
	history  []Operation

	newID func() string
	now   func() time.Time
}

// NewStore creates an empty store. fallback defaults to FallbackDataset.
func NewStore(remote Remote, fallback func() []models.UPIRecord, logger *zap.SugaredLogger) *Store {
	if fallback == nil {
		fallback = FallbackDataset
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		remote:   remote,
		fallback: fallback,
		logger:   logger,
		pending:  make(map[uint64]*Operation),
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Records:     make([]Entry, len(s.records)),
		Loading:     s.loading > 0,
		Error:       s.errMsg,
		Source:      s.sourceLocked(),
		Pending:     make([]Operation, 0, len(s.pending)),
		Unconfirmed: make([]Operation, 0),
	}
	copy(snap.Records, s.records)
	for _, op := range s.pending {
		snap.Pending = append(snap.Pending, *op)
	}
	sort.Slice(snap.Pending, func(i, j int) bool { return snap.Pending[i].ID < snap.Pending[j].ID })
	for _, op := range s.history {
		if op.State == OpFailedLocalOnly {
			snap.Unconfirmed = append(snap.Unconfirmed, op)
		}
	}
	return snap
}

// Records returns only the record values
func (s *Store) Records() []models.UPIRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UPIRecord, len(s.records))
	for i, e := range s.records {
		out[i] = e.UPIRecord
	}
	return out
}

// Pending lists operations still waiting on the remote, oldest first
func (s *Store) Pending() []Operation {
	return s.Snapshot().Pending
}

// Unconfirmed lists operations since the last refresh that only applied locally
func (s *Store) Unconfirmed() []Operation {
	return s.Snapshot().Unconfirmed
}

// Refresh replaces the record set with the remote list. Any failure,
// including a malformed payload, loads the fallback dataset and sets
// OfflineMessage.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()

	recs, err := s.remote.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--

	// a refresh starts a new baseline
	s.diverged = false
	s.history = s.history[:0]

	if err != nil {
		s.logger.Warnw("Record API unavailable, using fallback dataset", "error", err)
		s.records = entries(s.fallback(), SyncLocalOnly)
		s.base = SourceFallback
		s.errMsg = OfflineMessage
		return
	}
	s.records = entries(recs, SyncConfirmed)
	s.base = SourceRemote
	s.errMsg = ""
}

// Add creates a record. The list grows by one: with the server's record
// when the remote accepts it, otherwise with the local draft under a freshly
// generated id. When a confirmed record's id is already held by a local
// entry, that entry moves to a fresh local-only id so ids stay unique.
func (s *Store) Add(ctx context.Context, rec models.UPIRecord) Entry {
	s.mu.Lock()
	rec.ID = s.uniqueIDLocked()
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = &now, &now
	op := s.beginLocked(OpAdd, rec.ID)
	s.mu.Unlock()

	created, err := s.remote.Create(ctx, rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{UPIRecord: rec, Sync: SyncLocalOnly}
	if err == nil {
		entry = Entry{UPIRecord: *created, Sync: SyncConfirmed}
		op.RecordID = entry.ID
		// the server owns its ids; a different local record holding the same
		// one keeps its data under a fresh id
		if i := s.indexLocked(entry.ID); i >= 0 {
			stale := s.records[i]
			stale.ID = s.uniqueIDLocked(entry.ID)
			stale.Sync = SyncLocalOnly
			s.records[i] = stale
			s.diverged = true
			s.logger.Warnw("Server id already held locally, re-keyed local entry",
				"record_id", entry.ID,
				"new_local_id", stale.ID,
				"name", stale.Name,
			)
		}
	}
	s.records = append(s.records, entry)
	s.finishLocked(op, err, true)
	return entry
}

// Update applies patch to the record with the given id. An unknown id
// leaves the list untouched whichever way the remote answers. It reports
// whether a record was changed.
func (s *Store) Update(ctx context.Context, id string, patch models.UPIRecordPatch) bool {
	s.mu.Lock()
	op := s.beginLocked(OpUpdate, id)
	s.mu.Unlock()

	updated, err := s.remote.Update(ctx, id, patch)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	s.finishLocked(op, err, i >= 0)
	if i < 0 {
		return false
	}
	if err == nil {
		updated.ID = id
		s.records[i] = Entry{UPIRecord: *updated, Sync: SyncConfirmed}
		return true
	}
	rec := patch.Apply(s.records[i].UPIRecord)
	now := s.now()
	rec.UpdatedAt = &now
	s.records[i] = Entry{UPIRecord: rec, Sync: SyncLocalOnly}
	return true
}

// Delete drops the record locally whatever the remote says. The returned
// operation tells whether the remote confirmed.
func (s *Store) Delete(ctx context.Context, id string) Operation {
	s.mu.Lock()
	op := s.beginLocked(OpDelete, id)
	s.mu.Unlock()

	err := s.remote.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i >= 0 {
		s.records = append(s.records[:i], s.records[i+1:]...)
	}
	s.finishLocked(op, err, i >= 0)
	return s.history[len(s.history)-1]
}

func (s *Store) sourceLocked() Source {
	switch {
	case s.base == SourceFallback:
		return SourceFallback
	case s.diverged:
		return SourcePartial
	default:
		return s.base
	}
}

func (s *Store) beginLocked(kind OpKind, recordID string) *Operation {
	s.nextOp++
	op := &Operation{
		ID:        s.nextOp,
		Kind:      kind,
		RecordID:  recordID,
		State:     OpPending,
		StartedAt: s.now(),
	}
	s.pending[op.ID] = op
	return op
}

// finishLocked resolves op. A failure only counts as local-only, and only
// marks the set as diverged, when the intent changed something locally.
func (s *Store) finishLocked(op *Operation, err error, changed bool) {
	delete(s.pending, op.ID)
	finished := s.now()
	op.FinishedAt = &finished
	op.State = OpConfirmed
	switch {
	case err != nil && changed:
		op.State = OpFailedLocalOnly
		op.Error = err.Error()
		s.diverged = true
		s.logger.Warnw("Record change applied locally only",
			"op", op.Kind,
			"record_id", op.RecordID,
			"error", err,
		)
	case err != nil:
		op.State = OpFailed
		op.Error = err.Error()
		s.logger.Warnw("Record change failed, no local record to change",
			"op", op.Kind,
			"record_id", op.RecordID,
			"error", err,
		)
	}
	s.history = append(s.history, *op)
	if len(s.history) > maxHistory {
		s.history = append(s.history[:0], s.history[len(s.history)-maxHistory:]...)
	}
}

// uniqueIDLocked draws ids until one is free in the list and not reserved
func (s *Store) uniqueIDLocked(reserved ...string) string {
	for {
		id := s.newID()
		if id == "" || s.indexLocked(id) >= 0 {
			continue
		}
		taken := false
		for _, r := range reserved {
			taken = taken || r == id
		}
		if !taken {
			return id
		}
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

func entries(recs []models.UPIRecord, sync SyncState) []Entry {
	out := make([]Entry, len(recs))
	for i, r := range recs {
		out[i] = Entry{UPIRecord: r, Sync: sync}
	}
	return out
}
