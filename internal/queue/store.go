// Package queue implements the durable job queue over an opaque blob
// backend. The whole queue lives in a single JSON document that is always
// read in full and written in full, so a failed write can lose at most the
// last mutation and never leaves partial state behind.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/davet/jobdigest/internal/domain"
	"github.com/davet/jobdigest/internal/logger"
	"github.com/davet/jobdigest/internal/storage"
)

const stateContentType = "application/json"

// Store persists QueueState behind a narrow read-modify-write contract.
// Read paths degrade to the empty state instead of failing; write paths
// surface wrapped errors and never persist a partially mutated document.
//
// The backend offers no transactions or conditional writes, so Store
// assumes a single writer per document. Overlapping invocations are a
// deployment-level concern.
type Store struct {
	backend storage.ObjectStore
	key     string
	logger  *logger.Logger
	now     func() time.Time
}

// NewStore creates a queue store over the given backend and document key.
func NewStore(backend storage.ObjectStore, key string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Store{
		backend: backend,
		key:     key,
		logger:  log.WithField(logger.FieldComponent, "queue"),
		now:     time.Now,
	}
}

// emptyState returns the canonical empty queue document.
func (s *Store) emptyState() *domain.QueueState {
	return &domain.QueueState{
		JobQueue:      []domain.JobRecord{},
		LastProcessed: s.now().UTC(),
	}
}

// load reads and parses the document, returning an error for callers that
// need to distinguish degraded reads (Stats). A missing document is not an
// error: the queue is created empty on first access.
func (s *Store) load(ctx context.Context) (*domain.QueueState, error) {
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if err == storage.ErrNotFound {
			return s.emptyState(), nil
		}
		return nil, fmt.Errorf("failed to read queue document %q: %w", s.key, err)
	}
	return s.parse(data)
}

// parse normalizes whatever shape is on disk into the full schema. Two
// shapes are accepted: the canonical QueueState object, and the superseded
// flat array of job records from the old accumulate-only scheme.
func (s *Store) parse(data []byte) (*domain.QueueState, error) {
	var state domain.QueueState
	if err := json.Unmarshal(data, &state); err != nil {
		// Legacy documents were a bare array of records.
		var legacy []domain.JobRecord
		if legacyErr := json.Unmarshal(data, &legacy); legacyErr != nil {
			return nil, fmt.Errorf("failed to parse queue document %q: %w", s.key, err)
		}
		state = domain.QueueState{
			JobQueue:           legacy,
			TotalJobsProcessed: len(legacy),
		}
	}

	if state.JobQueue == nil {
		state.JobQueue = []domain.JobRecord{}
	}
	for i := range state.JobQueue {
		if state.JobQueue[i].Status == "" {
			state.JobQueue[i].Status = domain.JobStatusPending
		}
	}
	if state.LastProcessed.IsZero() {
		state.LastProcessed = s.now().UTC()
	}
	return &state, nil
}

// persist writes the whole document in one backend call.
func (s *Store) persist(ctx context.Context, state *domain.QueueState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode queue document: %w", err)
	}
	if err := s.backend.Put(ctx, s.key, data, stateContentType); err != nil {
		return fmt.Errorf("failed to write queue document %q: %w", s.key, err)
	}
	return nil
}

// State returns the current queue document. It never fails observably:
// retrieval or parse errors degrade to the canonical empty state.
func (s *Store) State(ctx context.Context) *domain.QueueState {
	state, err := s.load(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Degrading to empty queue state")
		return s.emptyState()
	}
	return state
}

// AddNewJobs appends the given metadata records as pending entries.
// Records without a guid are skipped and counted; records whose guid is
// already queued are silently ignored, making enqueue idempotent. Nothing
// is written when no record survives filtering.
func (s *Store) AddNewJobs(ctx context.Context, metas []domain.JobMetadata) (*domain.QueueState, error) {
	// Mutations must not build on a degraded read: persisting a state
	// reconstructed from a failed Get would overwrite every prior record.
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return state, nil
	}

	seen := make(map[string]struct{}, len(state.JobQueue))
	for i := range state.JobQueue {
		seen[state.JobQueue[i].GUID] = struct{}{}
	}

	now := s.now().UTC()
	added := 0
	missingGUID := 0
	for _, meta := range metas {
		if meta.GUID == "" {
			missingGUID++
			continue
		}
		if _, dup := seen[meta.GUID]; dup {
			continue
		}
		seen[meta.GUID] = struct{}{}
		state.JobQueue = append(state.JobQueue, domain.JobRecord{
			GUID:         meta.GUID,
			JobNumber:    meta.JobNumber,
			PubDate:      meta.PubDate,
			Status:       domain.JobStatusPending,
			DiscoveredAt: now,
			ApplyURL:     meta.ApplyURL,
			Synthetic:    meta.Synthetic,
		})
		added++
	}

	if missingGUID > 0 {
		s.logger.WithField(logger.FieldCount, missingGUID).Warn("Skipped records without guid")
	}
	if added == 0 {
		return state, nil
	}

	state.TotalJobsProcessed += added
	state.LastProcessed = now
	if err := s.persist(ctx, state); err != nil {
		return nil, err
	}

	s.logger.WithFields(logger.Fields{
		logger.FieldCount: added,
		"pending":         state.PendingCount(),
	}).Info("Queued new jobs")
	return state, nil
}

// NextBatch selects up to n pending records in FIFO order by pubDate.
// Records with equal pubDate keep their insertion order. Pure read.
func (s *Store) NextBatch(ctx context.Context, n int) []domain.JobRecord {
	state := s.State(ctx)

	pending := make([]domain.JobRecord, 0, len(state.JobQueue))
	for _, rec := range state.JobQueue {
		if rec.Status == domain.JobStatusPending {
			pending = append(pending, rec)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].PubDate.Before(pending[j].PubDate)
	})

	if n > 0 && len(pending) > n {
		pending = pending[:n]
	}
	return pending
}

// MarkSent transitions the listed guids from pending to sent. Unknown
// guids and records already sent are ignored. EmailsSent counts campaigns,
// not jobs: it is bumped once per call that transitions anything. The
// document is only written when at least one record changed.
func (s *Store) MarkSent(ctx context.Context, guids []string) (bool, error) {
	if len(guids) == 0 {
		return false, nil
	}

	state, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	wanted := make(map[string]struct{}, len(guids))
	for _, g := range guids {
		wanted[g] = struct{}{}
	}

	now := s.now().UTC()
	transitioned := 0
	for i := range state.JobQueue {
		rec := &state.JobQueue[i]
		if rec.Status != domain.JobStatusPending {
			continue
		}
		if _, ok := wanted[rec.GUID]; !ok {
			continue
		}
		rec.Status = domain.JobStatusSent
		sentAt := now
		rec.SentAt = &sentAt
		transitioned++
	}

	if transitioned == 0 {
		return false, nil
	}

	state.EmailsSent++
	state.LastProcessed = now
	if err := s.persist(ctx, state); err != nil {
		return false, err
	}

	s.logger.WithField(logger.FieldCount, transitioned).Info("Marked jobs as sent")
	return true, nil
}

// Stats returns a derived view of the queue. It never fails: on an
// internal error the zeroed stats carry the error description instead.
func (s *Store) Stats(ctx context.Context) *domain.QueueStats {
	state, err := s.load(ctx)
	if err != nil {
		return &domain.QueueStats{Error: err.Error()}
	}

	stats := &domain.QueueStats{
		TotalJobs:          len(state.JobQueue),
		PendingJobs:        state.PendingCount(),
		SentJobs:           state.SentCount(),
		EmailsSent:         state.EmailsSent,
		TotalJobsProcessed: state.TotalJobsProcessed,
		LastProcessed:      state.LastProcessed,
	}

	for i := range state.JobQueue {
		rec := &state.JobQueue[i]
		if rec.Status != domain.JobStatusPending {
			continue
		}
		if stats.OldestPending == nil || rec.PubDate.Before(*stats.OldestPending) {
			t := rec.PubDate
			stats.OldestPending = &t
		}
		if stats.NewestPending == nil || rec.PubDate.After(*stats.NewestPending) {
			t := rec.PubDate
			stats.NewestPending = &t
		}
	}
	return stats
}

// Cleanup removes sent records whose sentAt is older than the cutoff.
// Pending records are retained unconditionally regardless of age. The
// document is only written when something was removed.
func (s *Store) Cleanup(ctx context.Context, maxAgeDays int) (*domain.QueueState, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().UTC().AddDate(0, 0, -maxAgeDays)

	kept := state.JobQueue[:0]
	removed := 0
	for _, rec := range state.JobQueue {
		if rec.Status == domain.JobStatusSent && rec.SentAt != nil && rec.SentAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}

	if removed == 0 {
		return state, nil
	}

	state.JobQueue = kept
	state.LastProcessed = s.now().UTC()
	if err := s.persist(ctx, state); err != nil {
		return nil, err
	}

	s.logger.WithField(logger.FieldCount, removed).Info("Cleaned up old sent jobs")
	return state, nil
}

// Reset deletes the queue document. Administrative use only.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to delete queue document %q: %w", s.key, err)
	}
	return nil
}
