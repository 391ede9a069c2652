// Package service orchestrates the accumulate-or-flush dispatch cycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davet/jobdigest/internal/domain"
	"github.com/davet/jobdigest/internal/logger"
	"github.com/davet/jobdigest/internal/mailer"
)

// ErrMarkAfterSend flags the one failure mode that must not be blindly
// retried: the campaign went out but the batch could not be marked sent,
// so the next cycle would re-send the same jobs.
var ErrMarkAfterSend = errors.New("campaign sent but mark-sent failed")

// MetadataSource produces queue-ready metadata from the feed.
type MetadataSource interface {
	FetchMetadata(ctx context.Context) ([]domain.JobMetadata, error)
}

// DetailHydrator re-fetches full job content for previously queued guids.
// Guids no longer present in the feed are omitted, not errored.
type DetailHydrator interface {
	Hydrate(ctx context.Context, guids []string) ([]domain.JobDetail, error)
}

// QueueStore is the queue surface the dispatcher depends on.
type QueueStore interface {
	AddNewJobs(ctx context.Context, metas []domain.JobMetadata) (*domain.QueueState, error)
	NextBatch(ctx context.Context, n int) []domain.JobRecord
	MarkSent(ctx context.Context, guids []string) (bool, error)
	Cleanup(ctx context.Context, maxAgeDays int) (*domain.QueueState, error)
	Stats(ctx context.Context) *domain.QueueStats
}

// Config holds dispatcher tuning.
type Config struct {
	// Threshold is the pending-job count that triggers a send cycle.
	Threshold int
	// BatchLimit caps the jobs per campaign. Zero means the threshold.
	BatchLimit int
	// CleanupMaxAgeDays prunes sent records after a successful cycle.
	// Zero disables cleanup.
	CleanupMaxAgeDays int
}

// Dispatcher runs exactly one accumulate-or-flush decision per invocation.
//
// The design holds no distributed lock: if the deployment can trigger two
// invocations concurrently, both may select the same batch and dispatch
// duplicate campaigns. A single non-overlapping trigger is a deployment
// requirement, not a code-level guarantee.
type Dispatcher struct {
	source   MetadataSource
	hydrator DetailHydrator
	queue    QueueStore
	sender   mailer.CampaignSender
	notifier mailer.Notifier
	cfg      Config
	logger   *logger.Logger
	now      func() time.Time
}

// NewDispatcher wires the dispatcher from its collaborators.
func NewDispatcher(
	source MetadataSource,
	hydrator DetailHydrator,
	queue QueueStore,
	sender mailer.CampaignSender,
	notifier mailer.Notifier,
	cfg Config,
	log *logger.Logger,
) *Dispatcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 10
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = cfg.Threshold
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Dispatcher{
		source:   source,
		hydrator: hydrator,
		queue:    queue,
		sender:   sender,
		notifier: notifier,
		cfg:      cfg,
		logger:   log.WithField(logger.FieldComponent, "dispatch"),
		now:      time.Now,
	}
}

// RunCycle executes one full cycle: fetch, enqueue, threshold check, and
// when the threshold is met, hydrate, send and mark. Send-then-mark
// ordering is strict: MarkSent is never called before the provider has
// confirmed the send.
func (d *Dispatcher) RunCycle(ctx context.Context) (*domain.CycleResult, error) {
	cycleID := uuid.New().String()
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldCycleID:   cycleID,
		logger.FieldComponent: "dispatch",
	})
	start := d.now()

	logger.CtxInfo(ctx, "Starting dispatch cycle")

	metas, err := d.source.FetchMetadata(ctx)
	if err != nil {
		return d.fail(ctx, "feed fetch failed", err)
	}

	if len(metas) == 0 {
		logger.CtxInfo(ctx, "No jobs found in feed")
		return &domain.CycleResult{
			Outcome: domain.OutcomeNoJobs,
			Message: "no jobs found",
		}, nil
	}

	state, err := d.queue.AddNewJobs(ctx, metas)
	if err != nil {
		return d.fail(ctx, "failed to enqueue jobs", err)
	}

	pending := state.PendingCount()
	if pending < d.cfg.Threshold {
		needed := d.cfg.Threshold - pending
		logger.CtxInfo(ctx, "Accumulating: %d pending, %d more needed", pending, needed)
		return &domain.CycleResult{
			Outcome:     domain.OutcomeAccumulating,
			Message:     fmt.Sprintf("accumulating, %d more needed", needed),
			NewJobs:     len(metas),
			PendingJobs: pending,
			JobsNeeded:  needed,
		}, nil
	}

	batch := d.queue.NextBatch(ctx, d.cfg.BatchLimit)
	if len(batch) == 0 {
		// pending >= threshold but no selectable records: inconsistent
		// document, report and leave it untouched.
		logger.CtxWarn(ctx, "Threshold met but batch selection returned nothing")
		return &domain.CycleResult{
			Outcome:     domain.OutcomeAnomaly,
			Message:     "threshold met but no batch selectable",
			PendingJobs: pending,
		}, nil
	}

	guids := make([]string, len(batch))
	for i, rec := range batch {
		guids[i] = rec.GUID
	}

	details, err := d.hydrator.Hydrate(ctx, guids)
	if err != nil {
		return d.fail(ctx, "detail hydration failed", err)
	}
	if len(details) == 0 {
		logger.CtxWarn(ctx, "Hydration returned no records for %d guids, aborting send", len(guids))
		return &domain.CycleResult{
			Outcome:     domain.OutcomeAnomaly,
			Message:     "hydration produced no usable records",
			PendingJobs: pending,
		}, nil
	}
	if len(details) < len(guids) {
		logger.CtxWarn(ctx, "Hydration shortfall: %d of %d guids found, proceeding", len(details), len(guids))
	}

	subject, html, err := mailer.RenderDigest(details, d.now())
	if err != nil {
		return d.fail(ctx, "digest rendering failed", err)
	}

	campaignID, err := d.sender.Send(ctx, subject, html)
	if err != nil {
		// No records were marked; the same batch is re-selected next cycle.
		return d.fail(ctx, "campaign send failed", err)
	}
	ctx = logger.WithField(ctx, logger.FieldCampaignID, campaignID)

	// The full selected batch is retired, including guids hydration could
	// not find: their identity was already committed to this campaign.
	marked, err := d.queue.MarkSent(ctx, guids)
	if err != nil || !marked {
		return d.markFailure(ctx, campaignID, guids, pending, err)
	}

	if d.cfg.CleanupMaxAgeDays > 0 {
		if _, err := d.queue.Cleanup(ctx, d.cfg.CleanupMaxAgeDays); err != nil {
			logger.CtxWarn(ctx, "Post-cycle cleanup failed: %v", err)
		}
	}

	logger.CtxInfo(ctx, "Campaign sent: %d jobs, duration %s", len(guids), d.now().Sub(start).Round(time.Millisecond))
	return &domain.CycleResult{
		Outcome:     domain.OutcomeSent,
		Message:     fmt.Sprintf("campaign sent, id=%s", campaignID),
		NewJobs:     len(metas),
		PendingJobs: pending - len(guids),
		CampaignID:  campaignID,
		JobsSent:    len(guids),
	}, nil
}

// fail reports an ordinary cycle failure: best-effort notification, then a
// structured failure result. No retry happens within the invocation.
func (d *Dispatcher) fail(ctx context.Context, stage string, err error) (*domain.CycleResult, error) {
	wrapped := fmt.Errorf("%s: %w", stage, err)
	logger.CtxError(ctx, "Cycle failed: %v", wrapped)

	if d.notifier != nil {
		d.notifier.NotifyFailure(ctx, "Job digest cycle failed", wrapped.Error())
	}

	return &domain.CycleResult{
		Outcome:      domain.OutcomeFailed,
		Message:      stage,
		ErrorMessage: wrapped.Error(),
	}, wrapped
}

// markFailure handles the critical post-send anomaly: the campaign is out
// but the batch is still pending, so a blind retry would duplicate the
// send. Operators are notified distinctly from ordinary failures.
func (d *Dispatcher) markFailure(ctx context.Context, campaignID string, guids []string, pending int, err error) (*domain.CycleResult, error) {
	if err == nil {
		err = errors.New("no records transitioned")
	}
	wrapped := fmt.Errorf("%w (campaign %s, %d jobs): %v", ErrMarkAfterSend, campaignID, len(guids), err)
	logger.CtxError(ctx, "CRITICAL: %v", wrapped)

	if d.notifier != nil {
		d.notifier.NotifyFailure(ctx,
			"CRITICAL: job digest sent but not marked",
			fmt.Sprintf("Campaign %s was sent but %d jobs are still pending. "+
				"The next cycle will re-send them unless the queue document is fixed. Cause: %v",
				campaignID, len(guids), err))
	}

	return &domain.CycleResult{
		Outcome:      domain.OutcomeSent,
		Message:      "campaign sent but batch not marked",
		PendingJobs:  pending,
		CampaignID:   campaignID,
		JobsSent:     len(guids),
		MarkFailed:   true,
		ErrorMessage: wrapped.Error(),
	}, wrapped
}

// Stats exposes queue statistics for the diagnostic surface.
func (d *Dispatcher) Stats(ctx context.Context) *domain.QueueStats {
	return d.queue.Stats(ctx)
}

// Cleanup prunes old sent records on demand.
func (d *Dispatcher) Cleanup(ctx context.Context, maxAgeDays int) (*domain.QueueState, error) {
	return d.queue.Cleanup(ctx, maxAgeDays)
}
