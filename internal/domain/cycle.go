package domain

// CycleOutcome classifies the terminal result of one dispatch cycle.
type CycleOutcome string

const (
	// OutcomeNoJobs means the feed returned no items and nothing was pending.
	OutcomeNoJobs CycleOutcome = "no_jobs"
	// OutcomeAccumulating means jobs were queued but the threshold is not met.
	OutcomeAccumulating CycleOutcome = "accumulating"
	// OutcomeSent means a campaign went out and the batch was marked sent.
	OutcomeSent CycleOutcome = "sent"
	// OutcomeAnomaly means the cycle ended on a non-fatal inconsistency.
	OutcomeAnomaly CycleOutcome = "anomaly"
	// OutcomeFailed means the cycle aborted on an error.
	OutcomeFailed CycleOutcome = "failed"
)

// CycleResult is the structured report every invocation produces.
type CycleResult struct {
	Outcome      CycleOutcome `json:"outcome"`
	Message      string       `json:"message"`
	NewJobs      int          `json:"new_jobs"`
	PendingJobs  int          `json:"pending_jobs"`
	JobsNeeded   int          `json:"jobs_needed,omitempty"`
	CampaignID   string       `json:"campaign_id,omitempty"`
	JobsSent     int          `json:"jobs_sent,omitempty"`
	MarkFailed   bool         `json:"mark_failed,omitempty"`
	ErrorMessage string       `json:"error,omitempty"`
}
