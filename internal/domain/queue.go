package domain

import "time"

// QueueState is the whole persisted queue document. It is always read in
// full and written in full; there are no field-level writes.
type QueueState struct {
	JobQueue           []JobRecord `json:"job_queue"`
	LastProcessed      time.Time   `json:"last_processed"`
	EmailsSent         int         `json:"emails_sent"`
	TotalJobsProcessed int         `json:"total_jobs_processed"`
}

// PendingCount returns the number of records still awaiting dispatch.
func (s *QueueState) PendingCount() int {
	n := 0
	for i := range s.JobQueue {
		if s.JobQueue[i].Status == JobStatusPending {
			n++
		}
	}
	return n
}

// SentCount returns the number of records already dispatched.
func (s *QueueState) SentCount() int {
	n := 0
	for i := range s.JobQueue {
		if s.JobQueue[i].Status == JobStatusSent {
			n++
		}
	}
	return n
}

// HasGUID reports whether a record with the given guid exists in the queue.
func (s *QueueState) HasGUID(guid string) bool {
	for i := range s.JobQueue {
		if s.JobQueue[i].GUID == guid {
			return true
		}
	}
	return false
}

// QueueStats is a derived, read-only view of the queue document.
type QueueStats struct {
	TotalJobs          int        `json:"total_jobs"`
	PendingJobs        int        `json:"pending_jobs"`
	SentJobs           int        `json:"sent_jobs"`
	OldestPending      *time.Time `json:"oldest_pending,omitempty"`
	NewestPending      *time.Time `json:"newest_pending,omitempty"`
	EmailsSent         int        `json:"emails_sent"`
	TotalJobsProcessed int        `json:"total_jobs_processed"`
	LastProcessed      time.Time  `json:"last_processed"`
	Error              string     `json:"error,omitempty"`
}
