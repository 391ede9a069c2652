package domain

import "time"

// JobStatus represents the lifecycle status of a queued job posting.
// The only transition is JobStatusPending -> JobStatusSent.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusSent    JobStatus = "sent"
)

// JobMetadata is the lightweight record the feed extractor produces for
// enqueueing. Full posting content is re-fetched at send time.
type JobMetadata struct {
	GUID      string    `json:"guid"`
	JobNumber string    `json:"job_number,omitempty"`
	PubDate   time.Time `json:"pub_date"`
	ApplyURL  string    `json:"apply_url"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// JobRecord is a single entry in the persisted queue document.
type JobRecord struct {
	GUID         string     `json:"guid"`
	JobNumber    string     `json:"job_number,omitempty"`
	PubDate      time.Time  `json:"pub_date"`
	Status       JobStatus  `json:"status"`
	DiscoveredAt time.Time  `json:"discovered_at"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ApplyURL     string     `json:"apply_url"`
	Synthetic    bool       `json:"synthetic,omitempty"`
}

// JobDetail is a hydrated full posting used to compose a digest email.
// Company, Location, Salary and Hours are best-effort extractions and may
// be empty.
type JobDetail struct {
	GUID        string    `json:"guid"`
	JobNumber   string    `json:"job_number,omitempty"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	PubDate     time.Time `json:"pub_date"`
	Company     string    `json:"company,omitempty"`
	Location    string    `json:"location,omitempty"`
	Salary      string    `json:"salary,omitempty"`
	Hours       string    `json:"hours,omitempty"`
}
