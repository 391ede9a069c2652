package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID for diagnostic API calls.
	FieldRequestID = "request_id"

	// FieldCycleID identifies one dispatch cycle end to end.
	FieldCycleID = "cycle_id"

	// FieldComponent is the component/module name.
	FieldComponent = "component"

	// FieldFeedURL is the feed being polled.
	FieldFeedURL = "feed_url"
)

// Standard metric fields attached at the call site.
const (
	// FieldCampaignID is the provider campaign identifier after a send.
	FieldCampaignID = "campaign_id"

	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field.
	FieldCount = "count"

	// FieldGUID is a single job posting identity.
	FieldGUID = "guid"

	// FieldOutcome is the cycle outcome classification.
	FieldOutcome = "outcome"
)
