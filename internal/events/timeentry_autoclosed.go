package events

import "time"

// TimeEntryAutoClosedTopic surfaces entries the sweep had to close because the
// subject never clocked out. Consumers flag these as incidents for review.
const TimeEntryAutoClosedTopic = "tempus.timeentry.incident.v1"

type TimeEntryAutoClosedEvent struct {
	EventType  string    `json:"event_type"`
	LineageID  string    `json:"lineage_id"`
	RecordID   string    `json:"record_id"`
	SubjectID  string    `json:"subject_id"`
	EntryDate  string    `json:"entry_date"`
	ClosedAt   string    `json:"closed_at"`
	OccurredAt time.Time `json:"occurred_at"`
}
