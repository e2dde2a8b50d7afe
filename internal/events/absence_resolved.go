package events

import "time"

// AbsenceResolvedTopic carries approval outcomes to the external calendar and
// notification collaborators. On approval of a modification the consumer is
// expected to drop the event it created for the superseded version and create
// a new one for the dates in this payload.
const AbsenceResolvedTopic = "tempus.absence.lifecycle.v1"

type AbsenceResolvedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	Family     string    `json:"family"`
	LineageID  string    `json:"lineage_id"`
	RecordID   string    `json:"record_id"`
	SubjectID  string    `json:"subject_id"`
	ActionKind string    `json:"action_kind"`
	Status     string    `json:"status"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	DayCount   int       `json:"day_count"`
	ApprovedBy string    `json:"approved_by"`
	OccurredAt time.Time `json:"occurred_at"`
}
