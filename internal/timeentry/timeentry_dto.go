package timeentry

type CreateTimeEntryRequest struct {
	SubjectID    string  `json:"subject_id" validate:"required,uuid"`
	EditorID     string  `json:"editor_id" validate:"required,uuid"`
	Date         string  `json:"date" validate:"required"`
	ClockIn      string  `json:"clock_in" validate:"required"`
	ClockOut     *string `json:"clock_out"`
	BreakMinutes int     `json:"break_minutes" validate:"min=0"`
}

type CorrectTimeEntryRequest struct {
	EditorID     string  `json:"editor_id" validate:"required,uuid"`
	Reason       string  `json:"reason" validate:"required"`
	Date         string  `json:"date" validate:"required"`
	ClockIn      string  `json:"clock_in" validate:"required"`
	ClockOut     *string `json:"clock_out"`
	BreakMinutes int     `json:"break_minutes" validate:"min=0"`
}

type DeleteTimeEntryRequest struct {
	EditorID string `json:"editor_id" validate:"required,uuid"`
	Reason   string `json:"reason"`
}

type TimeEntryResponse struct {
	ID           string  `json:"id"`
	LineageID    string  `json:"lineage_id"`
	Version      int     `json:"version"`
	IsCurrent    bool    `json:"is_current"`
	ActionKind   string  `json:"action_kind"`
	SubjectID    string  `json:"subject_id"`
	EditorID     string  `json:"editor_id"`
	Reason       *string `json:"reason,omitempty"`
	Date         string  `json:"date"`
	ClockIn      string  `json:"clock_in"`
	ClockOut     *string `json:"clock_out,omitempty"`
	BreakMinutes int     `json:"break_minutes"`
	AutoClosed   bool    `json:"auto_closed"`
	WorkedHours  string  `json:"worked_hours"`
}
