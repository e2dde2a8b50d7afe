package absence

type CreateAbsenceRequest struct {
	Family    string `json:"family" validate:"required,oneof=VACATION LEAVE"`
	SubjectID string `json:"subject_id" validate:"required,uuid"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason"`

	// LeaveTypeID is mandatory for the LEAVE family.
	LeaveTypeID *string `json:"leave_type_id" validate:"omitempty,uuid"`

	// OnBehalfOf names the admin creating the request for the subject;
	// such requests are admitted pre-approved.
	OnBehalfOf *string `json:"on_behalf_of" validate:"omitempty,uuid"`
}

type ModifyAbsenceRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"required"`
}

type CancelAbsenceRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CreateLeaveTypeRequest registers a LEAVE category. A MaxDays of zero means
// the category has no duration ceiling.
type CreateLeaveTypeRequest struct {
	Name         string `json:"name" validate:"required"`
	CountingMode string `json:"counting_mode" validate:"required,oneof=WORKING CALENDAR"`
	MaxDays      int    `json:"max_days" validate:"min=0"`
}

type LeaveTypeResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CountingMode string `json:"counting_mode"`
	MaxDays      int    `json:"max_days"`
	Active       bool   `json:"active"`
}

type AbsenceResponse struct {
	ID        string `json:"id"`
	Family    string `json:"family"`
	LineageID string `json:"lineage_id"`
	Version   int    `json:"version"`
	IsCurrent bool   `json:"is_current"`

	ActionKind string `json:"action_kind"`
	SubjectID  string `json:"subject_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	DayCount   int    `json:"day_count"`

	Status            string  `json:"status"`
	ApproverID        *string `json:"approver_id,omitempty"`
	ResolvedAt        *string `json:"resolved_at,omitempty"`
	ResolutionComment *string `json:"resolution_comment,omitempty"`

	Reason      *string `json:"reason,omitempty"`
	LeaveTypeID *string `json:"leave_type_id,omitempty"`
	Advance     bool    `json:"advance"`
}
