package absence

import (
	"time"

	"github.com/google/uuid"

	"github.com/pixelotes/Tempus/internal/calendar"
)

const (
	FamilyVacation = "VACATION"
	FamilyLeave    = "LEAVE"

	ActionCreation     = "CREATION"
	ActionModification = "MODIFICATION"
	ActionCancellation = "CANCELLATION"

	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Request is one version of an absence request. Vacation and leave requests
// share this shape but live in separate tables; the repository picks the
// table from the family, so the struct carries no TableName of its own.
//
// A lineage normally has one current version. While a modification or
// cancellation of an approved baseline awaits resolution, both the baseline
// and the pending version are current; approval retires the baseline.
type Request struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	LineageID uuid.UUID `gorm:"column:lineage_id;type:uuid;not null;index"`
	Version   int       `gorm:"column:version;type:int;not null;default:1"`
	IsCurrent bool      `gorm:"column:is_current;not null;default:true;index"`

	ActionKind string    `gorm:"column:action_kind;type:varchar(20);not null;default:'CREATION'"`
	SubjectID  uuid.UUID `gorm:"column:subject_id;type:uuid;not null;index"`

	StartDate time.Time `gorm:"column:start_date;type:date;not null"`
	EndDate   time.Time `gorm:"column:end_date;type:date;not null"`
	DayCount  int       `gorm:"column:day_count;type:int;not null"`

	Status            string     `gorm:"column:status;type:varchar(20);not null;default:'PENDING'"`
	ApproverID        *uuid.UUID `gorm:"column:approver_id;type:uuid"`
	ResolvedAt        *time.Time `gorm:"column:resolved_at;type:timestamptz"`
	ResolutionComment *string    `gorm:"column:resolution_comment;type:text"`

	Reason *string `gorm:"column:reason;type:text"`

	// LeaveTypeID is set for the LEAVE family only.
	LeaveTypeID *uuid.UUID `gorm:"column:leave_type_id;type:uuid"`

	// Advance marks a vacation admission whose projected balance went
	// negative but stayed inside the configured ceiling.
	Advance bool `gorm:"column:advance;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at"`
}

// LeaveType governs how a leave request counts its days and how long it may
// run. Only active types are offered for new requests.
type LeaveType struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string                `gorm:"column:name;type:varchar(100);not null;uniqueIndex"`
	CountingMode calendar.CountingMode `gorm:"column:counting_mode;type:varchar(20);not null;default:'WORKING'"`

	// MaxDays of zero means no ceiling.
	MaxDays int  `gorm:"column:max_days;type:int;not null;default:0"`
	Active  bool `gorm:"column:active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (LeaveType) TableName() string {
	return "leave_types"
}

func tableFor(family string) string {
	if family == FamilyLeave {
		return "leave_requests"
	}
	return "vacation_requests"
}
