package timeentry

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ActionCreation     = "CREATION"
	ActionModification = "MODIFICATION"
	ActionDeletion     = "DELETION"
)

// TimeEntry is one version of a clock-in/out record. Versions are append-only:
// corrections and deletions add a new row in the same lineage and retire the
// previous one, so the full history stays queryable.
type TimeEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	LineageID uuid.UUID `gorm:"column:lineage_id;type:uuid;not null;index:idx_time_entries_lineage"`
	Version   int       `gorm:"column:version;type:int;not null;default:1"`
	IsCurrent bool      `gorm:"column:is_current;not null;default:true;index:idx_time_entries_current"`

	ActionKind string  `gorm:"column:action_kind;type:varchar(20);not null;default:'CREATION'"`
	SubjectID  uuid.UUID `gorm:"column:subject_id;type:uuid;not null;index:idx_time_entries_subject_date"`
	EditorID   uuid.UUID `gorm:"column:editor_id;type:uuid;not null"`
	Reason     *string   `gorm:"column:reason;type:text"`

	EntryDate    time.Time  `gorm:"column:entry_date;type:date;not null;index:idx_time_entries_subject_date"`
	ClockIn      time.Time  `gorm:"column:clock_in;type:timestamptz;not null"`
	ClockOut     *time.Time `gorm:"column:clock_out;type:timestamptz"`
	BreakMinutes int        `gorm:"column:break_minutes;type:int;not null;default:0"`
	AutoClosed   bool       `gorm:"column:auto_closed;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at"`
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

// WorkedHours is (clock-out − clock-in) minus the break, rolling over
// midnight when the clock-out time is earlier than the clock-in time.
// Zero while the entry is still open.
func (t *TimeEntry) WorkedHours() decimal.Decimal {
	if t.ClockOut == nil {
		return decimal.Zero
	}

	out := *t.ClockOut
	if out.Before(t.ClockIn) {
		out = out.Add(24 * time.Hour)
	}

	worked := out.Sub(t.ClockIn) - time.Duration(t.BreakMinutes)*time.Minute
	if worked < 0 {
		return decimal.Zero
	}

	return decimal.NewFromFloat(worked.Minutes()).
		Div(decimal.NewFromInt(60)).
		Round(2)
}
