package balance

import (
	"time"

	"github.com/google/uuid"
)

// Account tracks one subject's entitlement for one fiscal year. Available
// days are total minus consumed and may go negative when an advance was
// admitted.
type Account struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	SubjectID     uuid.UUID `gorm:"column:subject_id;type:uuid;not null;uniqueIndex:idx_balance_subject_year"`
	Year          int       `gorm:"column:year;type:int;not null;uniqueIndex:idx_balance_subject_year"`
	TotalDays     int       `gorm:"column:total_days;type:int;not null"`
	ConsumedDays  int       `gorm:"column:consumed_days;type:int;not null;default:0"`
	CarryoverDays int       `gorm:"column:carryover_days;type:int;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Account) TableName() string {
	return "balance_accounts"
}

func (a *Account) Available() int {
	return a.TotalDays - a.ConsumedDays
}
