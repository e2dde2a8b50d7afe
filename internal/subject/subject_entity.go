package subject

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subject struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	FullName string    `gorm:"column:full_name;type:varchar(100);not null"`
	Email    string    `gorm:"column:email;type:varchar(120);not null;uniqueIndex"`

	// BaseEntitlementDays seeds every new BalanceAccount for this subject.
	BaseEntitlementDays int  `gorm:"column:base_entitlement_days;type:int;not null;default:25"`
	IsAdmin             bool `gorm:"column:is_admin;not null;default:false"`

	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Subject) TableName() string {
	return "subjects"
}
