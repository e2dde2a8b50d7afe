package calendar

import (
	"time"

	"github.com/google/uuid"
)

type Holiday struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	HolidayDate time.Time `gorm:"column:holiday_date;type:date;not null;uniqueIndex:idx_holidays_date"`
	Description string    `gorm:"column:description;type:varchar(200);not null"`
	Active      bool      `gorm:"column:active;not null;default:true;index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (Holiday) TableName() string {
	return "holidays"
}
