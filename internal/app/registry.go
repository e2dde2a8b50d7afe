package app

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/absence"
	"github.com/pixelotes/Tempus/internal/approval"
	"github.com/pixelotes/Tempus/internal/balance"
	"github.com/pixelotes/Tempus/internal/calendar"
	"github.com/pixelotes/Tempus/internal/messaging/kafka"
	"github.com/pixelotes/Tempus/internal/subject"
	"github.com/pixelotes/Tempus/internal/timeentry"
)

// Registry wires every repository and service once and hands them to the
// hosting process (HTTP adapter, worker, sweeper, CLI).
type Registry struct {
	Calendar  calendar.Service
	TimeEntry timeentry.Service
	Absence   absence.Service
	Approval  approval.Service
	Balance   balance.Service

	Subjects subject.Repository
	Outbox   kafka.OutboxRepository
}

func BuildRegistry(cfg Config, db *sql.DB, gormDB *gorm.DB, rdb *redis.Client) *Registry {
	// --- Repositories ---
	holidayRepo := calendar.NewRepository(gormDB)
	timeEntryRepo := timeentry.NewRepository(gormDB)
	absenceRepo := absence.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB)
	subjectRepo := subject.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Services ---
	holidayCache := calendar.NewHolidayCache(rdb, holidayRepo, cfg.HolidayCacheTTL)
	calendarService := calendar.NewService(holidayRepo, holidayCache)
	timeEntryService := timeentry.NewService(db, timeEntryRepo, outboxRepo)
	absenceService := absence.NewService(db, absenceRepo, subjectRepo, balanceRepo, calendarService, outboxRepo, cfg.MaxAdvanceDays)
	approvalService := approval.NewService(db, absenceRepo, balanceRepo, subjectRepo, outboxRepo)
	balanceService := balance.NewService(db, balanceRepo, subjectRepo, holidayRepo, holidayCache)

	return &Registry{
		Calendar:  calendarService,
		TimeEntry: timeEntryService,
		Absence:   absenceService,
		Approval:  approvalService,
		Balance:   balanceService,
		Subjects:  subjectRepo,
		Outbox:    outboxRepo,
	}
}
