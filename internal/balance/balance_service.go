package balance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	balanceerrors "github.com/pixelotes/Tempus/internal/balance/errors"
	"github.com/pixelotes/Tempus/internal/calendar"
	"github.com/pixelotes/Tempus/internal/shared/apperror"
	"github.com/pixelotes/Tempus/internal/shared/contextutil"
	"github.com/pixelotes/Tempus/internal/subject"
)

const (
	HolidayPolicyNone    = "none"
	HolidayPolicyArchive = "archive"
	HolidayPolicyDelete  = "delete"
)

type CloseYearRequest struct {
	SourceYear    int
	MaxCarryover  int
	HolidayPolicy string
	// HolidayAgeYears keeps this many trailing years of holidays when the
	// policy archives or deletes; older entries go.
	HolidayAgeYears int
	Force           bool
}

type SubjectCloseResult struct {
	SubjectID string `json:"subject_id"`
	Leftover  int    `json:"leftover"`
	Carry     int    `json:"carry"`
	NewTotal  int    `json:"new_total"`
	Skipped   bool   `json:"skipped"`
}

type CloseYearReport struct {
	SourceYear       int                  `json:"source_year"`
	TargetYear       int                  `json:"target_year"`
	Subjects         []SubjectCloseResult `json:"subjects"`
	HolidaysAffected int64                `json:"holidays_affected"`
}

//go:generate mockgen -source=balance_service.go -destination=mock/balance_service_mock.go -package=mock
type Service interface {
	GetAccount(ctx context.Context, subjectID string, year int) (*Account, error)
	CloseYear(ctx context.Context, req CloseYearRequest) (CloseYearReport, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	subjects subject.Repository
	holidays calendar.Repository
	cache    *calendar.HolidayCache
	logger   *zap.Logger
}

func NewService(db *sql.DB, repo Repository, subjects subject.Repository, holidays calendar.Repository, cache *calendar.HolidayCache, logger ...*zap.Logger) Service {
	l := zap.L().Named("balance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.service")
	}
	return &service{
		db:       db,
		repo:     repo,
		subjects: subjects,
		holidays: holidays,
		cache:    cache,
		logger:   l,
	}
}

func (s *service) log(ctx context.Context) *zap.Logger {
	return s.logger.With(contextutil.LogFields(ctx)...)
}

func (s *service) GetAccount(ctx context.Context, subjectID string, year int) (*Account, error) {
	if _, err := uuid.Parse(subjectID); err != nil {
		return nil, balanceerrors.ErrInvalidSubjectID
	}
	a, err := s.repo.Find(ctx, subjectID, year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, balanceerrors.ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

// CloseYear rolls every subject's leftover into a fresh account for the next
// year. Surplus is capped at MaxCarryover; debt carries in full. Subjects
// that already have a target-year account are skipped unless Force is set.
func (s *service) CloseYear(ctx context.Context, req CloseYearRequest) (CloseYearReport, error) {
	if req.SourceYear < 2000 || req.SourceYear > 2200 {
		return CloseYearReport{}, balanceerrors.ErrInvalidYear
	}
	switch req.HolidayPolicy {
	case "", HolidayPolicyNone, HolidayPolicyArchive, HolidayPolicyDelete:
	default:
		return CloseYearReport{}, balanceerrors.ErrInvalidHolidayPolicy
	}

	targetYear := req.SourceYear + 1
	s.log(ctx).Info("year close started",
		zap.Int("source_year", req.SourceYear),
		zap.Int("target_year", targetYear),
		zap.Int("max_carryover", req.MaxCarryover),
		zap.Bool("force", req.Force),
	)

	subjects, err := s.subjects.FindAll(ctx)
	if err != nil {
		s.log(ctx).Error("year close subject listing failed", zap.Error(err))
		return CloseYearReport{}, apperror.Internal(err, "list subjects for year close")
	}

	report := CloseYearReport{
		SourceYear: req.SourceYear,
		TargetYear: targetYear,
		Subjects:   make([]SubjectCloseResult, 0, len(subjects)),
	}

	for i := range subjects {
		res, err := s.closeSubjectYear(ctx, &subjects[i], req.SourceYear, targetYear, req.MaxCarryover, req.Force)
		if err != nil {
			return report, err
		}
		report.Subjects = append(report.Subjects, res)
	}

	affected, err := s.applyHolidayPolicy(ctx, req)
	if err != nil {
		return report, err
	}
	report.HolidaysAffected = affected

	s.log(ctx).Info("year close finished",
		zap.Int("subjects", len(report.Subjects)),
		zap.Int64("holidays_affected", affected),
	)
	return report, nil
}

func (s *service) closeSubjectYear(ctx context.Context, sub *subject.Subject, sourceYear, targetYear, maxCarryover int, force bool) (SubjectCloseResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SubjectCloseResult{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	leftover := 0
	if src, err := qtx.FindForUpdate(ctx, sub.ID.String(), sourceYear); err == nil {
		leftover = src.Available()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return SubjectCloseResult{}, err
	}

	carry := leftover
	if leftover > 0 && carry > maxCarryover {
		carry = maxCarryover
	}
	newTotal := sub.BaseEntitlementDays + carry

	existing, err := qtx.FindForUpdate(ctx, sub.ID.String(), targetYear)
	switch {
	case err == nil:
		if !force {
			s.log(ctx).Debug("year close skip, target account exists",
				zap.String("subject_id", sub.ID.String()),
				zap.Int("target_year", targetYear),
			)
			return SubjectCloseResult{SubjectID: sub.ID.String(), Leftover: leftover, Skipped: true}, nil
		}
		existing.TotalDays = newTotal
		existing.ConsumedDays = 0
		existing.CarryoverDays = carry
		if err := qtx.Update(ctx, existing); err != nil {
			return SubjectCloseResult{}, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := qtx.Create(ctx, &Account{
			ID:            uuid.New(),
			SubjectID:     sub.ID,
			Year:          targetYear,
			TotalDays:     newTotal,
			CarryoverDays: carry,
		}); err != nil {
			return SubjectCloseResult{}, err
		}
	default:
		return SubjectCloseResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return SubjectCloseResult{}, err
	}

	if leftover < 0 {
		s.log(ctx).Warn("debt carried into new year",
			zap.String("subject_id", sub.ID.String()),
			zap.Int("leftover", leftover),
		)
	}

	return SubjectCloseResult{
		SubjectID: sub.ID.String(),
		Leftover:  leftover,
		Carry:     carry,
		NewTotal:  newTotal,
	}, nil
}

func (s *service) applyHolidayPolicy(ctx context.Context, req CloseYearRequest) (int64, error) {
	if req.HolidayPolicy == "" || req.HolidayPolicy == HolidayPolicyNone {
		return 0, nil
	}

	ageYears := req.HolidayAgeYears
	if ageYears < 1 {
		ageYears = 1
	}

	// Keep ageYears trailing years counted from the year being opened;
	// everything dated before this cutoff is past its retention window.
	cutoff := time.Date(req.SourceYear+2-ageYears, time.January, 1, 0, 0, 0, 0, time.UTC)

	var (
		affected int64
		err      error
	)
	if req.HolidayPolicy == HolidayPolicyArchive {
		affected, err = s.holidays.ArchiveBefore(ctx, cutoff)
	} else {
		affected, err = s.holidays.DeleteBefore(ctx, cutoff)
	}
	if err != nil {
		s.log(ctx).Error("year close holiday policy failed",
			zap.String("policy", req.HolidayPolicy),
			zap.Error(err),
		)
		return 0, err
	}

	if affected > 0 && s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	return affected, nil
}
