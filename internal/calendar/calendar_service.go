package calendar

import (
	"context"
	"errors"
	"time"

	calendarerrors "github.com/pixelotes/Tempus/internal/calendar/errors"
	"github.com/pixelotes/Tempus/internal/shared/apperror"
	"github.com/pixelotes/Tempus/internal/shared/contextutil"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CountingMode selects how a date range is turned into a day count.
type CountingMode string

const (
	ModeWorking  CountingMode = "WORKING"
	ModeCalendar CountingMode = "CALENDAR"
)

type Service interface {
	IsNonWorkingDay(ctx context.Context, date time.Time) (bool, error)
	CountDays(ctx context.Context, start, end time.Time, mode CountingMode) (int, error)

	CreateHoliday(ctx context.Context, req CreateHolidayRequest) (HolidayResponse, error)
	UpdateHoliday(ctx context.Context, id string, req UpdateHolidayRequest) (HolidayResponse, error)
	ArchiveHoliday(ctx context.Context, id string) error
	RestoreHoliday(ctx context.Context, id string) error
	DeleteHoliday(ctx context.Context, id string) error
	GetHolidays(ctx context.Context) ([]HolidayResponse, error)
}

type service struct {
	repo     Repository
	cache    *HolidayCache
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(repo Repository, cache *HolidayCache, logger ...*zap.Logger) Service {
	l := zap.L().Named("calendar.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("calendar.service")
	}
	return &service{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		logger:   l,
	}
}

func (s *service) log(ctx context.Context) *zap.Logger {
	return s.logger.With(contextutil.LogFields(ctx)...)
}

func (s *service) IsNonWorkingDay(ctx context.Context, date time.Time) (bool, error) {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return true, nil
	}

	holidays, err := s.cache.ActiveDates(ctx)
	if err != nil {
		s.log(ctx).Error("load active holidays failed", zap.Error(err))
		return false, err
	}

	_, isHoliday := holidays[date.Format("2006-01-02")]
	return isHoliday, nil
}

func (s *service) CountDays(ctx context.Context, start, end time.Time, mode CountingMode) (int, error) {
	if end.Before(start) {
		return 0, calendarerrors.ErrInvalidDateRange
	}

	switch mode {
	case ModeCalendar:
		return int(end.Sub(start).Hours()/24) + 1, nil
	case ModeWorking:
		holidays, err := s.cache.ActiveDates(ctx)
		if err != nil {
			s.log(ctx).Error("load active holidays failed", zap.Error(err))
			return 0, err
		}

		days := 0
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			wd := d.Weekday()
			if wd == time.Saturday || wd == time.Sunday {
				continue
			}
			if _, isHoliday := holidays[d.Format("2006-01-02")]; isHoliday {
				continue
			}
			days++
		}
		return days, nil
	default:
		return 0, calendarerrors.ErrInvalidCountingMode
	}
}

func (s *service) CreateHoliday(ctx context.Context, req CreateHolidayRequest) (HolidayResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return HolidayResponse{}, apperror.MapValidationError(err)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return HolidayResponse{}, calendarerrors.ErrInvalidDateFormat
	}

	h := &Holiday{
		ID:          uuid.New(),
		HolidayDate: date,
		Description: req.Description,
		Active:      true,
	}

	if err := s.repo.Create(ctx, h); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return HolidayResponse{}, calendarerrors.ErrDuplicateHoliday
		}
		s.log(ctx).Error("create holiday persist failed", zap.Error(err))
		return HolidayResponse{}, err
	}

	s.cache.Invalidate(ctx)
	s.log(ctx).Info("holiday created",
		zap.String("holiday_id", h.ID.String()),
		zap.String("date", req.Date),
	)
	return mapHolidayToResponse(*h), nil
}

func (s *service) UpdateHoliday(ctx context.Context, id string, req UpdateHolidayRequest) (HolidayResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return HolidayResponse{}, apperror.MapValidationError(err)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return HolidayResponse{}, calendarerrors.ErrInvalidDateFormat
	}

	h, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return HolidayResponse{}, calendarerrors.ErrHolidayNotFound
		}
		return HolidayResponse{}, err
	}

	h.HolidayDate = date
	h.Description = req.Description

	if err := s.repo.Update(ctx, h); err != nil {
		s.log(ctx).Error("update holiday persist failed", zap.Error(err))
		return HolidayResponse{}, err
	}

	s.cache.Invalidate(ctx)
	return mapHolidayToResponse(*h), nil
}

func (s *service) ArchiveHoliday(ctx context.Context, id string) error {
	return s.setHolidayActive(ctx, id, false)
}

func (s *service) RestoreHoliday(ctx context.Context, id string) error {
	return s.setHolidayActive(ctx, id, true)
}

func (s *service) setHolidayActive(ctx context.Context, id string, active bool) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return calendarerrors.ErrHolidayNotFound
		}
		return err
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		s.log(ctx).Error("set holiday active failed",
			zap.String("holiday_id", id),
			zap.Bool("active", active),
			zap.Error(err),
		)
		return err
	}

	s.cache.Invalidate(ctx)
	s.log(ctx).Info("holiday active flag changed",
		zap.String("holiday_id", id),
		zap.Bool("active", active),
	)
	return nil
}

func (s *service) DeleteHoliday(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return calendarerrors.ErrHolidayNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.log(ctx).Error("delete holiday failed", zap.String("holiday_id", id), zap.Error(err))
		return err
	}

	s.cache.Invalidate(ctx)
	return nil
}

func (s *service) GetHolidays(ctx context.Context) ([]HolidayResponse, error) {
	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]HolidayResponse, len(rows))
	for i, h := range rows {
		resp[i] = mapHolidayToResponse(h)
	}
	return resp, nil
}

func mapHolidayToResponse(h Holiday) HolidayResponse {
	return HolidayResponse{
		ID:          h.ID.String(),
		Date:        h.HolidayDate.Format("2006-01-02"),
		Description: h.Description,
		Active:      h.Active,
	}
}
