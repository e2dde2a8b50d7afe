package timeentry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/events"
	"github.com/pixelotes/Tempus/internal/messaging/kafka"
	"github.com/pixelotes/Tempus/internal/shared/apperror"
	"github.com/pixelotes/Tempus/internal/shared/contextutil"
	timeentryerrors "github.com/pixelotes/Tempus/internal/timeentry/errors"
)

const autoCloseReason = "auto-closed: no clock-out recorded"

//go:generate mockgen -source=timeentry_service.go -destination=mock/timeentry_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, req CreateTimeEntryRequest) (TimeEntryResponse, error)
	Correct(ctx context.Context, id string, req CorrectTimeEntryRequest) (TimeEntryResponse, error)
	Delete(ctx context.Context, id string, req DeleteTimeEntryRequest) (TimeEntryResponse, error)
	GetForSubject(ctx context.Context, subjectID string, from, to string) ([]TimeEntryResponse, error)
	GetLineage(ctx context.Context, lineageID string) ([]TimeEntryResponse, error)
	CloseAbandoned(ctx context.Context, before time.Time) (int, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	outbox   kafka.OutboxRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(db *sql.DB, repo Repository, outbox kafka.OutboxRepository, logger ...*zap.Logger) Service {
	l := zap.L().Named("timeentry.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("timeentry.service")
	}
	return &service{
		db:       db,
		repo:     repo,
		outbox:   outbox,
		validate: validator.New(),
		logger:   l,
	}
}

func (s *service) log(ctx context.Context) *zap.Logger {
	return s.logger.With(contextutil.LogFields(ctx)...)
}

func (s *service) Create(ctx context.Context, req CreateTimeEntryRequest) (TimeEntryResponse, error) {
	s.log(ctx).Debug("create time entry requested",
		zap.String("subject_id", req.SubjectID),
		zap.String("date", req.Date),
	)

	if err := s.validate.Struct(req); err != nil {
		s.log(ctx).Warn("create time entry validation failed", zap.Error(err))
		return TimeEntryResponse{}, apperror.MapValidationError(err)
	}

	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		return TimeEntryResponse{}, timeentryerrors.ErrInvalidSubjectID
	}
	editorID, err := uuid.Parse(req.EditorID)
	if err != nil {
		return TimeEntryResponse{}, timeentryerrors.ErrInvalidEditorID
	}

	entryDate, clockIn, clockOut, err := parseInterval(req.Date, req.ClockIn, req.ClockOut)
	if err != nil {
		return TimeEntryResponse{}, err
	}
	if req.BreakMinutes < 0 {
		return TimeEntryResponse{}, timeentryerrors.ErrInvalidBreak
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log(ctx).Error("create time entry begin tx failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := s.checkInterval(ctx, qtx, subjectID, entryDate, clockIn, clockOut, nil); err != nil {
		return TimeEntryResponse{}, err
	}

	t := &TimeEntry{
		ID:           uuid.New(),
		LineageID:    uuid.New(),
		Version:      1,
		IsCurrent:    true,
		ActionKind:   ActionCreation,
		SubjectID:    subjectID,
		EditorID:     editorID,
		EntryDate:    entryDate,
		ClockIn:      clockIn,
		ClockOut:     clockOut,
		BreakMinutes: req.BreakMinutes,
	}

	if err := qtx.Create(ctx, t); err != nil {
		s.log(ctx).Error("create time entry persist failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.log(ctx).Error("create time entry commit failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	s.log(ctx).Info("create time entry success",
		zap.String("entry_id", t.ID.String()),
		zap.String("lineage_id", t.LineageID.String()),
		zap.String("subject_id", req.SubjectID),
	)

	return mapToResponse(*t), nil
}

func (s *service) Correct(ctx context.Context, id string, req CorrectTimeEntryRequest) (TimeEntryResponse, error) {
	s.log(ctx).Debug("correct time entry requested",
		zap.String("entry_id", id),
		zap.String("editor_id", req.EditorID),
	)

	if req.Reason == "" {
		return TimeEntryResponse{}, timeentryerrors.ErrReasonRequired
	}
	if err := s.validate.Struct(req); err != nil {
		s.log(ctx).Warn("correct time entry validation failed", zap.Error(err))
		return TimeEntryResponse{}, apperror.MapValidationError(err)
	}

	editorID, err := uuid.Parse(req.EditorID)
	if err != nil {
		return TimeEntryResponse{}, timeentryerrors.ErrInvalidEditorID
	}

	entryDate, clockIn, clockOut, err := parseInterval(req.Date, req.ClockIn, req.ClockOut)
	if err != nil {
		return TimeEntryResponse{}, err
	}
	if req.BreakMinutes < 0 {
		return TimeEntryResponse{}, timeentryerrors.ErrInvalidBreak
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log(ctx).Error("correct time entry begin tx failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	prior, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TimeEntryResponse{}, timeentryerrors.ErrEntryNotFound
		}
		s.log(ctx).Error("correct time entry lookup failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	if prior.ActionKind == ActionDeletion {
		return TimeEntryResponse{}, timeentryerrors.ErrLineageDeleted
	}
	if !prior.IsCurrent {
		return TimeEntryResponse{}, timeentryerrors.ErrStaleVersion
	}

	lineage := prior.LineageID.String()
	if err := s.checkInterval(ctx, qtx, prior.SubjectID, entryDate, clockIn, clockOut, &lineage); err != nil {
		return TimeEntryResponse{}, err
	}

	retired, err := qtx.Retire(ctx, id)
	if err != nil {
		s.log(ctx).Error("correct time entry retire failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	if retired == 0 {
		return TimeEntryResponse{}, timeentryerrors.ErrStaleVersion
	}

	next := &TimeEntry{
		ID:           uuid.New(),
		LineageID:    prior.LineageID,
		Version:      prior.Version + 1,
		IsCurrent:    true,
		ActionKind:   ActionModification,
		SubjectID:    prior.SubjectID,
		EditorID:     editorID,
		Reason:       &req.Reason,
		EntryDate:    entryDate,
		ClockIn:      clockIn,
		ClockOut:     clockOut,
		BreakMinutes: req.BreakMinutes,
	}

	if err := qtx.Create(ctx, next); err != nil {
		s.log(ctx).Error("correct time entry persist failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.log(ctx).Error("correct time entry commit failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	s.log(ctx).Info("correct time entry success",
		zap.String("lineage_id", lineage),
		zap.Int("version", next.Version),
	)

	return mapToResponse(*next), nil
}

func (s *service) Delete(ctx context.Context, id string, req DeleteTimeEntryRequest) (TimeEntryResponse, error) {
	s.log(ctx).Debug("delete time entry requested", zap.String("entry_id", id))

	if err := s.validate.Struct(req); err != nil {
		s.log(ctx).Warn("delete time entry validation failed", zap.Error(err))
		return TimeEntryResponse{}, apperror.MapValidationError(err)
	}

	editorID, err := uuid.Parse(req.EditorID)
	if err != nil {
		return TimeEntryResponse{}, timeentryerrors.ErrInvalidEditorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log(ctx).Error("delete time entry begin tx failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	prior, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TimeEntryResponse{}, timeentryerrors.ErrEntryNotFound
		}
		s.log(ctx).Error("delete time entry lookup failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	if prior.ActionKind == ActionDeletion {
		return TimeEntryResponse{}, timeentryerrors.ErrLineageDeleted
	}
	if !prior.IsCurrent {
		return TimeEntryResponse{}, timeentryerrors.ErrStaleVersion
	}

	retired, err := qtx.Retire(ctx, id)
	if err != nil {
		s.log(ctx).Error("delete time entry retire failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	if retired == 0 {
		return TimeEntryResponse{}, timeentryerrors.ErrStaleVersion
	}

	reason := req.Reason
	if reason == "" {
		reason = "entry removed"
	}

	// The tombstone keeps the last known fields so the history remains
	// self-describing without joining back to the prior version.
	tomb := &TimeEntry{
		ID:           uuid.New(),
		LineageID:    prior.LineageID,
		Version:      prior.Version + 1,
		IsCurrent:    true,
		ActionKind:   ActionDeletion,
		SubjectID:    prior.SubjectID,
		EditorID:     editorID,
		Reason:       &reason,
		EntryDate:    prior.EntryDate,
		ClockIn:      prior.ClockIn,
		ClockOut:     prior.ClockOut,
		BreakMinutes: prior.BreakMinutes,
	}

	if err := qtx.Create(ctx, tomb); err != nil {
		s.log(ctx).Error("delete time entry persist failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.log(ctx).Error("delete time entry commit failed", zap.Error(err))
		return TimeEntryResponse{}, err
	}
	s.log(ctx).Info("delete time entry success",
		zap.String("lineage_id", prior.LineageID.String()),
		zap.Int("version", tomb.Version),
	)

	return mapToResponse(*tomb), nil
}

func (s *service) GetForSubject(ctx context.Context, subjectID string, from, to string) ([]TimeEntryResponse, error) {
	if _, err := uuid.Parse(subjectID); err != nil {
		return nil, timeentryerrors.ErrInvalidSubjectID
	}
	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, timeentryerrors.ErrInvalidDateFormat
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, timeentryerrors.ErrInvalidDateFormat
	}

	rows, err := s.repo.FindCurrentBySubject(ctx, subjectID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func (s *service) GetLineage(ctx context.Context, lineageID string) ([]TimeEntryResponse, error) {
	if _, err := uuid.Parse(lineageID); err != nil {
		return nil, timeentryerrors.ErrEntryNotFound
	}
	rows, err := s.repo.FindLineage(ctx, lineageID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, timeentryerrors.ErrEntryNotFound
	}
	return mapToListResponse(rows), nil
}

// CloseAbandoned supersedes every still-open entry dated before the given day
// with an auto-closed version ending at 23:59:59, and queues an incident event
// for each. Entries that change under the sweep are skipped and picked up on
// the next run.
func (s *service) CloseAbandoned(ctx context.Context, before time.Time) (int, error) {
	open, err := s.repo.FindOpenBefore(ctx, before)
	if err != nil {
		s.log(ctx).Error("close abandoned scan failed", zap.Error(err))
		return 0, err
	}
	if len(open) == 0 {
		return 0, nil
	}

	closed := 0
	for i := range open {
		if err := s.closeOne(ctx, &open[i]); err != nil {
			if errors.Is(err, timeentryerrors.ErrStaleVersion) {
				continue
			}
			return closed, err
		}
		closed++
	}

	s.log(ctx).Info("close abandoned sweep finished",
		zap.Int("scanned", len(open)),
		zap.Int("closed", closed),
	)
	return closed, nil
}

func (s *service) closeOne(ctx context.Context, prior *TimeEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	retired, err := qtx.Retire(ctx, prior.ID.String())
	if err != nil {
		return err
	}
	if retired == 0 {
		return timeentryerrors.ErrStaleVersion
	}

	d := prior.EntryDate
	closedAt := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
	reason := autoCloseReason

	next := &TimeEntry{
		ID:           uuid.New(),
		LineageID:    prior.LineageID,
		Version:      prior.Version + 1,
		IsCurrent:    true,
		ActionKind:   ActionModification,
		SubjectID:    prior.SubjectID,
		EditorID:     prior.SubjectID,
		Reason:       &reason,
		EntryDate:    prior.EntryDate,
		ClockIn:      prior.ClockIn,
		ClockOut:     &closedAt,
		BreakMinutes: prior.BreakMinutes,
		AutoClosed:   true,
	}

	if err := qtx.Create(ctx, next); err != nil {
		return err
	}

	if s.outbox != nil {
		payload, err := json.Marshal(events.TimeEntryAutoClosedEvent{
			EventType:  "timeentry.auto_closed",
			LineageID:  next.LineageID.String(),
			RecordID:   next.ID.String(),
			SubjectID:  next.SubjectID.String(),
			EntryDate:  next.EntryDate.Format("2006-01-02"),
			ClosedAt:   closedAt.Format(time.RFC3339),
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
			ID:            uuid.NewString(),
			AggregateType: "time_entry",
			AggregateID:   next.LineageID.String(),
			EventType:     "timeentry.auto_closed",
			Topic:         events.TimeEntryAutoClosedTopic,
			Payload:       payload,
			Status:        kafka.OutboxStatusPending,
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.log(ctx).Warn("open entry auto-closed",
		zap.String("lineage_id", next.LineageID.String()),
		zap.String("subject_id", next.SubjectID.String()),
		zap.String("entry_date", next.EntryDate.Format("2006-01-02")),
	)
	return nil
}

func (s *service) checkInterval(ctx context.Context, qtx Repository, subjectID uuid.UUID, date time.Time, clockIn time.Time, clockOut *time.Time, excludeLineage *string) error {
	conflict, err := qtx.FindConflictingInterval(ctx, subjectID.String(), date, clockIn, clockOut, excludeLineage)
	if err != nil {
		s.log(ctx).Error("time entry overlap check failed", zap.Error(err))
		return err
	}
	if conflict == nil {
		return nil
	}

	s.log(ctx).Warn("time entry overlap detected",
		zap.String("subject_id", subjectID.String()),
		zap.String("entry_date", date.Format("2006-01-02")),
		zap.String("conflicting_id", conflict.ID.String()),
	)

	end := conflict.ClockIn
	if conflict.ClockOut != nil {
		end = *conflict.ClockOut
	}
	return apperror.NewOverlap("the interval overlaps an existing time entry", apperror.ConflictRange{
		Family: "TIME_ENTRY",
		Start:  conflict.ClockIn,
		End:    end,
	})
}

// parseInterval resolves the wall-clock strings onto the entry date. A
// clock-out earlier than the clock-in is read as running past midnight.
func parseInterval(date, clockIn string, clockOut *string) (time.Time, time.Time, *time.Time, error) {
	entryDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, time.Time{}, nil, timeentryerrors.ErrInvalidDateFormat
	}

	in, err := atDate(entryDate, clockIn)
	if err != nil {
		return time.Time{}, time.Time{}, nil, err
	}

	if clockOut == nil {
		return entryDate, in, nil, nil
	}

	out, err := atDate(entryDate, *clockOut)
	if err != nil {
		return time.Time{}, time.Time{}, nil, err
	}
	if out.Equal(in) {
		return time.Time{}, time.Time{}, nil, timeentryerrors.ErrInvalidInterval
	}
	if out.Before(in) {
		out = out.Add(24 * time.Hour)
	}
	return entryDate, in, &out, nil
}

func atDate(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, timeentryerrors.ErrInvalidTimeFormat
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

func mapToResponse(t TimeEntry) TimeEntryResponse {
	resp := TimeEntryResponse{
		ID:           t.ID.String(),
		LineageID:    t.LineageID.String(),
		Version:      t.Version,
		IsCurrent:    t.IsCurrent,
		ActionKind:   t.ActionKind,
		SubjectID:    t.SubjectID.String(),
		EditorID:     t.EditorID.String(),
		Reason:       t.Reason,
		Date:         t.EntryDate.Format("2006-01-02"),
		ClockIn:      t.ClockIn.Format("15:04"),
		BreakMinutes: t.BreakMinutes,
		AutoClosed:   t.AutoClosed,
		WorkedHours:  t.WorkedHours().StringFixed(2),
	}
	if t.ClockOut != nil {
		out := t.ClockOut.Format("15:04")
		resp.ClockOut = &out
	}
	return resp
}

func mapToListResponse(rows []TimeEntry) []TimeEntryResponse {
	out := make([]TimeEntryResponse, 0, len(rows))
	for _, t := range rows {
		out = append(out, mapToResponse(t))
	}
	return out
}
