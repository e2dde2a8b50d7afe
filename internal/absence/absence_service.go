package absence

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

	absenceerrors "github.com/pixelotes/Tempus/internal/absence/errors"
	"github.com/pixelotes/Tempus/internal/balance"
	"github.com/pixelotes/Tempus/internal/calendar"
	"github.com/pixelotes/Tempus/internal/events"
	"github.com/pixelotes/Tempus/internal/messaging/kafka"
	"github.com/pixelotes/Tempus/internal/shared/apperror"
	"github.com/pixelotes/Tempus/internal/shared/contextutil"
	"github.com/pixelotes/Tempus/internal/subject"
)

//go:generate mockgen -source=absence_service.go -destination=mock/absence_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, req CreateAbsenceRequest) (AbsenceResponse, error)
	RequestModification(ctx context.Context, family, id string, req ModifyAbsenceRequest) (AbsenceResponse, error)
	RequestCancellation(ctx context.Context, family, id string, req CancelAbsenceRequest) (AbsenceResponse, error)
	GetForSubject(ctx context.Context, family, subjectID string) ([]AbsenceResponse, error)
	CreateLeaveType(ctx context.Context, req CreateLeaveTypeRequest) (LeaveTypeResponse, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	subjects subject.Repository
	balances balance.Repository
	cal      calendar.Service
	outbox   kafka.OutboxRepository

	// maxAdvance bounds how far below zero a vacation admission may
	// project the subject's balance.
	maxAdvance int

	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	subjects subject.Repository,
	balances balance.Repository,
	cal calendar.Service,
	outbox kafka.OutboxRepository,
	maxAdvance int,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("absence.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("absence.service")
	}
	return &service{
		db:         db,
		repo:       repo,
		subjects:   subjects,
		balances:   balances,
		cal:        cal,
		outbox:     outbox,
		maxAdvance: maxAdvance,
		validate:   validator.New(),
		logger:     l,
	}
}

func (s *service) log(ctx context.Context) *zap.Logger {
	return s.logger.With(contextutil.LogFields(ctx)...)
}

func (s *service) Create(ctx context.Context, req CreateAbsenceRequest) (AbsenceResponse, error) {
	s.log(ctx).Debug("create absence requested",
		zap.String("family", req.Family),
		zap.String("subject_id", req.SubjectID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	if err := s.validate.Struct(req); err != nil {
		s.log(ctx).Warn("create absence validation failed", zap.Error(err))
		return AbsenceResponse{}, apperror.MapValidationError(err)
	}

	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		return AbsenceResponse{}, absenceerrors.ErrInvalidSubjectID
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return AbsenceResponse{}, err
	}

	var leaveType *LeaveType
	if req.Family == FamilyLeave {
		if req.LeaveTypeID == nil {
			return AbsenceResponse{}, absenceerrors.ErrLeaveTypeRequired
		}
		leaveType, err = s.loadLeaveType(ctx, *req.LeaveTypeID)
		if err != nil {
			return AbsenceResponse{}, err
		}
	}

	days, err := s.countFor(ctx, req.Family, leaveType, start, end)
	if err != nil {
		return AbsenceResponse{}, err
	}
	if leaveType != nil && leaveType.MaxDays > 0 && days > leaveType.MaxDays {
		return AbsenceResponse{}, absenceerrors.ErrMaxDurationExceeded
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log(ctx).Error("create absence begin tx failed", zap.Error(err))
		return AbsenceResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := s.checkOverlap(ctx, qtx, subjectID, start, end, nil); err != nil {
		return AbsenceResponse{}, err
	}

	advance := false
	if req.Family == FamilyVacation {
		advance, err = s.admitVacation(ctx, subjectID, start.Year(), days)
		if err != nil {
			return AbsenceResponse{}, err
		}
	}

	r := &Request{
		ID:         uuid.New(),
		LineageID:  uuid.New(),
		Version:    1,
		IsCurrent:  true,
		ActionKind: ActionCreation,
		SubjectID:  subjectID,
		StartDate:  start,
		EndDate:    end,
		DayCount:   days,
		Status:     StatusPending,
		Advance:    advance,
	}
	if req.Reason != "" {
		r.Reason = &req.Reason
	}
	if leaveType != nil {
		r.LeaveTypeID = &leaveType.ID
	}

	if req.OnBehalfOf != nil {
		if err := s.preApprove(ctx, tx, qtx, r, req.Family, *req.OnBehalfOf); err != nil {
			return AbsenceResponse{}, err
		}
	}

	if err := qtx.Create(ctx, req.Family, r); err != nil {
		s.log(ctx).Error("create absence persist failed", zap.Error(err))
		return AbsenceResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.log(ctx).Error("create absence commit failed", zap.Error(err))
		return AbsenceResponse{}, err
	}

	s.log(ctx).Info("create absence success",
		zap.String("family", req.Family),
		zap.String("request_id", r.ID.String()),
		zap.String("lineage_id", r.LineageID.String()),
		zap.String("status", r.Status),
		zap.Bool("advance", advance),
	)
	return mapToResponse(req.Family, *r), nil
}

// preApprove handles admin impersonation: the request is admitted already
// approved, with the editor stamped as approver and, for vacations, the
// balance debited in the same transaction.
func (s *service) preApprove(ctx context.Context, tx *sql.Tx, qtx Repository, r *Request, family, editorID string) error {
	editorUUID, err := uuid.Parse(editorID)
	if err != nil {
		return absenceerrors.ErrInvalidEditorID
	}

	editor, err := s.subjects.FindByID(ctx, editorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return absenceerrors.ErrInvalidEditorID
		}
		return err
	}
	if !editor.IsAdmin {
		return absenceerrors.ErrNotAdmin
	}

	now := time.Now().UTC()
	r.Status = StatusApproved
	r.ApproverID = &editorUUID
	r.ResolvedAt = &now

	if family == FamilyVacation {
		if _, err := balance.ApplyDebit(ctx, s.balances.WithTx(tx), s.subjects.WithTx(tx), r.SubjectID, r.StartDate.Year(), r.DayCount); err != nil {
			s.log(ctx).Error("pre-approved debit failed", zap.Error(err))
			return err
		}
	}

	return s.queueResolvedEvent(ctx, tx, family, r, "absence.approved")
}

func (s *service) RequestModification(ctx context.Context, family, id string, req ModifyAbsenceRequest) (AbsenceResponse, error) {
	s.log(ctx).Debug("request modification",
		zap.String("family", family),
		zap.String("request_id", id),
	)

	if family != FamilyVacation && family != FamilyLeave {
		return AbsenceResponse{}, absenceerrors.ErrInvalidFamily
	}
	if err := s.validate.Struct(req); err != nil {
		s.log(ctx).Warn("request modification validation failed", zap.Error(err))
		return AbsenceResponse{}, apperror.MapValidationError(err)
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return AbsenceResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log(ctx).Error("request modification begin tx failed", zap.Error(err))
		return AbsenceResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	prior, err := s.loadChangeable(ctx, qtx, family, id)
	if err != nil {
		return AbsenceResponse{}, err
	}

	var leaveType *LeaveType
	if family == FamilyLeave && prior.LeaveTypeID != nil {
		leaveType, err = s.loadLeaveType(ctx, prior.LeaveTypeID.String())
		if err != nil {
			return AbsenceResponse{}, err
		}
	}

	days, err := s.countFor(ctx, family, leaveType, start, end)
	if err != nil {
		return AbsenceResponse{}, err
	}
	if leaveType != nil && leaveType.MaxDays > 0 && days > leaveType.MaxDays {
		return AbsenceResponse{}, absenceerrors.ErrMaxDurationExceeded
	}

	lineage := prior.LineageID.String()
	if err := s.checkOverlap(ctx, qtx, prior.SubjectID, start, end, &lineage); err != nil {
		return AbsenceResponse{}, err
	}

	if family == FamilyVacation {
		// The baseline's days come back on approval, so only the net
		// growth counts against the ceiling. A pending prior was never
		// debited and bears the full amount.
		requested := days
		if prior.Status == StatusApproved {
			requested = days - prior.DayCount
		}
		if _, err := s.admitVacation(ctx, prior.SubjectID, start.Year(), requested); err != nil {
			return AbsenceResponse{}, err
		}
	}

	if prior.Status == StatusPending {
		// No approved baseline to preserve: supersede directly.
		retired, err := qtx.Retire(ctx, family, prior.ID.String())
		if err != nil {
			return AbsenceResponse{}, err
		}
		if retired == 0 {
			return AbsenceResponse{}, absenceerrors.ErrStaleVersion
		}
	}

	next := &Request{
		ID:          uuid.New(),
		LineageID:   prior.LineageID,
		Version:     prior.Version + 1,
		IsCurrent:   true,
		ActionKind:  ActionModification,
		SubjectID:   prior.SubjectID,
		StartDate:   start,
		EndDate:     end,
		DayCount:    days,
		Status:      StatusPending,
		Reason:      &req.Reason,
		LeaveTypeID: prior.LeaveTypeID,
	}

	if err := qtx.Create(ctx, family, next); err != nil {
		s.log(ctx).Error("request modification persist failed", zap.Error(err))
		return AbsenceResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.log(ctx).Error("request modification commit failed", zap.Error(err))
		return AbsenceResponse{}, err
	}

	s.log(ctx).Info("request modification success",
		zap.String("family", family),
		zap.String("lineage_id", lineage),
		zap.Int("version", next.Version),
	)
	return mapToResponse(family, *next), nil
}

func (s *service) RequestCancellation(ctx context.Context, family, id string, req CancelAbsenceRequest) (AbsenceResponse, error) {
	s.log(ctx).Debug("request cancellation",
		zap.String("family", family),
		zap.String("request_id", id),
	)

	if family != FamilyVacation && family != FamilyLeave {
		return AbsenceResponse{}, absenceerrors.ErrInvalidFamily
	}
	if err := s.validate.Struct(req); err != nil {
		s.log(ctx).Warn("request cancellation validation failed", zap.Error(err))
		return AbsenceResponse{}, apperror.MapValidationError(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log(ctx).Error("request cancellation begin tx failed", zap.Error(err))
		return AbsenceResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	prior, err := s.loadChangeable(ctx, qtx, family, id)
	if err != nil {
		return AbsenceResponse{}, err
	}

	next := &Request{
		ID:          uuid.New(),
		LineageID:   prior.LineageID,
		Version:     prior.Version + 1,
		IsCurrent:   true,
		ActionKind:  ActionCancellation,
		SubjectID:   prior.SubjectID,
		StartDate:   prior.StartDate,
		EndDate:     prior.EndDate,
		DayCount:    prior.DayCount,
		Status:      StatusPending,
		Reason:      &req.Reason,
		LeaveTypeID: prior.LeaveTypeID,
	}

	if prior.Status == StatusPending {
		// Withdrawing a request that was never approved needs no
		// approval of its own: the cancellation version resolves
		// itself and nothing was debited.
		retired, err := qtx.Retire(ctx, family, prior.ID.String())
		if err != nil {
			return AbsenceResponse{}, err
		}
		if retired == 0 {
			return AbsenceResponse{}, absenceerrors.ErrStaleVersion
		}

		now := time.Now().UTC()
		next.Status = StatusApproved
		next.ApproverID = &prior.SubjectID
		next.ResolvedAt = &now
	}

	if err := qtx.Create(ctx, family, next); err != nil {
		s.log(ctx).Error("request cancellation persist failed", zap.Error(err))
		return AbsenceResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.log(ctx).Error("request cancellation commit failed", zap.Error(err))
		return AbsenceResponse{}, err
	}

	s.log(ctx).Info("request cancellation success",
		zap.String("family", family),
		zap.String("lineage_id", prior.LineageID.String()),
		zap.Int("version", next.Version),
		zap.String("status", next.Status),
	)
	return mapToResponse(family, *next), nil
}

func (s *service) GetForSubject(ctx context.Context, family, subjectID string) ([]AbsenceResponse, error) {
	if family != FamilyVacation && family != FamilyLeave {
		return nil, absenceerrors.ErrInvalidFamily
	}
	if _, err := uuid.Parse(subjectID); err != nil {
		return nil, absenceerrors.ErrInvalidSubjectID
	}

	rows, err := s.repo.FindCurrentBySubject(ctx, family, subjectID)
	if err != nil {
		return nil, err
	}

	out := make([]AbsenceResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, mapToResponse(family, r))
	}
	return out, nil
}

// CreateLeaveType registers a new LEAVE category. Types start active and can
// be referenced immediately by new requests.
func (s *service) CreateLeaveType(ctx context.Context, req CreateLeaveTypeRequest) (LeaveTypeResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		s.log(ctx).Warn("create leave type validation failed", zap.Error(err))
		return LeaveTypeResponse{}, apperror.MapValidationError(err)
	}

	lt := &LeaveType{
		ID:           uuid.New(),
		Name:         req.Name,
		CountingMode: calendar.CountingMode(req.CountingMode),
		MaxDays:      req.MaxDays,
		Active:       true,
	}

	if err := s.repo.CreateLeaveType(ctx, lt); err != nil {
		s.log(ctx).Error("create leave type persist failed", zap.Error(err))
		return LeaveTypeResponse{}, err
	}

	s.log(ctx).Info("create leave type success",
		zap.String("leave_type_id", lt.ID.String()),
		zap.String("name", lt.Name),
	)
	return LeaveTypeResponse{
		ID:           lt.ID.String(),
		Name:         lt.Name,
		CountingMode: string(lt.CountingMode),
		MaxDays:      lt.MaxDays,
		Active:       lt.Active,
	}, nil
}

// loadChangeable fetches the prior version a change request targets and
// rejects targets that cannot accept one: stale versions, already-rejected
// records, elapsed ranges, and approved baselines that already have a
// pending change in flight.
func (s *service) loadChangeable(ctx context.Context, qtx Repository, family, id string) (*Request, error) {
	prior, err := qtx.FindByID(ctx, family, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, absenceerrors.ErrRequestNotFound
		}
		return nil, err
	}

	if !prior.IsCurrent {
		return nil, absenceerrors.ErrStaleVersion
	}
	if prior.Status == StatusRejected || prior.ActionKind == ActionCancellation {
		return nil, absenceerrors.ErrInvalidState
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if prior.EndDate.Before(today) {
		return nil, absenceerrors.ErrPastDate
	}

	if prior.Status == StatusApproved {
		pending, err := qtx.HasPendingChange(ctx, family, prior.LineageID.String())
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, absenceerrors.ErrPendingChangeExists
		}
	}

	return prior, nil
}

func (s *service) loadLeaveType(ctx context.Context, id string) (*LeaveType, error) {
	lt, err := s.repo.FindLeaveTypeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, absenceerrors.ErrLeaveTypeNotFound
		}
		return nil, err
	}
	if !lt.Active {
		return nil, absenceerrors.ErrLeaveTypeInactive
	}
	return lt, nil
}

func (s *service) countFor(ctx context.Context, family string, leaveType *LeaveType, start, end time.Time) (int, error) {
	mode := calendar.ModeWorking
	if leaveType != nil {
		mode = leaveType.CountingMode
	}

	days, err := s.cal.CountDays(ctx, start, end, mode)
	if err != nil {
		return 0, err
	}
	if days <= 0 {
		return 0, absenceerrors.ErrZeroDayCount
	}
	return days, nil
}

// checkOverlap runs the candidate range against both families: a pending or
// approved absence of either kind blocks the other.
func (s *service) checkOverlap(ctx context.Context, qtx Repository, subjectID uuid.UUID, start, end time.Time, excludeLineage *string) error {
	for _, family := range []string{FamilyVacation, FamilyLeave} {
		conflict, err := qtx.FindConflicting(ctx, family, subjectID.String(), start, end, excludeLineage)
		if err != nil {
			s.log(ctx).Error("absence overlap check failed",
				zap.String("family", family),
				zap.Error(err),
			)
			return err
		}
		if conflict == nil {
			continue
		}

		s.log(ctx).Warn("absence overlap detected",
			zap.String("family", family),
			zap.String("subject_id", subjectID.String()),
			zap.String("conflicting_id", conflict.ID.String()),
		)
		return apperror.NewOverlap("the range overlaps an existing absence request", apperror.ConflictRange{
			Family: family,
			Start:  conflict.StartDate,
			End:    conflict.EndDate,
		})
	}
	return nil
}

// admitVacation enforces the advance ceiling and reports whether the
// admission projects the balance below zero.
func (s *service) admitVacation(ctx context.Context, subjectID uuid.UUID, year, requested int) (bool, error) {
	available, err := balance.ProjectedAvailable(ctx, s.balances, s.subjects, subjectID, year)
	if err != nil {
		return false, err
	}

	if available-requested < -s.maxAdvance {
		s.log(ctx).Warn("vacation admission blocked by advance ceiling",
			zap.String("subject_id", subjectID.String()),
			zap.Int("available", available),
			zap.Int("requested", requested),
			zap.Int("max_advance", s.maxAdvance),
		)
		return false, absenceerrors.NewAdvanceLimit(available, requested, s.maxAdvance)
	}

	if available-requested < 0 {
		s.log(ctx).Warn("vacation admitted as advance",
			zap.String("subject_id", subjectID.String()),
			zap.Int("available", available),
			zap.Int("requested", requested),
		)
		return true, nil
	}
	return false, nil
}

func (s *service) queueResolvedEvent(ctx context.Context, tx *sql.Tx, family string, r *Request, eventType string) error {
	if s.outbox == nil {
		return nil
	}

	approvedBy := ""
	if r.ApproverID != nil {
		approvedBy = r.ApproverID.String()
	}
	payload, err := json.Marshal(events.AbsenceResolvedEvent{
		EventType:  eventType,
		RequestID:  r.ID.String(),
		Family:     family,
		LineageID:  r.LineageID.String(),
		RecordID:   r.ID.String(),
		SubjectID:  r.SubjectID.String(),
		ActionKind: r.ActionKind,
		Status:     r.Status,
		StartDate:  r.StartDate.Format("2006-01-02"),
		EndDate:    r.EndDate.Format("2006-01-02"),
		DayCount:   r.DayCount,
		ApprovedBy: approvedBy,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		AggregateType: "absence_request",
		AggregateID:   r.LineageID.String(),
		EventType:     eventType,
		Topic:         events.AbsenceResolvedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, absenceerrors.ErrInvalidDateFormat
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, absenceerrors.ErrInvalidDateFormat
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, absenceerrors.ErrInvalidDateRange
	}
	return start, end, nil
}

func mapToResponse(family string, r Request) AbsenceResponse {
	resp := AbsenceResponse{
		ID:         r.ID.String(),
		Family:     family,
		LineageID:  r.LineageID.String(),
		Version:    r.Version,
		IsCurrent:  r.IsCurrent,
		ActionKind: r.ActionKind,
		SubjectID:  r.SubjectID.String(),
		StartDate:  r.StartDate.Format("2006-01-02"),
		EndDate:    r.EndDate.Format("2006-01-02"),
		DayCount:   r.DayCount,
		Status:     r.Status,
		Reason:     r.Reason,
		Advance:    r.Advance,
	}
	if r.ApproverID != nil {
		v := r.ApproverID.String()
		resp.ApproverID = &v
	}
	if r.ResolvedAt != nil {
		v := r.ResolvedAt.UTC().Format(time.RFC3339)
		resp.ResolvedAt = &v
	}
	resp.ResolutionComment = r.ResolutionComment
	if r.LeaveTypeID != nil {
		v := r.LeaveTypeID.String()
		resp.LeaveTypeID = &v
	}
	return resp
}
