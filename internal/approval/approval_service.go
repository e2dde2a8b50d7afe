package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/absence"
	absenceerrors "github.com/pixelotes/Tempus/internal/absence/errors"
	approvalerrors "github.com/pixelotes/Tempus/internal/approval/errors"
	"github.com/pixelotes/Tempus/internal/balance"
	"github.com/pixelotes/Tempus/internal/events"
	"github.com/pixelotes/Tempus/internal/messaging/kafka"
	"github.com/pixelotes/Tempus/internal/shared/contextutil"
	"github.com/pixelotes/Tempus/internal/subject"
)

//go:generate mockgen -source=approval_service.go -destination=mock/approval_service_mock.go -package=mock
type Service interface {
	Approve(ctx context.Context, family, requestID, approverID string) (absence.AbsenceResponse, error)
	Reject(ctx context.Context, family, requestID, approverID, comment string) (absence.AbsenceResponse, error)
}

type service struct {
	db       *sql.DB
	requests absence.Repository
	balances balance.Repository
	subjects subject.Repository
	outbox   kafka.OutboxRepository
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	requests absence.Repository,
	balances balance.Repository,
	subjects subject.Repository,
	outbox kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("approval.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.service")
	}
	return &service{
		db:       db,
		requests: requests,
		balances: balances,
		subjects: subjects,
		outbox:   outbox,
		logger:   l,
	}
}

func (s *service) log(ctx context.Context) *zap.Logger {
	return s.logger.With(contextutil.LogFields(ctx)...)
}

// Approve resolves a pending request. The status flip is a conditional
// update on status=PENDING, so of two concurrent resolutions exactly one
// wins and the other observes the request as already resolved.
func (s *service) Approve(ctx context.Context, family, requestID, approverID string) (absence.AbsenceResponse, error) {
	s.log(ctx).Debug("approve requested",
		zap.String("family", family),
		zap.String("request_id", requestID),
		zap.String("approver_id", approverID),
	)

	if family != absence.FamilyVacation && family != absence.FamilyLeave {
		return absence.AbsenceResponse{}, absenceerrors.ErrInvalidFamily
	}
	approverUUID, err := uuid.Parse(approverID)
	if err != nil {
		return absence.AbsenceResponse{}, approvalerrors.ErrInvalidApproverID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log(ctx).Error("approve begin tx failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.requests.WithTx(tx)

	req, err := qtx.FindByID(ctx, family, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return absence.AbsenceResponse{}, approvalerrors.ErrRequestNotFound
		}
		s.log(ctx).Error("approve lookup failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}

	resolved, err := qtx.MarkResolved(ctx, family, requestID, absence.StatusApproved, approverID, nil, false)
	if err != nil {
		s.log(ctx).Error("approve resolution failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}
	if resolved == 0 {
		return absence.AbsenceResponse{}, approvalerrors.ErrAlreadyResolved
	}

	net := 0
	switch req.ActionKind {
	case absence.ActionCreation:
		net = req.DayCount
	case absence.ActionModification, absence.ActionCancellation:
		baseline, err := qtx.FindOtherCurrent(ctx, family, req.LineageID.String(), requestID)
		if err != nil {
			s.log(ctx).Error("approve baseline lookup failed", zap.Error(err))
			return absence.AbsenceResponse{}, err
		}

		refund := 0
		if baseline != nil {
			retired, err := qtx.Retire(ctx, family, baseline.ID.String())
			if err != nil {
				s.log(ctx).Error("approve baseline retire failed", zap.Error(err))
				return absence.AbsenceResponse{}, err
			}
			if retired == 0 {
				return absence.AbsenceResponse{}, approvalerrors.ErrBaselineConflict
			}
			refund = baseline.DayCount
		}

		charge := 0
		if req.ActionKind == absence.ActionModification {
			charge = req.DayCount
		}
		net = charge - refund
	}

	if family == absence.FamilyVacation && net != 0 {
		if _, err := balance.ApplyDebit(ctx, s.balances.WithTx(tx), s.subjects.WithTx(tx), req.SubjectID, req.StartDate.Year(), net); err != nil {
			s.log(ctx).Error("approve settlement failed", zap.Error(err))
			return absence.AbsenceResponse{}, err
		}
	}

	now := time.Now().UTC()
	req.Status = absence.StatusApproved
	req.ApproverID = &approverUUID
	req.ResolvedAt = &now

	if err := s.queueResolvedEvent(ctx, tx, family, req, "absence.approved"); err != nil {
		s.log(ctx).Error("approve event enqueue failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.log(ctx).Error("approve commit failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}

	s.log(ctx).Info("approve success",
		zap.String("family", family),
		zap.String("request_id", requestID),
		zap.String("action_kind", req.ActionKind),
		zap.Int("net_days", net),
	)
	return mapToResponse(family, *req), nil
}

// Reject resolves a pending request negatively. A rejected creation stays
// current so the history shows it; a rejected modification or cancellation
// disappears from the current slot, leaving the approved baseline alone.
func (s *service) Reject(ctx context.Context, family, requestID, approverID, comment string) (absence.AbsenceResponse, error) {
	s.log(ctx).Debug("reject requested",
		zap.String("family", family),
		zap.String("request_id", requestID),
		zap.String("approver_id", approverID),
	)

	if family != absence.FamilyVacation && family != absence.FamilyLeave {
		return absence.AbsenceResponse{}, absenceerrors.ErrInvalidFamily
	}
	approverUUID, err := uuid.Parse(approverID)
	if err != nil {
		return absence.AbsenceResponse{}, approvalerrors.ErrInvalidApproverID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log(ctx).Error("reject begin tx failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.requests.WithTx(tx)

	req, err := qtx.FindByID(ctx, family, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return absence.AbsenceResponse{}, approvalerrors.ErrRequestNotFound
		}
		s.log(ctx).Error("reject lookup failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}

	var commentPtr *string
	if comment != "" {
		commentPtr = &comment
	}

	retireToo := req.ActionKind != absence.ActionCreation
	resolved, err := qtx.MarkResolved(ctx, family, requestID, absence.StatusRejected, approverID, commentPtr, retireToo)
	if err != nil {
		s.log(ctx).Error("reject resolution failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}
	if resolved == 0 {
		return absence.AbsenceResponse{}, approvalerrors.ErrAlreadyResolved
	}

	now := time.Now().UTC()
	req.Status = absence.StatusRejected
	req.ApproverID = &approverUUID
	req.ResolvedAt = &now
	req.ResolutionComment = commentPtr
	if retireToo {
		req.IsCurrent = false
	}

	if err := s.queueResolvedEvent(ctx, tx, family, req, "absence.rejected"); err != nil {
		s.log(ctx).Error("reject event enqueue failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.log(ctx).Error("reject commit failed", zap.Error(err))
		return absence.AbsenceResponse{}, err
	}

	s.log(ctx).Info("reject success",
		zap.String("family", family),
		zap.String("request_id", requestID),
		zap.String("action_kind", req.ActionKind),
	)
	return mapToResponse(family, *req), nil
}

func (s *service) queueResolvedEvent(ctx context.Context, tx *sql.Tx, family string, r *absence.Request, eventType string) error {
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

func mapToResponse(family string, r absence.Request) absence.AbsenceResponse {
	resp := absence.AbsenceResponse{
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
