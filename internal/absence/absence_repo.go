package absence

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/shared/connection"
)

//go:generate mockgen -source=absence_repo.go -destination=mock/absence_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, family string, req *Request) error
	FindByID(ctx context.Context, family, id string) (*Request, error)
	FindCurrentBySubject(ctx context.Context, family, subjectID string) ([]Request, error)
	FindOtherCurrent(ctx context.Context, family, lineageID, excludeID string) (*Request, error)
	FindConflicting(ctx context.Context, family, subjectID string, start, end time.Time, excludeLineage *string) (*Request, error)
	HasPendingChange(ctx context.Context, family, lineageID string) (bool, error)
	Retire(ctx context.Context, family, id string) (int64, error)
	MarkResolved(ctx context.Context, family, id, status, approverID string, comment *string, alsoRetire bool) (int64, error)
	FindLeaveTypeByID(ctx context.Context, id string) (*LeaveType, error)
	CreateLeaveType(ctx context.Context, lt *LeaveType) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository whose queries run inside the given transaction.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: connection.GORMWithTx(tx)}
}

func (r *repository) table(ctx context.Context, family string) *gorm.DB {
	return r.db.WithContext(ctx).Table(tableFor(family))
}

func (r *repository) Create(ctx context.Context, family string, req *Request) error {
	return r.table(ctx, family).Create(req).Error
}

func (r *repository) FindByID(ctx context.Context, family, id string) (*Request, error) {
	var req Request
	err := r.table(ctx, family).
		Where("id = ?", id).
		Take(&req).Error
	return &req, err
}

func (r *repository) FindCurrentBySubject(ctx context.Context, family, subjectID string) ([]Request, error) {
	var rows []Request
	err := r.table(ctx, family).
		Where("subject_id = ?", subjectID).
		Where("is_current = ?", true).
		Order("start_date DESC").
		Find(&rows).Error
	return rows, err
}

// FindOtherCurrent locates the current record in the lineage that is not the
// given one. During resolution of a pending change this is the approved
// baseline.
func (r *repository) FindOtherCurrent(ctx context.Context, family, lineageID, excludeID string) (*Request, error) {
	var req Request
	err := r.table(ctx, family).
		Where("lineage_id = ?", lineageID).
		Where("is_current = ?", true).
		Where("id <> ?", excludeID).
		Take(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// FindConflicting returns the first current, pending-or-approved,
// non-cancellation record whose inclusive date range intersects the
// candidate one. Records in the excluded lineage are skipped so a
// modification does not collide with its own prior self.
func (r *repository) FindConflicting(ctx context.Context, family, subjectID string, start, end time.Time, excludeLineage *string) (*Request, error) {
	q := r.table(ctx, family).
		Where("subject_id = ?", subjectID).
		Where("is_current = ?", true).
		Where("action_kind <> ?", ActionCancellation).
		Where("status IN ?", []string{StatusPending, StatusApproved}).
		Where("start_date <= ?", end.Format("2006-01-02")).
		Where("end_date >= ?", start.Format("2006-01-02"))

	if excludeLineage != nil && *excludeLineage != "" {
		q = q.Where("lineage_id <> ?", *excludeLineage)
	}

	var req Request
	err := q.Take(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *repository) HasPendingChange(ctx context.Context, family, lineageID string) (bool, error) {
	var count int64
	err := r.table(ctx, family).
		Where("lineage_id = ?", lineageID).
		Where("is_current = ?", true).
		Where("status = ?", StatusPending).
		Where("action_kind <> ?", ActionCreation).
		Count(&count).Error
	return count > 0, err
}

// Retire clears the current flag, only if still set. Zero rows means a
// concurrent writer got there first.
func (r *repository) Retire(ctx context.Context, family, id string) (int64, error) {
	res := r.table(ctx, family).
		Where("id = ?", id).
		Where("is_current = ?", true).
		Update("is_current", false)
	return res.RowsAffected, res.Error
}

// MarkResolved stamps the approver and resolution time, guarded on the
// request still being pending. Zero rows means it was already resolved.
func (r *repository) MarkResolved(ctx context.Context, family, id, status, approverID string, comment *string, alsoRetire bool) (int64, error) {
	fields := map[string]interface{}{
		"status":      status,
		"approver_id": approverID,
		"resolved_at": time.Now().UTC(),
	}
	if comment != nil {
		fields["resolution_comment"] = *comment
	}
	if alsoRetire {
		fields["is_current"] = false
	}

	res := r.table(ctx, family).
		Where("id = ?", id).
		Where("status = ?", StatusPending).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repository) FindLeaveTypeByID(ctx context.Context, id string) (*LeaveType, error) {
	var lt LeaveType
	err := r.db.WithContext(ctx).First(&lt, "id = ?", id).Error
	return &lt, err
}

func (r *repository) CreateLeaveType(ctx context.Context, lt *LeaveType) error {
	return r.db.WithContext(ctx).Create(lt).Error
}
