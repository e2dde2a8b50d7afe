package timeentry

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/shared/connection"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, t *TimeEntry) error
	FindByID(ctx context.Context, id string) (*TimeEntry, error)
	FindCurrentBySubject(ctx context.Context, subjectID string, from, to time.Time) ([]TimeEntry, error)
	FindLineage(ctx context.Context, lineageID string) ([]TimeEntry, error)
	FindConflictingInterval(ctx context.Context, subjectID string, date time.Time, clockIn time.Time, clockOut *time.Time, excludeLineage *string) (*TimeEntry, error)
	Retire(ctx context.Context, id string) (int64, error)
	FindOpenBefore(ctx context.Context, before time.Time) ([]TimeEntry, error)
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

func (r *repository) Create(ctx context.Context, t *TimeEntry) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*TimeEntry, error) {
	var t TimeEntry
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	return &t, err
}

func (r *repository) FindCurrentBySubject(ctx context.Context, subjectID string, from, to time.Time) ([]TimeEntry, error) {
	var rows []TimeEntry
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Where("is_current = ?", true).
		Where("action_kind <> ?", ActionDeletion).
		Where("entry_date >= ?", from.Format("2006-01-02")).
		Where("entry_date <= ?", to.Format("2006-01-02")).
		Order("entry_date DESC, clock_in DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindLineage(ctx context.Context, lineageID string) ([]TimeEntry, error) {
	var rows []TimeEntry
	err := r.db.WithContext(ctx).
		Where("lineage_id = ?", lineageID).
		Order("version ASC").
		Find(&rows).Error
	return rows, err
}

// FindConflictingInterval returns the first current, non-tombstone entry for
// the same subject and date whose clock interval intersects the candidate
// one, half-open. An open entry (no clock-out yet) blocks everything after
// its clock-in.
func (r *repository) FindConflictingInterval(ctx context.Context, subjectID string, date time.Time, clockIn time.Time, clockOut *time.Time, excludeLineage *string) (*TimeEntry, error) {
	q := r.db.WithContext(ctx).
		Model(&TimeEntry{}).
		Where("subject_id = ?", subjectID).
		Where("entry_date = ?", date.Format("2006-01-02")).
		Where("is_current = ?", true).
		Where("action_kind <> ?", ActionDeletion).
		Where("(clock_out IS NULL OR clock_out > ?)", clockIn)

	if clockOut != nil {
		q = q.Where("clock_in < ?", *clockOut)
	}

	if excludeLineage != nil && *excludeLineage != "" {
		q = q.Where("lineage_id <> ?", *excludeLineage)
	}

	var t TimeEntry
	err := q.First(&t).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Retire flips the current flag off, but only if it is still on. A zero row
// count means someone else already superseded this version.
func (r *repository) Retire(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&TimeEntry{}).
		Where("id = ?", id).
		Where("is_current = ?", true).
		Update("is_current", false)
	return res.RowsAffected, res.Error
}

func (r *repository) FindOpenBefore(ctx context.Context, before time.Time) ([]TimeEntry, error) {
	var rows []TimeEntry
	err := r.db.WithContext(ctx).
		Where("clock_out IS NULL").
		Where("is_current = ?", true).
		Where("action_kind <> ?", ActionDeletion).
		Where("entry_date < ?", before.Format("2006-01-02")).
		Find(&rows).Error
	return rows, err
}
