package balance

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pixelotes/Tempus/internal/shared/connection"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Find(ctx context.Context, subjectID string, year int) (*Account, error)
	FindForUpdate(ctx context.Context, subjectID string, year int) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Update(ctx context.Context, a *Account) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository whose queries run inside the given transaction.
// FindForUpdate is only meaningful through this path: the row lock it takes
// lives exactly as long as the transaction.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: connection.GORMWithTx(tx)}
}

func (r *repository) Find(ctx context.Context, subjectID string, year int) (*Account, error) {
	var a Account
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Where("year = ?", year).
		First(&a).Error
	return &a, err
}

// FindForUpdate takes a row lock so concurrent settlements of the same
// (subject, year) serialize instead of losing updates.
func (r *repository) FindForUpdate(ctx context.Context, subjectID string, year int) (*Account, error) {
	var a Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("subject_id = ?", subjectID).
		Where("year = ?", year).
		First(&a).Error
	return &a, err
}

func (r *repository) Create(ctx context.Context, a *Account) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) Update(ctx context.Context, a *Account) error {
	return r.db.WithContext(ctx).Save(a).Error
}
