package subject

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/shared/connection"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, s *Subject) error
	FindByID(ctx context.Context, id string) (*Subject, error)
	FindAll(ctx context.Context) ([]Subject, error)
	Update(ctx context.Context, s *Subject) error
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

func (r *repository) Create(ctx context.Context, s *Subject) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Subject, error) {
	var s Subject
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *repository) FindAll(ctx context.Context) ([]Subject, error) {
	var rows []Subject
	err := r.db.WithContext(ctx).
		Order("full_name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, s *Subject) error {
	return r.db.WithContext(ctx).Save(s).Error
}
