package balance_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/balance"
	balanceerrors "github.com/pixelotes/Tempus/internal/balance/errors"
	"github.com/pixelotes/Tempus/internal/calendar"
	"github.com/pixelotes/Tempus/internal/subject"
)

type fakeBalanceRepository struct {
	findFn          func(ctx context.Context, subjectID string, year int) (*balance.Account, error)
	findForUpdateFn func(ctx context.Context, subjectID string, year int) (*balance.Account, error)
	createFn        func(ctx context.Context, a *balance.Account) error
	updateFn        func(ctx context.Context, a *balance.Account) error
}

func (f *fakeBalanceRepository) WithTx(tx *sql.Tx) balance.Repository { return f }

func (f *fakeBalanceRepository) Find(ctx context.Context, subjectID string, year int) (*balance.Account, error) {
	if f.findFn != nil {
		return f.findFn(ctx, subjectID, year)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBalanceRepository) FindForUpdate(ctx context.Context, subjectID string, year int) (*balance.Account, error) {
	if f.findForUpdateFn != nil {
		return f.findForUpdateFn(ctx, subjectID, year)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBalanceRepository) Create(ctx context.Context, a *balance.Account) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeBalanceRepository) Update(ctx context.Context, a *balance.Account) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, a)
	}
	return nil
}

type fakeSubjectRepository struct {
	findByIDFn func(ctx context.Context, id string) (*subject.Subject, error)
	findAllFn  func(ctx context.Context) ([]subject.Subject, error)
}

func (f *fakeSubjectRepository) WithTx(tx *sql.Tx) subject.Repository { return f }

func (f *fakeSubjectRepository) Create(ctx context.Context, s *subject.Subject) error { return nil }

func (f *fakeSubjectRepository) FindByID(ctx context.Context, id string) (*subject.Subject, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return &subject.Subject{ID: uuid.MustParse(id), BaseEntitlementDays: 25}, nil
}

func (f *fakeSubjectRepository) FindAll(ctx context.Context) ([]subject.Subject, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx)
	}
	return nil, nil
}

func (f *fakeSubjectRepository) Update(ctx context.Context, s *subject.Subject) error { return nil }

type fakeHolidayRepository struct {
	archiveBeforeFn func(ctx context.Context, cutoff time.Time) (int64, error)
	deleteBeforeFn  func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (f *fakeHolidayRepository) WithTx(tx *sql.Tx) calendar.Repository { return f }

func (f *fakeHolidayRepository) Create(ctx context.Context, h *calendar.Holiday) error { return nil }

func (f *fakeHolidayRepository) FindByID(ctx context.Context, id string) (*calendar.Holiday, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeHolidayRepository) FindAll(ctx context.Context) ([]calendar.Holiday, error) {
	return nil, nil
}

func (f *fakeHolidayRepository) FindActiveDates(ctx context.Context) ([]time.Time, error) {
	return nil, nil
}

func (f *fakeHolidayRepository) Update(ctx context.Context, h *calendar.Holiday) error { return nil }

func (f *fakeHolidayRepository) SetActive(ctx context.Context, id string, active bool) error {
	return nil
}

func (f *fakeHolidayRepository) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeHolidayRepository) ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.archiveBeforeFn != nil {
		return f.archiveBeforeFn(ctx, cutoff)
	}
	return 0, nil
}

func (f *fakeHolidayRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteBeforeFn != nil {
		return f.deleteBeforeFn(ctx, cutoff)
	}
	return 0, nil
}

type balanceServiceDeps struct {
	db       *sql.DB
	sqlMock  sqlmock.Sqlmock
	repo     *fakeBalanceRepository
	subjects *fakeSubjectRepository
	holidays *fakeHolidayRepository
	service  balance.Service
}

func setupBalanceServiceTest(t *testing.T) *balanceServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	deps := &balanceServiceDeps{
		db:       db,
		sqlMock:  sqlMock,
		repo:     &fakeBalanceRepository{},
		subjects: &fakeSubjectRepository{},
		holidays: &fakeHolidayRepository{},
	}
	deps.service = balance.NewService(db, deps.repo, deps.subjects, deps.holidays, nil)
	return deps
}

func TestApplyDebit(t *testing.T) {
	ctx := context.Background()
	subjectID := uuid.New()

	t.Run("debits an existing account", func(t *testing.T) {
		repo := &fakeBalanceRepository{}
		account := &balance.Account{SubjectID: subjectID, Year: 2026, TotalDays: 25, ConsumedDays: 10}
		repo.findForUpdateFn = func(ctx context.Context, sid string, year int) (*balance.Account, error) {
			return account, nil
		}

		got, err := balance.ApplyDebit(ctx, repo, &fakeSubjectRepository{}, subjectID, 2026, 5)

		assert.NoError(t, err)
		assert.Equal(t, 15, got.ConsumedDays)
		assert.Equal(t, 10, got.Available())
	})

	t.Run("creates a missing account seeded from the base entitlement", func(t *testing.T) {
		repo := &fakeBalanceRepository{}
		var created *balance.Account
		repo.createFn = func(ctx context.Context, a *balance.Account) error {
			created = a
			return nil
		}

		got, err := balance.ApplyDebit(ctx, repo, &fakeSubjectRepository{}, subjectID, 2026, 5)

		assert.NoError(t, err)
		if assert.NotNil(t, created) {
			assert.Equal(t, 25, created.TotalDays)
			assert.Equal(t, 2026, created.Year)
		}
		assert.Equal(t, 5, got.ConsumedDays)
	})

	t.Run("negative days credit the account", func(t *testing.T) {
		repo := &fakeBalanceRepository{}
		account := &balance.Account{SubjectID: subjectID, Year: 2026, TotalDays: 25, ConsumedDays: 10}
		repo.findForUpdateFn = func(ctx context.Context, sid string, year int) (*balance.Account, error) {
			return account, nil
		}

		got, err := balance.ApplyDebit(ctx, repo, &fakeSubjectRepository{}, subjectID, 2026, -5)

		assert.NoError(t, err)
		assert.Equal(t, 5, got.ConsumedDays)
	})
}

func TestBalanceService_GetAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.GetAccount(ctx, uuid.New().String(), 2026)
		assert.ErrorIs(t, err, balanceerrors.ErrAccountNotFound)
	})

	t.Run("invalid subject id", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.GetAccount(ctx, "not-a-uuid", 2026)
		assert.ErrorIs(t, err, balanceerrors.ErrInvalidSubjectID)
	})
}

func TestBalanceService_CloseYear(t *testing.T) {
	ctx := context.Background()

	oneSubject := func(deps *balanceServiceDeps) uuid.UUID {
		id := uuid.New()
		deps.subjects.findAllFn = func(ctx context.Context) ([]subject.Subject, error) {
			return []subject.Subject{{ID: id, BaseEntitlementDays: 25}}, nil
		}
		return id
	}

	t.Run("surplus carry is capped", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		oneSubject(deps)
		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		deps.repo.findForUpdateFn = func(ctx context.Context, sid string, year int) (*balance.Account, error) {
			if year == 2026 {
				return &balance.Account{Year: 2026, TotalDays: 25, ConsumedDays: 10}, nil
			}
			return nil, gorm.ErrRecordNotFound
		}
		var created *balance.Account
		deps.repo.createFn = func(ctx context.Context, a *balance.Account) error {
			created = a
			return nil
		}

		report, err := deps.service.CloseYear(ctx, balance.CloseYearRequest{
			SourceYear:   2026,
			MaxCarryover: 10,
		})

		assert.NoError(t, err)
		if assert.Len(t, report.Subjects, 1) {
			assert.Equal(t, 15, report.Subjects[0].Leftover)
			assert.Equal(t, 10, report.Subjects[0].Carry)
			assert.Equal(t, 35, report.Subjects[0].NewTotal)
		}
		if assert.NotNil(t, created) {
			assert.Equal(t, 2027, created.Year)
			assert.Equal(t, 35, created.TotalDays)
			assert.Equal(t, 0, created.ConsumedDays)
			assert.Equal(t, 10, created.CarryoverDays)
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("debt carries uncapped", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		oneSubject(deps)
		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		deps.repo.findForUpdateFn = func(ctx context.Context, sid string, year int) (*balance.Account, error) {
			if year == 2026 {
				return &balance.Account{Year: 2026, TotalDays: 25, ConsumedDays: 30}, nil
			}
			return nil, gorm.ErrRecordNotFound
		}
		var created *balance.Account
		deps.repo.createFn = func(ctx context.Context, a *balance.Account) error {
			created = a
			return nil
		}

		report, err := deps.service.CloseYear(ctx, balance.CloseYearRequest{
			SourceYear:   2026,
			MaxCarryover: 10,
		})

		assert.NoError(t, err)
		if assert.Len(t, report.Subjects, 1) {
			assert.Equal(t, -5, report.Subjects[0].Leftover)
			assert.Equal(t, -5, report.Subjects[0].Carry)
			assert.Equal(t, 20, report.Subjects[0].NewTotal)
		}
		if assert.NotNil(t, created) {
			assert.Equal(t, 20, created.TotalDays)
			assert.Equal(t, -5, created.CarryoverDays)
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("missing source account carries nothing", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		oneSubject(deps)
		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		var created *balance.Account
		deps.repo.createFn = func(ctx context.Context, a *balance.Account) error {
			created = a
			return nil
		}

		report, err := deps.service.CloseYear(ctx, balance.CloseYearRequest{
			SourceYear:   2026,
			MaxCarryover: 10,
		})

		assert.NoError(t, err)
		if assert.Len(t, report.Subjects, 1) {
			assert.Equal(t, 0, report.Subjects[0].Leftover)
			assert.Equal(t, 25, report.Subjects[0].NewTotal)
		}
		if assert.NotNil(t, created) {
			assert.Equal(t, 25, created.TotalDays)
			assert.Equal(t, 0, created.CarryoverDays)
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("existing target account is skipped", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		oneSubject(deps)
		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		deps.repo.findForUpdateFn = func(ctx context.Context, sid string, year int) (*balance.Account, error) {
			if year == 2026 {
				return &balance.Account{Year: 2026, TotalDays: 25, ConsumedDays: 10}, nil
			}
			return &balance.Account{Year: 2027, TotalDays: 30, ConsumedDays: 2}, nil
		}
		deps.repo.createFn = func(ctx context.Context, a *balance.Account) error {
			t.Fatal("skipped subject must not get a new account")
			return nil
		}

		report, err := deps.service.CloseYear(ctx, balance.CloseYearRequest{
			SourceYear:   2026,
			MaxCarryover: 10,
		})

		assert.NoError(t, err)
		if assert.Len(t, report.Subjects, 1) {
			assert.True(t, report.Subjects[0].Skipped)
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("force overwrites the target account", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		oneSubject(deps)
		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		existing := &balance.Account{Year: 2027, TotalDays: 30, ConsumedDays: 2, CarryoverDays: 5}
		deps.repo.findForUpdateFn = func(ctx context.Context, sid string, year int) (*balance.Account, error) {
			if year == 2026 {
				return &balance.Account{Year: 2026, TotalDays: 25, ConsumedDays: 10}, nil
			}
			return existing, nil
		}
		var updated *balance.Account
		deps.repo.updateFn = func(ctx context.Context, a *balance.Account) error {
			updated = a
			return nil
		}

		report, err := deps.service.CloseYear(ctx, balance.CloseYearRequest{
			SourceYear:   2026,
			MaxCarryover: 10,
			Force:        true,
		})

		assert.NoError(t, err)
		if assert.Len(t, report.Subjects, 1) {
			assert.False(t, report.Subjects[0].Skipped)
		}
		if assert.NotNil(t, updated) {
			assert.Equal(t, 35, updated.TotalDays)
			assert.Equal(t, 0, updated.ConsumedDays)
			assert.Equal(t, 10, updated.CarryoverDays)
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("archive policy uses the retention cutoff", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		var cutoff time.Time
		deps.holidays.archiveBeforeFn = func(ctx context.Context, c time.Time) (int64, error) {
			cutoff = c
			return 3, nil
		}

		report, err := deps.service.CloseYear(ctx, balance.CloseYearRequest{
			SourceYear:      2026,
			MaxCarryover:    10,
			HolidayPolicy:   balance.HolidayPolicyArchive,
			HolidayAgeYears: 1,
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(3), report.HolidaysAffected)
		assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), cutoff)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown holiday policy rejected", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.CloseYear(ctx, balance.CloseYearRequest{
			SourceYear:    2026,
			MaxCarryover:  10,
			HolidayPolicy: "shred",
		})
		assert.ErrorIs(t, err, balanceerrors.ErrInvalidHolidayPolicy)
	})
}
