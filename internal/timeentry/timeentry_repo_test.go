package timeentry_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/timeentry"
)

func newGormEntryRepo(t *testing.T) (timeentry.Repository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	assert.NoError(t, err)
	return timeentry.NewRepository(gdb), mock, db
}

func TestRepositoryFindConflictingInterval(t *testing.T) {
	subjectID := uuid.New()
	entryDate := date("2026-03-02")

	t.Run("half-open bounds for a closed candidate", func(t *testing.T) {
		repo, mock, db := newGormEntryRepo(t)
		defer db.Close()

		clockIn := clock("2026-03-02", "13:00")
		clockOut := clock("2026-03-02", "17:00")

		// An entry ending exactly at the candidate's clock-in must not match:
		// the lower bound uses a strict clock_out > clock_in comparison, and
		// the upper bound a strict clock_in < clock_out.
		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT * FROM "time_entries" WHERE subject_id = $1 AND entry_date = $2 AND is_current = $3 AND action_kind <> $4 AND (clock_out IS NULL OR clock_out > $5) AND clock_in < $6 ORDER BY "time_entries"."id" LIMIT $7`,
		)).
			WithArgs(
				subjectID.String(), "2026-03-02", true, timeentry.ActionDeletion,
				clockIn, clockOut, 1,
			).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		conflict, err := repo.FindConflictingInterval(context.Background(), subjectID.String(), entryDate, clockIn, &clockOut, nil)
		assert.NoError(t, err)
		assert.Nil(t, conflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open candidate blocks the rest of the day", func(t *testing.T) {
		repo, mock, db := newGormEntryRepo(t)
		defer db.Close()

		clockIn := clock("2026-03-02", "09:00")
		existing := uuid.New()

		// No clock-out: the upper-bound condition is omitted entirely, so any
		// later interval on the date collides.
		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT * FROM "time_entries" WHERE subject_id = $1 AND entry_date = $2 AND is_current = $3 AND action_kind <> $4 AND (clock_out IS NULL OR clock_out > $5) ORDER BY "time_entries"."id" LIMIT $6`,
		)).
			WithArgs(subjectID.String(), "2026-03-02", true, timeentry.ActionDeletion, clockIn, 1).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "lineage_id", "subject_id", "entry_date", "clock_in", "is_current", "action_kind"},
			).AddRow(
				existing.String(), uuid.New().String(), subjectID.String(),
				entryDate, clock("2026-03-02", "14:00"), true, timeentry.ActionCreation,
			))

		conflict, err := repo.FindConflictingInterval(context.Background(), subjectID.String(), entryDate, clockIn, nil, nil)
		assert.NoError(t, err)
		assert.NotNil(t, conflict)
		assert.Equal(t, existing, conflict.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryRetireJoinsCallerTransaction(t *testing.T) {
	repo, poolMock, poolDB := newGormEntryRepo(t)
	defer poolDB.Close()

	txDB, txMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer txDB.Close()

	id := uuid.New().String()
	txMock.ExpectBegin()
	txMock.ExpectExec(regexp.QuoteMeta(
		`UPDATE "time_entries" SET "is_current"=$1 WHERE id = $2 AND is_current = $3`,
	)).
		WithArgs(false, id, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	txMock.ExpectCommit()

	tx, err := txDB.Begin()
	assert.NoError(t, err)

	rows, err := repo.WithTx(tx).Retire(context.Background(), id)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	assert.NoError(t, tx.Commit())
	assert.NoError(t, txMock.ExpectationsWereMet())
	assert.NoError(t, poolMock.ExpectationsWereMet())
}
