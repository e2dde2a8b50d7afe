package balance_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pixelotes/Tempus/internal/balance"
)

// FindForUpdate must run on the caller's transaction: the FOR UPDATE row
// lock only serializes concurrent settlements while that transaction is
// open, so a query escaping to the pool would release it immediately.
func TestRepositoryFindForUpdateLocksInsideTransaction(t *testing.T) {
	poolDB, poolMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer poolDB.Close()
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: poolDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	assert.NoError(t, err)
	repo := balance.NewRepository(gdb)

	txDB, txMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer txDB.Close()

	subjectID := uuid.New()
	accountID := uuid.New()

	txMock.ExpectBegin()
	txMock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "balance_accounts" WHERE subject_id = $1 AND year = $2 ORDER BY "balance_accounts"."id" LIMIT $3 FOR UPDATE`,
	)).
		WithArgs(subjectID.String(), 2026, 1).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "subject_id", "year", "total_days", "consumed_days", "carryover_days"},
		).AddRow(accountID.String(), subjectID.String(), 2026, 25, 10, 0))
	txMock.ExpectCommit()

	tx, err := txDB.Begin()
	assert.NoError(t, err)

	account, err := repo.WithTx(tx).FindForUpdate(context.Background(), subjectID.String(), 2026)
	assert.NoError(t, err)
	assert.Equal(t, accountID, account.ID)
	assert.Equal(t, 25, account.TotalDays)
	assert.Equal(t, 10, account.ConsumedDays)
	assert.Equal(t, 15, account.Available())

	assert.NoError(t, tx.Commit())
	assert.NoError(t, txMock.ExpectationsWereMet())
	assert.NoError(t, poolMock.ExpectationsWereMet())
}
