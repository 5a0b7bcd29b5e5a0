package balance

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setupBalanceMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func balanceRows(id, professionalID int64, available, pending string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "professional_id", "available", "pending", "currency", "created_at", "updated_at"}).
		AddRow(id, professionalID, available, pending, "MXN", now, now)
}

func TestCredit(t *testing.T) {
	repo, mock, close := setupBalanceMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM balances WHERE professional_id = \\$1 FOR UPDATE").
		WithArgs(int64(77)).
		WillReturnRows(balanceRows(1, 77, "100.00", "0.00"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE balances SET available = $1, updated_at = NOW() WHERE id = $2`)).
		WithArgs(decimal.RequireFromString("950.00"), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO balance_entries").
		WithArgs(int64(1), decimal.RequireFromString("850"), "credit", "release:payment:3", decimal.RequireFromString("950.00")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Credit(context.Background(), 77, decimal.RequireFromString("850"), "MXN", "release:payment:3")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRejectsNonPositive(t *testing.T) {
	repo, _, close := setupBalanceMock(t)
	defer close()

	err := repo.Credit(context.Background(), 77, decimal.Zero, "MXN", "x")
	require.Error(t, err)
}

func TestRequestPayoutInsufficient(t *testing.T) {
	repo, mock, close := setupBalanceMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM balances WHERE professional_id = \\$1 FOR UPDATE").
		WithArgs(int64(77)).
		WillReturnRows(balanceRows(1, 77, "50.00", "0.00"))
	mock.ExpectRollback()

	_, err := repo.RequestPayout(context.Background(), 77, decimal.RequireFromString("100"), "acct-1")
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRequestPayoutMovesToPending(t *testing.T) {
	repo, mock, close := setupBalanceMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM balances WHERE professional_id = \\$1 FOR UPDATE").
		WithArgs(int64(77)).
		WillReturnRows(balanceRows(1, 77, "500.00", "0.00"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE balances SET available = $1, pending = $2, updated_at = NOW() WHERE id = $3`)).
		WithArgs(decimal.RequireFromString("300.00"), decimal.RequireFromString("200.00"), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO payouts").
		WithArgs(int64(77), decimal.RequireFromString("200"), "MXN", "acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "professional_id", "amount", "currency", "status", "destination_account", "created_at", "updated_at"}).
			AddRow(5, 77, "200.00", "MXN", "pending", "acct-1", time.Now(), time.Now()))
	mock.ExpectExec("INSERT INTO balance_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	payout, err := repo.RequestPayout(context.Background(), 77, decimal.RequireFromString("200"), "acct-1")
	require.NoError(t, err)
	require.Equal(t, PayoutPending, payout.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPayoutProcessing(t *testing.T) {
	repo, mock, close := setupBalanceMock(t)
	defer close()

	mock.ExpectExec("UPDATE payouts SET status = 'processing'").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkPayoutProcessing(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, ok)
}
