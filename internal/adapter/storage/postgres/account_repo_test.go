package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"account-transfer-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount() *domain.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Account{
		ID: uuid.New(),
		Owner: domain.Owner{
			ID:        uuid.New(),
			Email:     "holder@example.com",
			CreatedAt: now,
		},
		Balance:   decimal.RequireFromString("1000.00"),
		Withdrawn: decimal.RequireFromString("50.00"),
		PaidIn:    decimal.Zero,
		Version:   4,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func accountColumns() []string {
	return []string{"id", "owner_id", "email", "owner_created_at", "balance", "withdrawn", "paid_in", "version", "created_at", "updated_at"}
}

func accountRow(a *domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumns()).AddRow(
		a.ID, a.Owner.ID, a.Owner.Email, a.Owner.CreatedAt,
		a.Balance, a.Withdrawn, a.PaidIn,
		a.Version, a.CreatedAt, a.UpdatedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.ID, a.Owner.ID, a.Balance, a.Withdrawn, a.PaidIn, a.Version, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectQuery("SELECT .+ FROM accounts a JOIN owners o").
		WithArgs(a.ID).
		WillReturnRows(accountRow(a))

	result, err := repo.GetByID(context.Background(), nil, a.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.Equal(t, a.Owner.Email, result.Owner.Email)
	assert.True(t, result.Balance.Equal(a.Balance))
	assert.True(t, result.Withdrawn.Equal(a.Withdrawn))
	assert.Equal(t, int64(4), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM accounts").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(accountColumns()))

	result, err := repo.GetByID(context.Background(), nil, id)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID_InsideTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts").WithArgs(a.ID).WillReturnRows(accountRow(a))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	result, err := repo.GetByID(ctx, tx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, result.ID)

	require.NoError(t, tx.Rollback(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	a := newTestAccount()
	a.Balance = decimal.RequireFromString("800.00")
	a.Withdrawn = decimal.RequireFromString("250.00")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET .+ version = version \\+ 1 .+ WHERE id = \\$5 AND version = \\$6").
		WithArgs(a.Balance, a.Withdrawn, a.PaidIn, fixed, a.ID, int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, tx, a))
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, int64(5), a.Version)
	assert.Equal(t, fixed, a.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Update_StaleVersion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectExec("UPDATE accounts").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), a.ID, int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Update(context.Background(), nil, a)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, int64(4), a.Version, "version must not advance on conflict")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Update_SerializationFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectExec("UPDATE accounts").
		WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})

	err = repo.Update(context.Background(), nil, a)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Update_OtherErrorIsNotConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount()

	mock.ExpectExec("UPDATE accounts").
		WillReturnError(&pgconn.PgError{Code: "23514", Message: "check constraint violated"})

	err = repo.Update(context.Background(), nil, a)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnerRepo(mock)
	o := &domain.Owner{ID: uuid.New(), Email: "holder@example.com", CreatedAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO owners").
		WithArgs(o.ID, o.Email, o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerRepo_Create_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnerRepo(mock)
	o := &domain.Owner{ID: uuid.New(), Email: "holder@example.com", CreatedAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO owners").WillReturnError(errors.New("connection reset"))

	err = repo.Create(context.Background(), o)
	assert.ErrorContains(t, err, "insert owner")
	assert.NoError(t, mock.ExpectationsWereMet())
}
