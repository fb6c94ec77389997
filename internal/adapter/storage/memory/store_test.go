package memory

import (
	"context"
	"testing"

	"account-transfer-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *Store
	accounts *AccountRepo
	owners   *OwnerRepo
	tx       *Transactor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := NewStore()
	return &fixture{
		store:    s,
		accounts: NewAccountRepo(s),
		owners:   NewOwnerRepo(s),
		tx:       NewTransactor(s),
	}
}

func (f *fixture) seed(t *testing.T, balance string) *domain.Account {
	t.Helper()
	owner := domain.Owner{ID: uuid.New(), Email: "holder@example.com"}
	require.NoError(t, f.owners.Create(context.Background(), &owner))

	a, err := domain.NewAccount(owner, decimal.RequireFromString(balance))
	require.NoError(t, err)
	require.NoError(t, f.accounts.Create(context.Background(), a))
	return a
}

func (f *fixture) begin(t *testing.T) pgx.Tx {
	t.Helper()
	tx, err := f.tx.Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func TestAccountRepo_CreateRequiresOwner(t *testing.T) {
	f := newFixture(t)
	a, err := domain.NewAccount(domain.Owner{ID: uuid.New()}, decimal.Zero)
	require.NoError(t, err)

	assert.Error(t, f.accounts.Create(context.Background(), a))
}

func TestAccountRepo_GetByID_Missing(t *testing.T) {
	f := newFixture(t)

	a, err := f.accounts.GetByID(context.Background(), nil, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, a)
}

func TestAccountRepo_ReturnsCopies(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t, "100")
	ctx := context.Background()

	a, err := f.accounts.GetByID(ctx, nil, seeded.ID)
	require.NoError(t, err)
	a.Balance = decimal.RequireFromString("1")

	again, err := f.accounts.GetByID(ctx, nil, seeded.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.RequireFromString("100")))
}

func TestTx_StagedWritesVisibleOnlyInsideTx(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t, "1000")
	ctx := context.Background()

	tx := f.begin(t)
	a, err := f.accounts.GetByID(ctx, tx, seeded.ID)
	require.NoError(t, err)
	require.NoError(t, a.Withdraw(decimal.RequireFromString("200")))
	require.NoError(t, f.accounts.Update(ctx, tx, a))
	assert.Equal(t, int64(2), a.Version)

	inside, err := f.accounts.GetByID(ctx, tx, seeded.ID)
	require.NoError(t, err)
	assert.True(t, inside.Balance.Equal(decimal.RequireFromString("800")))

	outside, err := f.accounts.GetByID(ctx, nil, seeded.ID)
	require.NoError(t, err)
	assert.True(t, outside.Balance.Equal(decimal.RequireFromString("1000")))

	require.NoError(t, tx.Commit(ctx))
	committed, err := f.accounts.GetByID(ctx, nil, seeded.ID)
	require.NoError(t, err)
	assert.True(t, committed.Balance.Equal(decimal.RequireFromString("800")))
	assert.Equal(t, int64(2), committed.Version)
}

func TestTx_RollbackDiscards(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t, "1000")
	ctx := context.Background()

	tx := f.begin(t)
	a, _ := f.accounts.GetByID(ctx, tx, seeded.ID)
	require.NoError(t, a.Withdraw(decimal.RequireFromString("1")))
	require.NoError(t, f.accounts.Update(ctx, tx, a))
	require.NoError(t, tx.Rollback(ctx))

	assert.ErrorIs(t, tx.Commit(ctx), pgx.ErrTxClosed)
	committed, _ := f.accounts.GetByID(ctx, nil, seeded.ID)
	assert.True(t, committed.Balance.Equal(decimal.RequireFromString("1000")))
}

func TestTx_LostRaceFailsAtCommit(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t, "1000")
	ctx := context.Background()

	first, second := f.begin(t), f.begin(t)

	a1, _ := f.accounts.GetByID(ctx, first, seeded.ID)
	a2, _ := f.accounts.GetByID(ctx, second, seeded.ID)

	require.NoError(t, a1.Withdraw(decimal.RequireFromString("100")))
	require.NoError(t, a2.Withdraw(decimal.RequireFromString("300")))

	require.NoError(t, f.accounts.Update(ctx, first, a1))
	require.NoError(t, f.accounts.Update(ctx, second, a2))

	require.NoError(t, first.Commit(ctx))
	assert.ErrorIs(t, second.Commit(ctx), domain.ErrConcurrencyConflict)

	committed, _ := f.accounts.GetByID(ctx, nil, seeded.ID)
	assert.True(t, committed.Balance.Equal(decimal.RequireFromString("900")))
}

func TestTx_StaleReadFailsAtUpdate(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t, "1000")
	ctx := context.Background()

	tx := f.begin(t)
	stale, _ := f.accounts.GetByID(ctx, tx, seeded.ID)

	fresh, _ := f.accounts.GetByID(ctx, nil, seeded.ID)
	require.NoError(t, fresh.Deposit(decimal.RequireFromString("5")))
	require.NoError(t, f.accounts.Update(ctx, nil, fresh))

	require.NoError(t, stale.Withdraw(decimal.RequireFromString("1")))
	assert.ErrorIs(t, f.accounts.Update(ctx, tx, stale), domain.ErrConcurrencyConflict)
}

func TestTx_CommitIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	src, dst := f.seed(t, "1000"), f.seed(t, "100")
	ctx := context.Background()

	tx := f.begin(t)
	s, _ := f.accounts.GetByID(ctx, tx, src.ID)
	d, _ := f.accounts.GetByID(ctx, tx, dst.ID)
	amount := decimal.RequireFromString("200")
	require.NoError(t, s.Withdraw(amount))
	require.NoError(t, d.Deposit(amount))
	require.NoError(t, f.accounts.Update(ctx, tx, s))
	require.NoError(t, f.accounts.Update(ctx, tx, d))

	// A concurrent writer moves the destination before commit.
	other, _ := f.accounts.GetByID(ctx, nil, dst.ID)
	require.NoError(t, other.Deposit(decimal.RequireFromString("1")))
	require.NoError(t, f.accounts.Update(ctx, nil, other))

	assert.ErrorIs(t, tx.Commit(ctx), domain.ErrConcurrencyConflict)

	committedSrc, _ := f.accounts.GetByID(ctx, nil, src.ID)
	assert.True(t, committedSrc.Balance.Equal(decimal.RequireFromString("1000")), "source must not be debited")
}

func TestTransactor_BeginCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.tx.Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOwnerRepo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := &domain.Owner{ID: uuid.New(), Email: "holder@example.com"}

	require.NoError(t, f.owners.Create(ctx, o))
	assert.Error(t, f.owners.Create(ctx, o), "duplicate ids are rejected")

	assert.Equal(t, o.Email, f.store.owners[o.ID].Email)
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthCheck()
	assert.Equal(t, "memory", h.Name())
	assert.NoError(t, h.Ping(context.Background()))
}
