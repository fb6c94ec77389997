package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-transfer-service/internal/core/domain"
	"account-transfer-service/internal/core/ports"
	"account-transfer-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountServiceImpl implements ports.AccountService on top of an
// optimistic-concurrency account store.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	ownerRepo   ports.OwnerRepository
	transactor  ports.DBTransactor
	notifier    ports.Notifier
	retry       RetryPolicy
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl. A nil notifier disables
// notifications.
func NewAccountService(
	accountRepo ports.AccountRepository,
	ownerRepo ports.OwnerRepository,
	transactor ports.DBTransactor,
	notifier ports.Notifier,
	retry RetryPolicy,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		ownerRepo:   ownerRepo,
		transactor:  transactor,
		notifier:    notifier,
		retry:       retry,
		log:         log,
	}
}

// OpenAccount registers the owner and creates an account holding the initial balance.
func (s *AccountServiceImpl) OpenAccount(ctx context.Context, req ports.OpenAccountRequest) (*domain.Account, error) {
	owner := domain.Owner{
		ID:        uuid.New(),
		Email:     strings.TrimSpace(req.OwnerEmail),
		CreatedAt: time.Now().UTC(),
	}

	account, err := domain.NewAccount(owner, req.InitialBalance)
	if err != nil {
		return nil, accountRuleError(err)
	}

	if err := s.ownerRepo.Create(ctx, &owner); err != nil {
		return nil, apperror.ErrStoreFailure(fmt.Errorf("create owner: %w", err))
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, apperror.ErrStoreFailure(fmt.Errorf("create account: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("owner_id", owner.ID.String()).
		Str("initial_balance", account.Balance.String()).
		Msg("account opened")

	return account, nil
}

// GetAccount returns the committed state of an account.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.loadAccount(ctx, nil, id)
}

// Withdraw debits amount from one account.
func (s *AccountServiceImpl) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	return s.mutateAccount(ctx, "withdraw", accountID, amount,
		(*domain.Account).Withdraw,
		domain.FundsLowNotice,
	)
}

// Deposit credits amount to one account.
func (s *AccountServiceImpl) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	return s.mutateAccount(ctx, "deposit", accountID, amount,
		(*domain.Account).Deposit,
		domain.PayInLimitNotice,
	)
}

// mutateAccount runs the single-account algorithm: load, mutate, write,
// re-read and compare, commit; retried on conflict. Notifications are
// decided from the committed account and sent once the loop is over.
func (s *AccountServiceImpl) mutateAccount(
	ctx context.Context,
	op string,
	accountID uuid.UUID,
	amount decimal.Decimal,
	mutate func(*domain.Account, decimal.Decimal) error,
	notice func(*domain.Account) (domain.Notification, bool),
) error {
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount(domain.ErrInvalidAmount)
	}

	log := s.log.With().Str("account_id", accountID.String()).Str("amount", amount.String()).Logger()

	var (
		committed *domain.Account
		notices   []domain.Notification
	)
	err := s.retry.run(ctx, log, op, func(int) error {
		committed = nil
		err := s.withinTx(ctx, func(tx pgx.Tx) error {
			account, err := s.loadAccount(ctx, tx, accountID)
			if err != nil {
				return err
			}
			if err := mutate(account, amount); err != nil {
				return accountRuleError(err)
			}

			expected := account.Balance
			if err := s.persist(ctx, tx, account); err != nil {
				return err
			}
			if err := s.verifyBalance(ctx, tx, accountID, expected); err != nil {
				return err
			}

			committed = account
			return nil
		})
		return err
	})
	if err != nil {
		return err
	}

	if n, ok := notice(committed); ok {
		notices = append(notices, n)
	}

	log.Info().Str("balance", committed.Balance.String()).Msg(op + " committed")

	s.dispatch(ctx, notices)
	return nil
}

// Transfer moves amount from one account to another. Both sides are written
// in one atomic scope and retried together.
func (s *AccountServiceImpl) Transfer(ctx context.Context, fromAccountID, toAccountID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount(domain.ErrInvalidAmount)
	}
	if fromAccountID == toAccountID {
		return apperror.ErrSameAccountTransfer(domain.ErrSameAccountTransfer)
	}

	log := s.log.With().
		Str("from_account_id", fromAccountID.String()).
		Str("to_account_id", toAccountID.String()).
		Str("amount", amount.String()).
		Logger()

	var source, destination *domain.Account
	err := s.retry.run(ctx, log, "transfer", func(int) error {
		source, destination = nil, nil
		return s.withinTx(ctx, func(tx pgx.Tx) error {
			src, err := s.loadAccount(ctx, tx, fromAccountID)
			if err != nil {
				return err
			}
			dst, err := s.loadAccount(ctx, tx, toAccountID)
			if err != nil {
				return err
			}

			// Checked before either aggregate is touched.
			if src.Balance.LessThan(amount) {
				return apperror.ErrInsufficientFunds(domain.ErrInsufficientFunds)
			}

			expectedFrom := src.Balance.Sub(amount)
			expectedTo := dst.Balance.Add(amount)

			if err := src.Withdraw(amount); err != nil {
				return accountRuleError(err)
			}
			if err := dst.Deposit(amount); err != nil {
				return accountRuleError(err)
			}

			if err := s.persist(ctx, tx, src); err != nil {
				return err
			}
			if err := s.persist(ctx, tx, dst); err != nil {
				return err
			}

			if err := s.verifyBalance(ctx, tx, fromAccountID, expectedFrom); err != nil {
				return err
			}
			if err := s.verifyBalance(ctx, tx, toAccountID, expectedTo); err != nil {
				return err
			}

			source, destination = src, dst
			return nil
		})
	})
	if err != nil {
		return err
	}

	var notices []domain.Notification
	if n, ok := domain.FundsLowNotice(source); ok {
		notices = append(notices, n)
	}
	if n, ok := domain.PayInLimitNotice(destination); ok {
		notices = append(notices, n)
	}

	log.Info().
		Str("from_balance", source.Balance.String()).
		Str("to_balance", destination.Balance.String()).
		Msg("transfer committed")

	s.dispatch(ctx, notices)
	return nil
}

// withinTx runs fn inside one store transaction and commits only if fn succeeds.
func (s *AccountServiceImpl) withinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return storeError("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storeError("commit tx", err)
	}
	return nil
}

func (s *AccountServiceImpl) loadAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, storeError("load account", err)
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound(fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id))
	}
	return account, nil
}

func (s *AccountServiceImpl) persist(ctx context.Context, tx pgx.Tx, account *domain.Account) error {
	if err := s.accountRepo.Update(ctx, tx, account); err != nil {
		return storeError("update account "+account.ID.String(), err)
	}
	return nil
}

// verifyBalance re-reads the account and raises a conflict if the balance is
// not what this attempt wrote.
func (s *AccountServiceImpl) verifyBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected decimal.Decimal) error {
	current, err := s.accountRepo.GetByID(ctx, tx, id)
	if err != nil {
		return storeError("re-read account", err)
	}
	if current == nil {
		return fmt.Errorf("%w: account %s disappeared after update", domain.ErrConcurrencyConflict, id)
	}
	if !current.Balance.Equal(expected) {
		return fmt.Errorf("%w: account %s balance is %s after update, expected %s",
			domain.ErrConcurrencyConflict, id, current.Balance, expected)
	}
	return nil
}

// dispatch sends post-commit notifications. Failures are logged and dropped.
func (s *AccountServiceImpl) dispatch(ctx context.Context, notices []domain.Notification) {
	if s.notifier == nil || len(notices) == 0 {
		return
	}

	// The operation has already committed; a caller hanging up must not
	// cancel the advisory.
	ctx = context.WithoutCancel(ctx)
	for _, n := range notices {
		if err := s.send(ctx, n); err != nil {
			s.log.Warn().
				Err(apperror.ErrNotificationDelivery(err)).
				Str("kind", string(n.Kind)).
				Str("account_id", n.AccountID.String()).
				Msg("notification dispatch failed")
			continue
		}
		s.log.Debug().
			Str("kind", string(n.Kind)).
			Str("account_id", n.AccountID.String()).
			Msg("notification dispatched")
	}
}

func (s *AccountServiceImpl) send(ctx context.Context, n domain.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()

	switch n.Kind {
	case domain.NotificationFundsLow:
		return s.notifier.NotifyFundsLow(ctx, n.Address)
	case domain.NotificationApproachingPayInLimit:
		return s.notifier.NotifyApproachingPayInLimit(ctx, n.Address)
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
}

// storeError keeps concurrency conflicts retryable and turns everything else
// into a terminal SYS_001.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperror.ErrStoreFailure(fmt.Errorf("%s: %w", op, err))
}

// accountRuleError maps aggregate rule violations onto their AppError.
func accountRuleError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds(err)
	case errors.Is(err, domain.ErrPayInLimitExceeded):
		return apperror.ErrPayInLimitExceeded(err)
	case errors.Is(err, domain.ErrInvalidAmount):
		return apperror.ErrInvalidAmount(err)
	default:
		return apperror.InternalError(err)
	}
}
