package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// PayInLimit caps the lifetime total deposited into one account.
	PayInLimit = decimal.NewFromInt(4000)
	// LowFundsThreshold is the balance (and remaining pay-in headroom) under
	// which owners are warned.
	LowFundsThreshold = decimal.NewFromInt(500)
)

// Account is the balance-bearing aggregate. Balance, Withdrawn and PaidIn only
// change through Withdraw and Deposit.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Owner     Owner           `json:"owner"`
	Balance   decimal.Decimal `json:"balance"`
	Withdrawn decimal.Decimal `json:"withdrawn"` // lifetime total
	PaidIn    decimal.Decimal `json:"paid_in"`   // lifetime total, <= PayInLimit
	Version   int64           `json:"version"`   // optimistic concurrency tag
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount opens an account with an initial balance that counts neither as
// withdrawn nor as paid in.
func NewAccount(owner Owner, initialBalance decimal.Decimal) (*Account, error) {
	if initialBalance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance %s", ErrInvalidAmount, initialBalance)
	}
	now := time.Now().UTC()
	return &Account{
		ID:        uuid.New(),
		Owner:     owner,
		Balance:   initialBalance,
		Withdrawn: decimal.Zero,
		PaidIn:    decimal.Zero,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Withdraw debits amount. Nothing changes unless the whole debit is valid.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	a.Balance = a.Balance.Sub(amount)
	a.Withdrawn = a.Withdrawn.Add(amount)
	return nil
}

// Deposit credits amount. Nothing changes unless the whole credit is valid.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.PaidIn.Add(amount).GreaterThan(PayInLimit) {
		return ErrPayInLimitExceeded
	}

	a.Balance = a.Balance.Add(amount)
	a.PaidIn = a.PaidIn.Add(amount)
	return nil
}

// RemainingPayIn is how much more may ever be deposited.
func (a *Account) RemainingPayIn() decimal.Decimal {
	return PayInLimit.Sub(a.PaidIn)
}

// IsFundsLow reports whether the balance is below LowFundsThreshold.
func (a *Account) IsFundsLow() bool {
	return a.Balance.LessThan(LowFundsThreshold)
}

// IsApproachingPayInLimit reports whether fewer than LowFundsThreshold units
// of pay-in headroom remain.
func (a *Account) IsApproachingPayInLimit() bool {
	return a.RemainingPayIn().LessThan(LowFundsThreshold)
}

// Clone returns an independent copy.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
