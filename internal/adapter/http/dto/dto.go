package dto

import (
	"time"

	"account-transfer-service/internal/core/domain"
)

// Amounts travel as decimal strings ("200.00") so no precision is lost in
// JSON number handling. Binding only checks that an amount parses and fits
// the account columns; the sign is an account rule (ACC_001).

// OpenAccountRequest is the request body for POST /api/v1/accounts.
type OpenAccountRequest struct {
	OwnerEmail     string `json:"owner_email" binding:"omitempty,email,max=254"`
	InitialBalance string `json:"initial_balance" binding:"required,money"`
}

// AmountRequest is the request body for withdraw and deposit.
type AmountRequest struct {
	Amount string `json:"amount" binding:"required,money"`
}

// TransferRequest is the request body for POST /api/v1/transfers.
type TransferRequest struct {
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required,money"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	OwnerEmail     string `json:"owner_email,omitempty"`
	Balance        string `json:"balance"`
	Withdrawn      string `json:"withdrawn"`
	PaidIn         string `json:"paid_in"`
	RemainingPayIn string `json:"remaining_pay_in"`
	Version        int64  `json:"version"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// OperationResponse acknowledges a committed withdraw or deposit.
type OperationResponse struct {
	AccountID string `json:"account_id"`
	Operation string `json:"operation"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
}

// TransferResponse acknowledges a committed transfer.
type TransferResponse struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
}

// StatusCompleted is reported for every committed money movement.
const StatusCompleted = "COMPLETED"

// ToAccountResponse renders an account with two-decimal amounts.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:             a.ID.String(),
		OwnerID:        a.Owner.ID.String(),
		OwnerEmail:     a.Owner.Email,
		Balance:        a.Balance.StringFixed(2),
		Withdrawn:      a.Withdrawn.StringFixed(2),
		PaidIn:         a.PaidIn.StringFixed(2),
		RemainingPayIn: a.RemainingPayIn().StringFixed(2),
		Version:        a.Version,
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
