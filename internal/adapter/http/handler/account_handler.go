package handler

import (
	"context"

	"account-transfer-service/internal/adapter/http/dto"
	"account-transfer-service/internal/core/ports"
	"account-transfer-service/pkg/apperror"
	"account-transfer-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountHandler exposes the account engine over HTTP.
type AccountHandler struct {
	accountSvc ports.AccountService
}

func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// OpenAccount handles POST /api/v1/accounts.
func (h *AccountHandler) OpenAccount(c *gin.Context) {
	var req dto.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	initial, err := dto.ParseAmount(req.InitialBalance)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	account, err := h.accountSvc.OpenAccount(c.Request.Context(), ports.OpenAccountRequest{
		OwnerEmail:     req.OwnerEmail,
		InitialBalance: initial,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToAccountResponse(account))
}

// GetAccount handles GET /api/v1/accounts/:id.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	account, err := h.accountSvc.GetAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToAccountResponse(account))
}

// Withdraw handles POST /api/v1/accounts/:id/withdraw.
func (h *AccountHandler) Withdraw(c *gin.Context) {
	h.moveFunds(c, "withdraw", h.accountSvc.Withdraw)
}

// Deposit handles POST /api/v1/accounts/:id/deposit.
func (h *AccountHandler) Deposit(c *gin.Context) {
	h.moveFunds(c, "deposit", h.accountSvc.Deposit)
}

func (h *AccountHandler) moveFunds(
	c *gin.Context,
	operation string,
	apply func(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error,
) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := apply(c.Request.Context(), id, amount); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.OperationResponse{
		AccountID: id.String(),
		Operation: operation,
		Amount:    amount.StringFixed(2),
		Status:    dto.StatusCompleted,
	})
}

// Transfer handles POST /api/v1/transfers.
func (h *AccountHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	from, errFrom := uuid.Parse(req.FromAccountID)
	to, errTo := uuid.Parse(req.ToAccountID)
	if errFrom != nil || errTo != nil {
		response.Error(c, apperror.Validation("account ids must be UUIDs"))
		return
	}

	if err := h.accountSvc.Transfer(c.Request.Context(), from, to, amount); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TransferResponse{
		FromAccountID: from.String(),
		ToAccountID:   to.String(),
		Amount:        amount.StringFixed(2),
		Status:        dto.StatusCompleted,
	})
}

func accountIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("account id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
