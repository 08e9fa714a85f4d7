package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
	"github.com/Haleralex/walletledger/internal/adapters/http/middleware"
	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/usecases/ledger"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
)

type TransferUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, cmd dtos.TransferCommand) (*ledger.Outcome, error)
}

type DepositUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, cmd dtos.DepositCommand) (*ledger.Outcome, error)
}

// TransferHandler serves the two direct money movements: peer transfers and
// system deposits.
type TransferHandler struct {
	transfer TransferUseCase
	deposit  DepositUseCase
}

func NewTransferHandler(transfer TransferUseCase, deposit DepositUseCase) *TransferHandler {
	SetupValidator()
	return &TransferHandler{transfer: transfer, deposit: deposit}
}

// idempotencyKey extracts the mandatory Idempotency-Key header of a write
// operation; on a missing key the 400 has already been written.
func idempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetHeader(common.IdempotencyKeyHeader)
	if key == "" {
		common.RespondError(c, errors.New(errors.CodeValidation,
			"Idempotency-Key header is required for write operations"))
		return "", false
	}
	if len(key) > 255 {
		common.RespondError(c, errors.New(errors.CodeValidation,
			"Idempotency-Key must be at most 255 characters"))
		return "", false
	}
	return key, true
}

// Transfer handles POST /api/v1/transfers.
func (h *TransferHandler) Transfer(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var cmd dtos.TransferCommand
	if !BindJSON(c, &cmd) {
		return
	}
	cmd.IdempotencyKey = idemKey

	outcome, err := h.transfer.Execute(c.Request.Context(), key, cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.WriteOutcome(c, outcome)
}

// Deposit handles POST /api/v1/deposits. Gated on the admin scope inside the
// use case: deposits mint from the system account.
func (h *TransferHandler) Deposit(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var cmd dtos.DepositCommand
	if !BindJSON(c, &cmd) {
		return
	}
	cmd.IdempotencyKey = idemKey

	outcome, err := h.deposit.Execute(c.Request.Context(), key, cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.WriteOutcome(c, outcome)
}
