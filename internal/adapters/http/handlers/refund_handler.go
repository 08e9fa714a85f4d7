package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
	"github.com/Haleralex/walletledger/internal/adapters/http/middleware"
	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/usecases/ledger"
	"github.com/Haleralex/walletledger/internal/domain/entities"
)

type RefundUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, cmd dtos.RefundCommand) (*ledger.Outcome, error)
}

// RefundHandler serves refunds against settled captures.
type RefundHandler struct {
	refund RefundUseCase
}

func NewRefundHandler(refund RefundUseCase) *RefundHandler {
	SetupValidator()
	return &RefundHandler{refund: refund}
}

// Create handles POST /api/v1/refunds.
func (h *RefundHandler) Create(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var cmd dtos.RefundCommand
	if !BindJSON(c, &cmd) {
		return
	}
	cmd.IdempotencyKey = idemKey

	outcome, err := h.refund.Execute(c.Request.Context(), key, cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.WriteOutcome(c, outcome)
}
