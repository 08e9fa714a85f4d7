package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
	"github.com/Haleralex/walletledger/internal/adapters/http/middleware"
	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/usecases/ledger"
	"github.com/Haleralex/walletledger/internal/domain/entities"
)

type CreateIntentUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, cmd dtos.CreateIntentCommand) (*ledger.Outcome, error)
}

type PayIntentUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, cmd dtos.PayIntentCommand) (*ledger.Outcome, error)
}

type CancelIntentUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, cmd dtos.PayIntentCommand) (*ledger.Outcome, error)
}

type GetIntentUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, intentID string) (dtos.IntentDTO, error)
}

// IntentHandler serves payment intents: a payee opens one, any payer settles
// it once before it expires.
type IntentHandler struct {
	createIntent CreateIntentUseCase
	payIntent    PayIntentUseCase
	cancelIntent CancelIntentUseCase
	getIntent    GetIntentUseCase
}

func NewIntentHandler(
	createIntent CreateIntentUseCase,
	payIntent PayIntentUseCase,
	cancelIntent CancelIntentUseCase,
	getIntent GetIntentUseCase,
) *IntentHandler {
	SetupValidator()
	return &IntentHandler{
		createIntent: createIntent,
		payIntent:    payIntent,
		cancelIntent: cancelIntent,
		getIntent:    getIntent,
	}
}

type intentIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Create handles POST /api/v1/intents.
func (h *IntentHandler) Create(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var cmd dtos.CreateIntentCommand
	if !BindJSON(c, &cmd) {
		return
	}
	cmd.IdempotencyKey = idemKey

	outcome, err := h.createIntent.Execute(c.Request.Context(), key, cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.WriteOutcome(c, outcome)
}

// Pay handles POST /api/v1/intents/:id/pay.
func (h *IntentHandler) Pay(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var param intentIDParam
	if !BindURI(c, &param) {
		return
	}

	cmd := dtos.PayIntentCommand{IntentID: param.ID, IdempotencyKey: idemKey}
	outcome, err := h.payIntent.Execute(c.Request.Context(), key, cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.WriteOutcome(c, outcome)
}

// Cancel handles POST /api/v1/intents/:id/cancel. Only the payee may cancel,
// and only while the intent is still pending.
func (h *IntentHandler) Cancel(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var param intentIDParam
	if !BindURI(c, &param) {
		return
	}

	cmd := dtos.PayIntentCommand{IntentID: param.ID, IdempotencyKey: idemKey}
	outcome, err := h.cancelIntent.Execute(c.Request.Context(), key, cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.WriteOutcome(c, outcome)
}

// Get handles GET /api/v1/intents/:id.
func (h *IntentHandler) Get(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	var param intentIDParam
	if !BindURI(c, &param) {
		return
	}

	intent, err := h.getIntent.Execute(c.Request.Context(), key, param.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.JSON(c, http.StatusOK, intent)
}
