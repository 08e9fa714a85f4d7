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

type CreateHoldUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, cmd dtos.CreateHoldCommand) (*ledger.Outcome, error)
}

type CaptureHoldUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, cmd dtos.CaptureHoldCommand) (*ledger.Outcome, error)
}

type ReleaseHoldUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, cmd dtos.ReleaseHoldCommand) (*ledger.Outcome, error)
}

type GetHoldUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, holdID string) (dtos.HoldDTO, error)
}

// HoldHandler serves the hold lifecycle: reserve, capture, release, inspect.
type HoldHandler struct {
	createHold  CreateHoldUseCase
	captureHold CaptureHoldUseCase
	releaseHold ReleaseHoldUseCase
	getHold     GetHoldUseCase
}

func NewHoldHandler(
	createHold CreateHoldUseCase,
	captureHold CaptureHoldUseCase,
	releaseHold ReleaseHoldUseCase,
	getHold GetHoldUseCase,
) *HoldHandler {
	SetupValidator()
	return &HoldHandler{
		createHold:  createHold,
		captureHold: captureHold,
		releaseHold: releaseHold,
		getHold:     getHold,
	}
}

type holdIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Create handles POST /api/v1/holds.
func (h *HoldHandler) Create(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var cmd dtos.CreateHoldCommand
	if !BindJSON(c, &cmd) {
		return
	}
	cmd.IdempotencyKey = idemKey

	outcome, err := h.createHold.Execute(c.Request.Context(), key, cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.WriteOutcome(c, outcome)
}

// captureBody is the optional request body of a capture. No body (or no
// amount) captures the full remaining amount.
type captureBody struct {
	Amount string `json:"amount,omitempty" binding:"omitempty,money_amount"`
}

// Capture handles POST /api/v1/holds/:id/capture.
func (h *HoldHandler) Capture(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var param holdIDParam
	if !BindURI(c, &param) {
		return
	}

	var body captureBody
	if c.Request.ContentLength > 0 {
		if !BindJSON(c, &body) {
			return
		}
	}

	cmd := dtos.CaptureHoldCommand{
		HoldID:         param.ID,
		Amount:         body.Amount,
		IdempotencyKey: idemKey,
	}
	outcome, err := h.captureHold.Execute(c.Request.Context(), key, cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.WriteOutcome(c, outcome)
}

// Release handles POST /api/v1/holds/:id/release.
func (h *HoldHandler) Release(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var param holdIDParam
	if !BindURI(c, &param) {
		return
	}

	cmd := dtos.ReleaseHoldCommand{HoldID: param.ID, IdempotencyKey: idemKey}
	outcome, err := h.releaseHold.Execute(c.Request.Context(), key, cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.WriteOutcome(c, outcome)
}

// Get handles GET /api/v1/holds/:id.
func (h *HoldHandler) Get(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	var param holdIDParam
	if !BindURI(c, &param) {
		return
	}

	hold, err := h.getHold.Execute(c.Request.Context(), key, param.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.JSON(c, http.StatusOK, hold)
}
