package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
	"github.com/Haleralex/walletledger/internal/application/dtos"
)

type CreateWalletUseCase interface {
	Execute(ctx context.Context, cmd dtos.CreateWalletCommand) (dtos.WalletDTO, error)
}

type IssueAPIKeyUseCase interface {
	Execute(ctx context.Context, cmd dtos.IssueAPIKeyCommand) (dtos.IssuedAPIKeyDTO, error)
}

type RevokeAPIKeyUseCase interface {
	Execute(ctx context.Context, cmd dtos.RevokeAPIKeyCommand) error
}

type SetWalletStatusUseCase interface {
	Execute(ctx context.Context, cmd dtos.SetWalletStatusCommand) error
}

// AdminHandler serves the operator surface: wallet provisioning, API key
// issuance and revocation, freezing. Runs behind the admin JWT, not behind
// API keys.
type AdminHandler struct {
	createWallet    CreateWalletUseCase
	issueAPIKey     IssueAPIKeyUseCase
	revokeAPIKey    RevokeAPIKeyUseCase
	setWalletStatus SetWalletStatusUseCase
}

func NewAdminHandler(
	createWallet CreateWalletUseCase,
	issueAPIKey IssueAPIKeyUseCase,
	revokeAPIKey RevokeAPIKeyUseCase,
	setWalletStatus SetWalletStatusUseCase,
) *AdminHandler {
	SetupValidator()
	return &AdminHandler{
		createWallet:    createWallet,
		issueAPIKey:     issueAPIKey,
		revokeAPIKey:    revokeAPIKey,
		setWalletStatus: setWalletStatus,
	}
}

type uuidParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// CreateWallet handles POST /admin/v1/wallets.
func (h *AdminHandler) CreateWallet(c *gin.Context) {
	var cmd dtos.CreateWalletCommand
	if !BindJSON(c, &cmd) {
		return
	}

	wallet, err := h.createWallet.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.JSON(c, http.StatusCreated, wallet)
}

// IssueAPIKey handles POST /admin/v1/api-keys. The response carries the
// plaintext key exactly once.
func (h *AdminHandler) IssueAPIKey(c *gin.Context) {
	var cmd dtos.IssueAPIKeyCommand
	if !BindJSON(c, &cmd) {
		return
	}

	issued, err := h.issueAPIKey.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.JSON(c, http.StatusCreated, issued)
}

// RevokeAPIKey handles DELETE /admin/v1/api-keys/:id.
func (h *AdminHandler) RevokeAPIKey(c *gin.Context) {
	var param uuidParam
	if !BindURI(c, &param) {
		return
	}

	if err := h.revokeAPIKey.Execute(c.Request.Context(), dtos.RevokeAPIKeyCommand{APIKeyID: param.ID}); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetWalletStatus handles POST /admin/v1/wallets/:id/status.
func (h *AdminHandler) SetWalletStatus(c *gin.Context) {
	var param uuidParam
	if !BindURI(c, &param) {
		return
	}

	var cmd dtos.SetWalletStatusCommand
	if !BindJSON(c, &cmd) {
		return
	}
	cmd.WalletID = param.ID

	if err := h.setWalletStatus.Execute(c.Request.Context(), cmd); err != nil {
		common.RespondError(c, err)
		return
	}
	common.JSON(c, http.StatusOK, gin.H{"wallet_id": param.ID, "status": cmd.Status})
}
