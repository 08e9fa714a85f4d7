package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
	"github.com/Haleralex/walletledger/internal/adapters/http/middleware"
	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/domain/entities"
)

// Use case interfaces. Handlers depend on these, not on the concrete types,
// so handler tests run against fakes.

type GetBalanceUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, currencyCode string) (dtos.BalanceDTO, error)
}

type ListTransactionsUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, currencyCode string, query dtos.ListTransactionsQuery) (dtos.TransactionListDTO, error)
}

type ResolveRecipientUseCase interface {
	Execute(ctx context.Context, key *entities.APIKey, ref string) (dtos.ResolvedRecipientDTO, error)
}

// WalletHandler serves the read side of the caller's wallet: balance,
// transaction history and recipient resolution.
type WalletHandler struct {
	getBalance       GetBalanceUseCase
	listTransactions ListTransactionsUseCase
	resolveRecipient ResolveRecipientUseCase
}

func NewWalletHandler(
	getBalance GetBalanceUseCase,
	listTransactions ListTransactionsUseCase,
	resolveRecipient ResolveRecipientUseCase,
) *WalletHandler {
	SetupValidator()
	return &WalletHandler{
		getBalance:       getBalance,
		listTransactions: listTransactions,
		resolveRecipient: resolveRecipient,
	}
}

// currencyParam selects the account when a wallet holds several currencies.
type currencyParam struct {
	Currency string `form:"currency" binding:"required,currency_code"`
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	var params currencyParam
	if !BindQuery(c, &params) {
		return
	}

	balance, err := h.getBalance.Execute(c.Request.Context(), key, params.Currency)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.JSON(c, http.StatusOK, balance)
}

type listTransactionsParams struct {
	currencyParam
	dtos.ListTransactionsQuery
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	var params listTransactionsParams
	if !BindQuery(c, &params) {
		return
	}

	page, err := h.listTransactions.Execute(c.Request.Context(), key, params.Currency, params.ListTransactionsQuery)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.JSON(c, http.StatusOK, page)
}

// ResolveRecipient handles GET /api/v1/recipients/resolve. Lets a client
// check a recipient reference before committing money to it.
func (h *WalletHandler) ResolveRecipient(c *gin.Context) {
	key := middleware.MustAuthenticatedKey(c)

	var query dtos.ResolveRecipientQuery
	if !BindQuery(c, &query) {
		return
	}

	resolved, err := h.resolveRecipient.Execute(c.Request.Context(), key, query.Recipient)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.JSON(c, http.StatusOK, resolved)
}
