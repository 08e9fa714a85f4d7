package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	domerrors "github.com/Haleralex/walletledger/internal/domain/errors"
)

type mockCreateWalletUseCase struct {
	ExecuteFn func(ctx context.Context, cmd dtos.CreateWalletCommand) (dtos.WalletDTO, error)
}

func (m *mockCreateWalletUseCase) Execute(ctx context.Context, cmd dtos.CreateWalletCommand) (dtos.WalletDTO, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, cmd)
	}
	return dtos.WalletDTO{}, nil
}

type mockIssueAPIKeyUseCase struct {
	ExecuteFn func(ctx context.Context, cmd dtos.IssueAPIKeyCommand) (dtos.IssuedAPIKeyDTO, error)
}

func (m *mockIssueAPIKeyUseCase) Execute(ctx context.Context, cmd dtos.IssueAPIKeyCommand) (dtos.IssuedAPIKeyDTO, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, cmd)
	}
	return dtos.IssuedAPIKeyDTO{}, nil
}

type mockRevokeAPIKeyUseCase struct {
	ExecuteFn func(ctx context.Context, cmd dtos.RevokeAPIKeyCommand) error
}

func (m *mockRevokeAPIKeyUseCase) Execute(ctx context.Context, cmd dtos.RevokeAPIKeyCommand) error {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, cmd)
	}
	return nil
}

type mockSetWalletStatusUseCase struct {
	ExecuteFn func(ctx context.Context, cmd dtos.SetWalletStatusCommand) error
}

func (m *mockSetWalletStatusUseCase) Execute(ctx context.Context, cmd dtos.SetWalletStatusCommand) error {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, cmd)
	}
	return nil
}

func setupAdminTestRouter(handler *AdminHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	adminAPI := router.Group("/admin/v1")
	adminAPI.POST("/wallets", handler.CreateWallet)
	adminAPI.POST("/wallets/:id/status", handler.SetWalletStatus)
	adminAPI.POST("/api-keys", handler.IssueAPIKey)
	adminAPI.DELETE("/api-keys/:id", handler.RevokeAPIKey)
	return router
}

func TestAdminHandler_CreateWallet(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		walletID := uuid.New().String()
		mockUC := &mockCreateWalletUseCase{
			ExecuteFn: func(_ context.Context, cmd dtos.CreateWalletCommand) (dtos.WalletDTO, error) {
				assert.Equal(t, "Alice", cmd.DisplayName)
				assert.Equal(t, "@alice", cmd.Handle)
				return dtos.WalletDTO{
					ID:          walletID,
					DisplayName: "Alice",
					Status:      "ACTIVE",
					Currency:    "USD",
					CreatedAt:   time.Now(),
				}, nil
			},
		}
		router := setupAdminTestRouter(NewAdminHandler(mockUC, nil, nil, nil))

		w := postJSON(router, "/admin/v1/wallets", "", map[string]string{
			"display_name": "Alice",
			"handle":       "@alice",
			"currency":     "USD",
		})

		assert.Equal(t, http.StatusCreated, w.Code)

		var wallet dtos.WalletDTO
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &wallet))
		assert.Equal(t, walletID, wallet.ID)
	})

	t.Run("MissingDisplayName", func(t *testing.T) {
		router := setupAdminTestRouter(NewAdminHandler(&mockCreateWalletUseCase{}, nil, nil, nil))

		w := postJSON(router, "/admin/v1/wallets", "", map[string]string{
			"currency": "USD",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DuplicateHandle", func(t *testing.T) {
		mockUC := &mockCreateWalletUseCase{
			ExecuteFn: func(context.Context, dtos.CreateWalletCommand) (dtos.WalletDTO, error) {
				return dtos.WalletDTO{}, domerrors.New(domerrors.CodeValidation, "handle already taken")
			},
		}
		router := setupAdminTestRouter(NewAdminHandler(mockUC, nil, nil, nil))

		w := postJSON(router, "/admin/v1/wallets", "", map[string]string{
			"display_name": "Alice",
			"handle":       "@alice",
			"currency":     "USD",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminHandler_IssueAPIKey(t *testing.T) {
	t.Run("PlaintextKeyReturnedOnce", func(t *testing.T) {
		walletID := uuid.New().String()
		mockUC := &mockIssueAPIKeyUseCase{
			ExecuteFn: func(_ context.Context, cmd dtos.IssueAPIKeyCommand) (dtos.IssuedAPIKeyDTO, error) {
				assert.Equal(t, walletID, cmd.WalletID)
				assert.Equal(t, []string{"read", "transfer"}, cmd.Scopes)
				return dtos.IssuedAPIKeyDTO{
					ID:       uuid.New().String(),
					WalletID: walletID,
					Scopes:   cmd.Scopes,
					PlainKey: "wl_abc.secret",
				}, nil
			},
		}
		router := setupAdminTestRouter(NewAdminHandler(nil, mockUC, nil, nil))

		w := postJSON(router, "/admin/v1/api-keys", "", map[string]interface{}{
			"wallet_id": walletID,
			"scopes":    []string{"read", "transfer"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)

		var issued dtos.IssuedAPIKeyDTO
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
		assert.Equal(t, "wl_abc.secret", issued.PlainKey)
	})

	t.Run("EmptyScopes", func(t *testing.T) {
		router := setupAdminTestRouter(NewAdminHandler(nil, &mockIssueAPIKeyUseCase{}, nil, nil))

		w := postJSON(router, "/admin/v1/api-keys", "", map[string]interface{}{
			"wallet_id": uuid.New().String(),
			"scopes":    []string{},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminHandler_RevokeAPIKey(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		keyID := uuid.New().String()
		mockUC := &mockRevokeAPIKeyUseCase{
			ExecuteFn: func(_ context.Context, cmd dtos.RevokeAPIKeyCommand) error {
				assert.Equal(t, keyID, cmd.APIKeyID)
				return nil
			},
		}
		router := setupAdminTestRouter(NewAdminHandler(nil, nil, mockUC, nil))

		req := httptest.NewRequest(http.MethodDelete, "/admin/v1/api-keys/"+keyID, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockUC := &mockRevokeAPIKeyUseCase{
			ExecuteFn: func(context.Context, dtos.RevokeAPIKeyCommand) error {
				return domerrors.New(domerrors.CodeNotFound, "api key not found")
			},
		}
		router := setupAdminTestRouter(NewAdminHandler(nil, nil, mockUC, nil))

		req := httptest.NewRequest(http.MethodDelete, "/admin/v1/api-keys/"+uuid.New().String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminHandler_SetWalletStatus(t *testing.T) {
	t.Run("Freeze", func(t *testing.T) {
		walletID := uuid.New().String()
		mockUC := &mockSetWalletStatusUseCase{
			ExecuteFn: func(_ context.Context, cmd dtos.SetWalletStatusCommand) error {
				assert.Equal(t, walletID, cmd.WalletID)
				assert.Equal(t, "FROZEN", cmd.Status)
				return nil
			},
		}
		router := setupAdminTestRouter(NewAdminHandler(nil, nil, nil, mockUC))

		w := postJSON(router, "/admin/v1/wallets/"+walletID+"/status", "",
			map[string]string{"status": "FROZEN"})

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		router := setupAdminTestRouter(NewAdminHandler(nil, nil, nil, &mockSetWalletStatusUseCase{}))

		w := postJSON(router, "/admin/v1/wallets/"+uuid.New().String()+"/status", "",
			map[string]string{"status": "CLOSED"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
