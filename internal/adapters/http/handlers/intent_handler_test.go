package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/usecases/ledger"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	domerrors "github.com/Haleralex/walletledger/internal/domain/errors"
)

type mockCreateIntentUseCase struct {
	ExecuteFn func(ctx context.Context, key *entities.APIKey, cmd dtos.CreateIntentCommand) (*ledger.Outcome, error)
}

func (m *mockCreateIntentUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.CreateIntentCommand) (*ledger.Outcome, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, key, cmd)
	}
	return &ledger.Outcome{Status: http.StatusCreated, Body: []byte(`{}`)}, nil
}

type mockPayIntentUseCase struct {
	ExecuteFn func(ctx context.Context, key *entities.APIKey, cmd dtos.PayIntentCommand) (*ledger.Outcome, error)
}

func (m *mockPayIntentUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.PayIntentCommand) (*ledger.Outcome, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, key, cmd)
	}
	return &ledger.Outcome{Status: http.StatusOK, Body: []byte(`{}`)}, nil
}

func setupIntentTestRouter(handler *IntentHandler, key *entities.APIKey) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1", withTestKey(key))
	api.POST("/intents", handler.Create)
	api.POST("/intents/:id/pay", handler.Pay)
	api.POST("/intents/:id/cancel", handler.Cancel)
	api.GET("/intents/:id", handler.Get)
	return router
}

func TestIntentHandler_Create(t *testing.T) {
	key := testAPIKey()

	t.Run("Success", func(t *testing.T) {
		mockUC := &mockCreateIntentUseCase{
			ExecuteFn: func(_ context.Context, _ *entities.APIKey, cmd dtos.CreateIntentCommand) (*ledger.Outcome, error) {
				assert.Equal(t, "25.00", cmd.Amount)
				assert.Equal(t, int64(3600), cmd.TTLSeconds)
				assert.Equal(t, "int-1", cmd.IdempotencyKey)
				return &ledger.Outcome{Status: http.StatusCreated, Body: []byte(`{"status":"PENDING"}`)}, nil
			},
		}
		router := setupIntentTestRouter(NewIntentHandler(mockUC, nil, nil, nil), key)

		w := postJSON(router, "/api/v1/intents", "int-1", map[string]interface{}{
			"amount":      "25.00",
			"currency":    "USD",
			"ttl_seconds": 3600,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("TTLAboveOneDay", func(t *testing.T) {
		router := setupIntentTestRouter(NewIntentHandler(&mockCreateIntentUseCase{}, nil, nil, nil), key)

		w := postJSON(router, "/api/v1/intents", "int-1", map[string]interface{}{
			"amount":      "25.00",
			"currency":    "USD",
			"ttl_seconds": 90000,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MissingIdempotencyKey", func(t *testing.T) {
		router := setupIntentTestRouter(NewIntentHandler(&mockCreateIntentUseCase{}, nil, nil, nil), key)

		w := postJSON(router, "/api/v1/intents", "", map[string]interface{}{
			"amount":      "25.00",
			"currency":    "USD",
			"ttl_seconds": 3600,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIntentHandler_Pay(t *testing.T) {
	key := testAPIKey()
	intentID := uuid.New().String()

	t.Run("Success", func(t *testing.T) {
		mockUC := &mockPayIntentUseCase{
			ExecuteFn: func(_ context.Context, _ *entities.APIKey, cmd dtos.PayIntentCommand) (*ledger.Outcome, error) {
				assert.Equal(t, intentID, cmd.IntentID)
				return &ledger.Outcome{Status: http.StatusOK, Body: []byte(`{"status":"PAID"}`)}, nil
			},
		}
		router := setupIntentTestRouter(NewIntentHandler(nil, mockUC, nil, nil), key)

		w := postJSON(router, "/api/v1/intents/"+intentID+"/pay", "pay-1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired", func(t *testing.T) {
		mockUC := &mockPayIntentUseCase{
			ExecuteFn: func(context.Context, *entities.APIKey, dtos.PayIntentCommand) (*ledger.Outcome, error) {
				return nil, domerrors.New(domerrors.CodeIntentExpired, "intent has expired")
			},
		}
		router := setupIntentTestRouter(NewIntentHandler(nil, mockUC, nil, nil), key)

		w := postJSON(router, "/api/v1/intents/"+intentID+"/pay", "pay-2", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "INTENT_EXPIRED", errorCodeOf(t, w.Body.Bytes()))
	})

	t.Run("InvalidIntentID", func(t *testing.T) {
		router := setupIntentTestRouter(NewIntentHandler(nil, &mockPayIntentUseCase{}, nil, nil), key)

		w := postJSON(router, "/api/v1/intents/not-a-uuid/pay", "pay-3", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
