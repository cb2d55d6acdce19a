package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/spacepoints-ledger/internal/domain/balance"
	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/service"
)

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) CheckConsistency(ctx context.Context, userID uuid.UUID, spaceID int64) (*service.ConsistencyCheckResult, error) {
	args := m.Called(ctx, userID, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ConsistencyCheckResult), args.Error(1)
}

func (m *MockReconciliationService) Repair(ctx context.Context, userID uuid.UUID, spaceID int64) (*service.ConsistencyCheckResult, error) {
	args := m.Called(ctx, userID, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ConsistencyCheckResult), args.Error(1)
}

func (m *MockReconciliationService) ReplayLegacyTransfer(ctx context.Context, fromUserID, toUserID uuid.UUID, spaceID int64, amount decimal.Decimal, transactionType history.TransactionType, description string) error {
	args := m.Called(ctx, fromUserID, toUserID, spaceID, amount, transactionType, description)
	return args.Error(0)
}

func (m *MockReconciliationService) SystemSyncSummary(ctx context.Context) (*service.SystemSyncSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SystemSyncSummary), args.Error(1)
}

func TestReconciliationHandler_CheckConsistency(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("ReportsDrift", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		userID := uuid.New()
		result := &service.ConsistencyCheckResult{
			UserID:           userID,
			SpaceID:          2,
			PrimaryBalance:   decimal.NewFromInt(100),
			SecondaryBalance: decimal.NewFromInt(70),
			Discrepancy:      decimal.NewFromInt(30),
			IsConsistent:     false,
			CheckedAt:        time.Now(),
		}

		mockService.On("CheckConsistency", mock.Anything, userID, int64(2)).Return(result, nil)

		router := setupTestRouter()
		router.GET("/reconciliation/:user_id", handler.CheckConsistency)

		req, _ := http.NewRequest(http.MethodGet, "/reconciliation/"+userID.String()+"?space_id=2", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		responseBody := decodeData[service.ConsistencyCheckResult](t, rr.Body.Bytes())
		assert.Equal(t, userID, responseBody.UserID)
		assert.False(t, responseBody.IsConsistent)
		assert.True(t, responseBody.Discrepancy.Equal(decimal.NewFromInt(30)))
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidUserID", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/reconciliation/:user_id", handler.CheckConsistency)

		req, _ := http.NewRequest(http.MethodGet, "/reconciliation/not-a-uuid?space_id=2", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "CheckConsistency", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingSpaceID", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		userID := uuid.New()

		router := setupTestRouter()
		router.GET("/reconciliation/:user_id", handler.CheckConsistency)

		req, _ := http.NewRequest(http.MethodGet, "/reconciliation/"+userID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "CheckConsistency", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReconciliationHandler_Repair(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		userID := uuid.New()
		result := &service.ConsistencyCheckResult{
			UserID:           userID,
			SpaceID:          1,
			PrimaryBalance:   decimal.NewFromInt(100),
			SecondaryBalance: decimal.NewFromInt(100),
			Discrepancy:      decimal.Zero,
			IsConsistent:     true,
			CheckedAt:        time.Now(),
		}

		mockService.On("Repair", mock.Anything, userID, int64(1)).Return(result, nil)

		router := setupTestRouter()
		router.POST("/reconciliation/:user_id/repair", handler.Repair)

		req, _ := http.NewRequest(http.MethodPost, "/reconciliation/"+userID.String()+"/repair?space_id=1", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		responseBody := decodeData[service.ConsistencyCheckResult](t, rr.Body.Bytes())
		assert.True(t, responseBody.IsConsistent)
		mockService.AssertExpectations(t)
	})

	t.Run("PrimaryMissing", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		userID := uuid.New()

		mockService.On("Repair", mock.Anything, userID, int64(1)).
			Return(nil, balance.ErrBalanceNotFound{UserID: userID, SpaceID: 1})

		router := setupTestRouter()
		router.POST("/reconciliation/:user_id/repair", handler.Repair)

		req, _ := http.NewRequest(http.MethodPost, "/reconciliation/"+userID.String()+"/repair?space_id=1", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestReconciliationHandler_ReplayLegacyTransfer(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		fromUserID := uuid.New()
		toUserID := uuid.New()

		mockService.On("ReplayLegacyTransfer", mock.Anything, fromUserID, toUserID, int64(1),
			decimal.NewFromInt(25), history.TransactionTypeTransferOut, "legacy backfill").Return(nil)

		router := setupTestRouter()
		router.POST("/reconciliation/replay", handler.ReplayLegacyTransfer)

		reqBody := ReplayLegacyTransferRequest{
			FromUserID:      fromUserID.String(),
			ToUserID:        toUserID.String(),
			SpaceID:         1,
			Amount:          "25",
			TransactionType: "TRANSFER_OUT",
			Description:     "legacy backfill",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/reconciliation/replay", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.Bytes())
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/reconciliation/replay", handler.ReplayLegacyTransfer)

		reqBody := ReplayLegacyTransferRequest{
			FromUserID:      uuid.New().String(),
			ToUserID:        uuid.New().String(),
			SpaceID:         1,
			Amount:          "a lot",
			TransactionType: "TRANSFER_OUT",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/reconciliation/replay", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ReplayLegacyTransfer",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReconciliationHandler_SystemSyncSummary(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		summary := &service.SystemSyncSummary{
			PrimaryUserCount:      120,
			SecondaryUserCount:    118,
			InconsistentUserCount: 3,
			ScannedUserCount:      120,
			LastCheckedAt:         time.Now(),
		}

		mockService.On("SystemSyncSummary", mock.Anything).Return(summary, nil)

		router := setupTestRouter()
		router.GET("/reconciliation/summary", handler.SystemSyncSummary)

		req, _ := http.NewRequest(http.MethodGet, "/reconciliation/summary", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		responseBody := decodeData[service.SystemSyncSummary](t, rr.Body.Bytes())
		assert.Equal(t, int64(120), responseBody.ScannedUserCount)
		assert.Equal(t, int64(3), responseBody.InconsistentUserCount)
		mockService.AssertExpectations(t)
	})

	t.Run("ScanError", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("SystemSyncSummary", mock.Anything).Return(nil, assert.AnError)

		router := setupTestRouter()
		router.GET("/reconciliation/summary", handler.SystemSyncSummary)

		req, _ := http.NewRequest(http.MethodGet, "/reconciliation/summary", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

var _ service.ReconciliationService = (*MockReconciliationService)(nil)
