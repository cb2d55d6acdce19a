package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spacepoints-ledger/internal/domain/reward"
	"github.com/spacepoints-ledger/internal/domain/shared"
	appservice "github.com/spacepoints-ledger/internal/service"
)

// MockRewardService mocks the reward service the processor settles through
type MockRewardService struct {
	mock.Mock
}

func (m *MockRewardService) Create(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, category reward.Category, trigger reward.TriggerType, referenceID, reason string, qualityScore, engagementScore decimal.Decimal, expiresAt *time.Time) (*reward.Distribution, error) {
	args := m.Called(ctx, userID, spaceID, amount, category, trigger, referenceID, reason, qualityScore, engagementScore, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Distribution), args.Error(1)
}

func (m *MockRewardService) Approve(ctx context.Context, id uuid.UUID, approverID uuid.UUID, notes string) (*reward.Distribution, error) {
	args := m.Called(ctx, id, approverID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Distribution), args.Error(1)
}

func (m *MockRewardService) Process(ctx context.Context, id uuid.UUID, settlementMarker string, processedBy uuid.UUID) (*reward.Distribution, error) {
	args := m.Called(ctx, id, settlementMarker, processedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Distribution), args.Error(1)
}

func (m *MockRewardService) EnqueueProcess(ctx context.Context, id uuid.UUID, settlementMarker string, processedBy uuid.UUID, correlationID string) error {
	args := m.Called(ctx, id, settlementMarker, processedBy, correlationID)
	return args.Error(0)
}

func (m *MockRewardService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*reward.Distribution, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Distribution), args.Error(1)
}

func (m *MockRewardService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockRewardService) GetByID(ctx context.Context, id uuid.UUID) (*reward.Distribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Distribution), args.Error(1)
}

func (m *MockRewardService) GetByUser(ctx context.Context, userID uuid.UUID, spaceID int64, page, perPage int) ([]*reward.Distribution, error) {
	args := m.Called(ctx, userID, spaceID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reward.Distribution), args.Error(1)
}

func (m *MockRewardService) Statistics(ctx context.Context, spaceID int64, from, to time.Time) (*reward.Statistics, error) {
	args := m.Called(ctx, spaceID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Statistics), args.Error(1)
}

func settledDistribution(t *testing.T, id uuid.UUID) *reward.Distribution {
	t.Helper()
	d, err := reward.NewDistribution(uuid.New(), 1, decimal.NewFromInt(50),
		reward.CategoryContentCreation, reward.TriggerManual, "post-1", "helpful answer",
		decimal.Zero, decimal.Zero, nil)
	require.NoError(t, err)
	d.ID = id
	require.NoError(t, d.MarkProcessing())
	require.NoError(t, d.MarkCompleted("settle-1", uuid.New()))
	return d
}

func TestRewardProcessingService_ProcessReward(t *testing.T) {
	logger := slog.Default()

	distributionID := uuid.New()
	processedBy := uuid.New()
	request := &shared.RewardProcessRequest{
		DistributionID:   distributionID,
		SettlementMarker: "settle-1",
		ProcessedBy:      processedBy,
		CorrelationID:    "corr1",
		Timestamp:        time.Now(),
	}

	tests := []struct {
		name          string
		setupMocks    func(m *MockRewardService)
		expectedError error
	}{
		{
			name: "successful settlement",
			setupMocks: func(m *MockRewardService) {
				m.On("Process", mock.Anything, distributionID, "settle-1", processedBy).
					Return(settledDistribution(t, distributionID), nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "distribution not found is dropped",
			setupMocks: func(m *MockRewardService) {
				m.On("Process", mock.Anything, distributionID, "settle-1", processedBy).
					Return(nil, reward.ErrDistributionNotFound{ID: distributionID}).Once()
			},
			// Dropped so the consumer commits the offset
			expectedError: nil,
		},
		{
			name: "invalid state transition is dropped",
			setupMocks: func(m *MockRewardService) {
				m.On("Process", mock.Anything, distributionID, "settle-1", processedBy).
					Return(nil, reward.ErrInvalidStateTransition{
						ID:        distributionID,
						From:      reward.StatusCancelled,
						Attempted: reward.StatusProcessing,
					}).Once()
			},
			expectedError: nil,
		},
		{
			name: "transient error propagates for retry",
			setupMocks: func(m *MockRewardService) {
				m.On("Process", mock.Anything, distributionID, "settle-1", processedBy).
					Return(nil, errors.New("db error")).Once()
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRewardService := &MockRewardService{}
			tt.setupMocks(mockRewardService)

			processingService := NewRewardProcessingService(logger, mockRewardService)

			err := processingService.ProcessReward(context.Background(), request)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockRewardService.AssertExpectations(t)
		})
	}
}

var _ appservice.RewardService = (*MockRewardService)(nil)
