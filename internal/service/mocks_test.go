package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/spacepoints-ledger/internal/domain/balance"
	"github.com/spacepoints-ledger/internal/domain/burn"
	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/domain/legacy"
	"github.com/spacepoints-ledger/internal/domain/outbox"
	"github.com/spacepoints-ledger/internal/domain/reward"
	"github.com/spacepoints-ledger/internal/domain/shared"
	"github.com/spacepoints-ledger/internal/platform/messaging/producers"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeTxRunner runs the unit of work without a real transaction so
// service logic can be tested against repository mocks
type fakeTxRunner struct{}

func (fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) Get(ctx context.Context, userID uuid.UUID, spaceID int64) (*balance.Balance, error) {
	args := m.Called(ctx, userID, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockBalanceRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, spaceID int64) (*balance.Balance, error) {
	args := m.Called(ctx, userID, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockBalanceRepository) LockOrCreate(ctx context.Context, userID uuid.UUID, spaceID int64) (*balance.Balance, error) {
	args := m.Called(ctx, userID, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Update(ctx context.Context, bal *balance.Balance) error {
	args := m.Called(ctx, bal)
	return args.Error(0)
}

func (m *MockBalanceRepository) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceRepository) ListKeys(ctx context.Context, limit, offset int) ([]balance.Key, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]balance.Key), args.Error(1)
}

func (m *MockBalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	return m
}

type MockLegacyRepository struct {
	mock.Mock
}

func (m *MockLegacyRepository) Get(ctx context.Context, userID uuid.UUID, spaceID int64) (*legacy.Balance, error) {
	args := m.Called(ctx, userID, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*legacy.Balance), args.Error(1)
}

func (m *MockLegacyRepository) Save(ctx context.Context, b *legacy.Balance) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockLegacyRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLegacyRepository) WithTx(tx pgx.Tx) legacy.Repository {
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetByReferenceID(ctx context.Context, referenceID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Create(ctx context.Context, entry *history.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*history.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Entry), args.Error(1)
}

func (m *MockHistoryRepository) GetByReferenceID(ctx context.Context, referenceID uuid.UUID) ([]*history.Entry, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Entry), args.Error(1)
}

func (m *MockHistoryRepository) GetByUser(ctx context.Context, userID uuid.UUID, spaceID int64, limit, offset int) ([]*history.Entry, error) {
	args := m.Called(ctx, userID, spaceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Entry), args.Error(1)
}

func (m *MockHistoryRepository) CountByUser(ctx context.Context, userID uuid.UUID, spaceID int64) (int64, error) {
	args := m.Called(ctx, userID, spaceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockHistoryRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*history.Entry, error) {
	args := m.Called(ctx, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Entry), args.Error(1)
}

type MockRewardRepository struct {
	mock.Mock
}

func (m *MockRewardRepository) Create(ctx context.Context, d *reward.Distribution) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockRewardRepository) GetByID(ctx context.Context, id uuid.UUID) (*reward.Distribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Distribution), args.Error(1)
}

func (m *MockRewardRepository) GetByUser(ctx context.Context, userID uuid.UUID, spaceID int64, limit, offset int) ([]*reward.Distribution, error) {
	args := m.Called(ctx, userID, spaceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reward.Distribution), args.Error(1)
}

func (m *MockRewardRepository) GetByStatus(ctx context.Context, status reward.Status, limit, offset int) ([]*reward.Distribution, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reward.Distribution), args.Error(1)
}

func (m *MockRewardRepository) Update(ctx context.Context, d *reward.Distribution, expectedStatus reward.Status) error {
	args := m.Called(ctx, d, expectedStatus)
	return args.Error(0)
}

func (m *MockRewardRepository) ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]*reward.Distribution, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reward.Distribution), args.Error(1)
}

func (m *MockRewardRepository) Statistics(ctx context.Context, spaceID int64, from, to time.Time) (*reward.Statistics, error) {
	args := m.Called(ctx, spaceID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Statistics), args.Error(1)
}

func (m *MockRewardRepository) WithTx(tx pgx.Tx) reward.Repository {
	return m
}

type MockBurnRepository struct {
	mock.Mock
}

func (m *MockBurnRepository) Create(ctx context.Context, d *burn.Decision) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockBurnRepository) GetByID(ctx context.Context, id uuid.UUID) (*burn.Decision, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*burn.Decision), args.Error(1)
}

func (m *MockBurnRepository) GetBySpace(ctx context.Context, spaceID int64, limit, offset int) ([]*burn.Decision, error) {
	args := m.Called(ctx, spaceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*burn.Decision), args.Error(1)
}

func (m *MockBurnRepository) GetByStatus(ctx context.Context, status burn.Status, limit, offset int) ([]*burn.Decision, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*burn.Decision), args.Error(1)
}

func (m *MockBurnRepository) Update(ctx context.Context, d *burn.Decision, expectedStatus burn.Status) error {
	args := m.Called(ctx, d, expectedStatus)
	return args.Error(0)
}

func (m *MockBurnRepository) Statistics(ctx context.Context, spaceID int64) (*burn.Statistics, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*burn.Statistics), args.Error(1)
}

func (m *MockBurnRepository) HighValue(ctx context.Context, threshold decimal.Decimal, limit int) ([]*burn.Decision, error) {
	args := m.Called(ctx, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*burn.Decision), args.Error(1)
}

func (m *MockBurnRepository) WithTx(tx pgx.Tx) burn.Repository {
	return m
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Issue(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, reason string) (*balance.Balance, error) {
	args := m.Called(ctx, userID, spaceID, amount, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockLedgerService) IssueWithSettlement(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, reason string, referenceID uuid.UUID, correlationID string, settle func(tx pgx.Tx) error) (*balance.Balance, error) {
	args := m.Called(ctx, userID, spaceID, amount, reason, referenceID, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Mirrors the real transaction: settle runs only once the credit has
	// been applied, and a settle failure rolls the whole credit back
	if settle != nil {
		if err := settle(nil); err != nil {
			return nil, err
		}
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockLedgerService) Collect(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, reason string, force bool) (*balance.Balance, error) {
	args := m.Called(ctx, userID, spaceID, amount, reason, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockLedgerService) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, spaceID int64, amount decimal.Decimal, message string) (*TransferResult, error) {
	args := m.Called(ctx, senderID, recipientID, spaceID, amount, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TransferResult), args.Error(1)
}

func (m *MockLedgerService) GetBalance(ctx context.Context, userID uuid.UUID, spaceID int64) (*balance.Balance, error) {
	args := m.Called(ctx, userID, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockLedgerService) GetHistory(ctx context.Context, userID uuid.UUID, spaceID int64, page, perPage int) ([]*history.Entry, int64, error) {
	args := m.Called(ctx, userID, spaceID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*history.Entry), args.Get(1).(int64), args.Error(2)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

var (
	_ balance.Repository = (*MockBalanceRepository)(nil)
	_ legacy.Repository  = (*MockLegacyRepository)(nil)
	_ outbox.Repository  = (*MockOutboxRepository)(nil)
	_ history.Repository = (*MockHistoryRepository)(nil)
	_ reward.Repository  = (*MockRewardRepository)(nil)
	_ burn.Repository    = (*MockBurnRepository)(nil)
	_ LedgerService      = (*MockLedgerService)(nil)

	_ producers.MessagePublisher = (*MockMessagePublisher)(nil)
)
