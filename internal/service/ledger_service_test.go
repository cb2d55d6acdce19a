package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spacepoints-ledger/internal/domain/balance"
	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/domain/legacy"
	"github.com/spacepoints-ledger/internal/domain/outbox"
	"github.com/spacepoints-ledger/internal/domain/shared"
)

type ledgerTestDeps struct {
	balanceRepo *MockBalanceRepository
	legacyRepo  *MockLegacyRepository
	outboxRepo  *MockOutboxRepository
	historyRepo *MockHistoryRepository
}

func newLedgerService() (LedgerService, *ledgerTestDeps) {
	deps := &ledgerTestDeps{
		balanceRepo: new(MockBalanceRepository),
		legacyRepo:  new(MockLegacyRepository),
		outboxRepo:  new(MockOutboxRepository),
		historyRepo: new(MockHistoryRepository),
	}
	svc := NewLedgerService(newTestLogger(), fakeTxRunner{}, deps.balanceRepo, deps.legacyRepo, deps.outboxRepo, deps.historyRepo)
	return svc, deps
}

// allowLegacyMirror accepts the best-effort mirror write that follows a
// successful mutation
func (d *ledgerTestDeps) allowLegacyMirror() {
	d.legacyRepo.On("Get", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, legacy.ErrLegacyBalanceNotFound{}).Maybe()
	d.legacyRepo.On("Save", mock.Anything, mock.AnythingOfType("*legacy.Balance")).
		Return(nil).Maybe()
}

func TestLedgerServiceImpl_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		spaceID := int64(1)
		existing := balance.NewBalance(userID, spaceID)
		require.NoError(t, existing.Credit(decimal.NewFromInt(50)))

		var staged *outbox.Message
		deps.balanceRepo.On("LockOrCreate", ctx, userID, spaceID).Return(existing, nil).Once()
		deps.balanceRepo.On("Update", ctx, existing).Return(nil).Once()
		deps.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).
			Run(func(args mock.Arguments) { staged = args.Get(1).(*outbox.Message) }).
			Return(nil).Once()
		deps.allowLegacyMirror()

		bal, err := svc.Issue(ctx, userID, spaceID, decimal.NewFromInt(25), "weekly bonus")

		require.NoError(t, err)
		assert.True(t, bal.CurrentBalance.Equal(decimal.NewFromInt(75)))

		require.NotNil(t, staged)
		entries, err := staged.Entries()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, history.TransactionTypeEarn, entries[0].TransactionType)
		assert.True(t, entries[0].BalanceBefore.Equal(decimal.NewFromInt(50)))
		assert.True(t, entries[0].BalanceAfter.Equal(decimal.NewFromInt(75)),
			"history entry must reproduce the stored balance")
		deps.balanceRepo.AssertExpectations(t)
		deps.outboxRepo.AssertExpectations(t)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		svc, deps := newLedgerService()

		_, err := svc.Issue(ctx, uuid.New(), 1, decimal.Zero, "reason")

		assert.ErrorIs(t, err, shared.ErrInvalidAmount)
		deps.balanceRepo.AssertNotCalled(t, "LockOrCreate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("EmptyReason", func(t *testing.T) {
		svc, _ := newLedgerService()

		_, err := svc.Issue(ctx, uuid.New(), 1, decimal.NewFromInt(10), "")

		assert.ErrorIs(t, err, shared.ErrEmptyReason)
	})

	t.Run("OutboxFailureRollsBack", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		bal := balance.NewBalance(userID, 1)
		outboxErr := errors.New("outbox insert failed")

		deps.balanceRepo.On("LockOrCreate", ctx, userID, int64(1)).Return(bal, nil).Once()
		deps.balanceRepo.On("Update", ctx, bal).Return(nil).Once()
		deps.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(outboxErr).Once()

		_, err := svc.Issue(ctx, userID, 1, decimal.NewFromInt(10), "reason")

		assert.ErrorIs(t, err, outboxErr)
		deps.legacyRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestLedgerServiceImpl_IssueWithSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("SettleRunsAfterCreditInSameTransaction", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		referenceID := uuid.New()
		bal := balance.NewBalance(userID, 1)

		var creditStaged bool
		deps.balanceRepo.On("LockOrCreate", ctx, userID, int64(1)).Return(bal, nil).Once()
		deps.balanceRepo.On("Update", ctx, bal).Return(nil).Once()
		deps.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).
			Run(func(mock.Arguments) { creditStaged = true }).
			Return(nil).Once()
		deps.allowLegacyMirror()

		settled := false
		credited, err := svc.IssueWithSettlement(ctx, userID, 1, decimal.NewFromInt(40), "reason",
			referenceID, "corr-1", func(tx pgx.Tx) error {
				assert.True(t, creditStaged, "settle must observe the staged credit")
				settled = true
				return nil
			})

		require.NoError(t, err)
		assert.True(t, settled)
		assert.True(t, credited.CurrentBalance.Equal(decimal.NewFromInt(40)))
	})

	t.Run("SettleFailureAbortsTheCredit", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		bal := balance.NewBalance(userID, 1)
		settleErr := errors.New("settlement row already claimed")

		deps.balanceRepo.On("LockOrCreate", ctx, userID, int64(1)).Return(bal, nil).Once()
		deps.balanceRepo.On("Update", ctx, bal).Return(nil).Once()
		deps.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(nil).Once()

		_, err := svc.IssueWithSettlement(ctx, userID, 1, decimal.NewFromInt(40), "reason",
			uuid.New(), "", func(tx pgx.Tx) error { return settleErr })

		assert.ErrorIs(t, err, settleErr)
		deps.legacyRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestLedgerServiceImpl_Collect(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		bal := balance.NewBalance(userID, 1)
		require.NoError(t, bal.Credit(decimal.NewFromInt(100)))

		deps.balanceRepo.On("LockOrCreate", ctx, userID, int64(1)).Return(bal, nil).Once()
		deps.balanceRepo.On("Update", ctx, bal).Return(nil).Once()
		deps.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(nil).Once()
		deps.allowLegacyMirror()

		updated, err := svc.Collect(ctx, userID, 1, decimal.NewFromInt(40), "marketplace purchase", false)

		require.NoError(t, err)
		assert.True(t, updated.CurrentBalance.Equal(decimal.NewFromInt(60)))
		deps.balanceRepo.AssertExpectations(t)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		bal := balance.NewBalance(userID, 1)
		require.NoError(t, bal.Credit(decimal.NewFromInt(10)))

		deps.balanceRepo.On("LockOrCreate", ctx, userID, int64(1)).Return(bal, nil).Once()

		_, err := svc.Collect(ctx, userID, 1, decimal.NewFromInt(40), "purchase", false)

		assert.ErrorIs(t, err, balance.ErrInsufficientBalance{})
		deps.balanceRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		deps.outboxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("ForceRecordsActualDeduction", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		bal := balance.NewBalance(userID, 1)
		require.NoError(t, bal.Credit(decimal.NewFromInt(15)))

		var staged *outbox.Message
		deps.balanceRepo.On("LockOrCreate", ctx, userID, int64(1)).Return(bal, nil).Once()
		deps.balanceRepo.On("Update", ctx, bal).Return(nil).Once()
		deps.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).
			Run(func(args mock.Arguments) { staged = args.Get(1).(*outbox.Message) }).
			Return(nil).Once()
		deps.allowLegacyMirror()

		updated, err := svc.Collect(ctx, userID, 1, decimal.NewFromInt(40), "penalty", true)

		require.NoError(t, err)
		assert.True(t, updated.CurrentBalance.IsZero())

		entries, err := staged.Entries()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, history.TransactionTypeCollect, entries[0].TransactionType)
		assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(15)),
			"clamped debit must log the deducted amount, not the requested one")
	})
}

func TestLedgerServiceImpl_Transfer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, deps := newLedgerService()
		senderID := uuid.New()
		recipientID := uuid.New()
		sender := balance.NewBalance(senderID, 1)
		recipient := balance.NewBalance(recipientID, 1)
		require.NoError(t, sender.Credit(decimal.NewFromInt(100)))

		var staged *outbox.Message
		deps.balanceRepo.On("LockOrCreate", ctx, senderID, int64(1)).Return(sender, nil).Once()
		deps.balanceRepo.On("LockOrCreate", ctx, recipientID, int64(1)).Return(recipient, nil).Once()
		deps.balanceRepo.On("Update", ctx, sender).Return(nil).Once()
		deps.balanceRepo.On("Update", ctx, recipient).Return(nil).Once()
		deps.outboxRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).
			Run(func(args mock.Arguments) { staged = args.Get(1).(*outbox.Message) }).
			Return(nil).Once()
		deps.allowLegacyMirror()

		result, err := svc.Transfer(ctx, senderID, recipientID, 1, decimal.NewFromInt(30), "thanks")

		require.NoError(t, err)
		assert.True(t, result.SenderBalance.CurrentBalance.Equal(decimal.NewFromInt(70)))
		assert.True(t, result.RecipientBalance.CurrentBalance.Equal(decimal.NewFromInt(30)))

		entries, err := staged.Entries()
		require.NoError(t, err)
		require.Len(t, entries, 2, "both transfer legs share one outbox message")
		assert.Equal(t, history.TransactionTypeTransferOut, entries[0].TransactionType)
		assert.Equal(t, history.TransactionTypeTransferIn, entries[1].TransactionType)
		assert.Equal(t, entries[0].ReferenceID, entries[1].ReferenceID)

		moved := entries[0].SignedAmount().Add(entries[1].SignedAmount())
		assert.True(t, moved.IsZero(), "a transfer conserves the total point supply")
	})

	t.Run("SelfTransfer", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()

		_, err := svc.Transfer(ctx, userID, userID, 1, decimal.NewFromInt(10), "")

		assert.ErrorIs(t, err, shared.ErrSelfTransfer)
		deps.balanceRepo.AssertNotCalled(t, "LockOrCreate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SenderInsufficientBalance", func(t *testing.T) {
		svc, deps := newLedgerService()
		senderID := uuid.New()
		recipientID := uuid.New()
		sender := balance.NewBalance(senderID, 1)
		recipient := balance.NewBalance(recipientID, 1)

		deps.balanceRepo.On("LockOrCreate", ctx, senderID, int64(1)).Return(sender, nil).Once()
		deps.balanceRepo.On("LockOrCreate", ctx, recipientID, int64(1)).Return(recipient, nil).Once()

		_, err := svc.Transfer(ctx, senderID, recipientID, 1, decimal.NewFromInt(10), "")

		assert.ErrorIs(t, err, balance.ErrInsufficientBalance{},
			"transfers never overdraw regardless of any force semantics elsewhere")
		deps.outboxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("LockOrderIsDeterministic", func(t *testing.T) {
		svc, deps := newLedgerService()
		senderID := uuid.New()
		recipientID := uuid.New()
		sender := balance.NewBalance(senderID, 1)
		recipient := balance.NewBalance(recipientID, 1)
		require.NoError(t, sender.Credit(decimal.NewFromInt(50)))

		var lockOrder []uuid.UUID
		record := func(args mock.Arguments) {
			lockOrder = append(lockOrder, args.Get(1).(uuid.UUID))
		}
		deps.balanceRepo.On("LockOrCreate", ctx, senderID, int64(1)).Run(record).Return(sender, nil).Once()
		deps.balanceRepo.On("LockOrCreate", ctx, recipientID, int64(1)).Run(record).Return(recipient, nil).Once()
		deps.balanceRepo.On("Update", ctx, mock.Anything).Return(nil).Twice()
		deps.outboxRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		deps.allowLegacyMirror()

		_, err := svc.Transfer(ctx, senderID, recipientID, 1, decimal.NewFromInt(10), "")

		require.NoError(t, err)
		require.Len(t, lockOrder, 2)

		first, second := lockOrder[0], lockOrder[1]
		assert.True(t, uuidLess(first, second), "rows must lock in byte order so opposing transfers cannot deadlock")
	})
}

func uuidLess(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func TestLedgerServiceImpl_GetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		bal := balance.NewBalance(userID, 1)

		deps.balanceRepo.On("GetOrCreate", ctx, userID, int64(1)).Return(bal, nil).Once()

		got, err := svc.GetBalance(ctx, userID, 1)

		require.NoError(t, err)
		assert.Equal(t, bal, got)
		deps.balanceRepo.AssertExpectations(t)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		repoErr := errors.New("connection refused")

		deps.balanceRepo.On("GetOrCreate", ctx, userID, int64(1)).Return(nil, repoErr).Once()

		_, err := svc.GetBalance(ctx, userID, 1)

		assert.ErrorIs(t, err, repoErr)
	})
}

func TestLedgerServiceImpl_GetHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("PaginationOffsets", func(t *testing.T) {
		svc, deps := newLedgerService()
		userID := uuid.New()
		entries := []*history.Entry{{ID: uuid.New(), UserID: userID}}

		deps.historyRepo.On("GetByUser", ctx, userID, int64(1), 10, 20).Return(entries, nil).Once()
		deps.historyRepo.On("CountByUser", ctx, userID, int64(1)).Return(int64(35), nil).Once()

		got, total, err := svc.GetHistory(ctx, userID, 1, 3, 10)

		require.NoError(t, err)
		assert.Equal(t, entries, got)
		assert.Equal(t, int64(35), total)
		deps.historyRepo.AssertExpectations(t)
	})
}
