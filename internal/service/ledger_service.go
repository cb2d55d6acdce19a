package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/domain/balance"
	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/domain/legacy"
	"github.com/spacepoints-ledger/internal/domain/outbox"
	"github.com/spacepoints-ledger/internal/domain/shared"
)

// LedgerServiceImpl implements the LedgerService interface. Every
// mutation locks the balance row, applies the change, and stages the
// history entries in the outbox within one transaction, so the balance
// and its audit trail can never diverge.
type LedgerServiceImpl struct {
	db          TxRunner
	balanceRepo balance.Repository
	legacyRepo  legacy.Repository
	outboxRepo  outbox.Repository
	historyRepo history.Repository
	logger      *slog.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(logger *slog.Logger, db TxRunner, balanceRepo balance.Repository, legacyRepo legacy.Repository, outboxRepo outbox.Repository, historyRepo history.Repository) LedgerService {
	return &LedgerServiceImpl{
		db:          db,
		balanceRepo: balanceRepo,
		legacyRepo:  legacyRepo,
		outboxRepo:  outboxRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// Issue credits amount to the user's balance with a generated reference
func (s *LedgerServiceImpl) Issue(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, reason string) (*balance.Balance, error) {
	return s.IssueWithSettlement(ctx, userID, spaceID, amount, reason, uuid.New(), "", nil)
}

// IssueWithSettlement credits amount under a caller-supplied reference ID
// and, when settle is non-nil, runs it inside the same transaction after
// the credit has been applied. The credit, its history staging, and the
// caller's settlement write commit or roll back together, so a settle
// failure never leaves a credited balance behind.
func (s *LedgerServiceImpl) IssueWithSettlement(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, reason string, referenceID uuid.UUID, correlationID string, settle func(tx pgx.Tx) error) (*balance.Balance, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.ErrInvalidAmount
	}
	if reason == "" {
		return nil, shared.ErrEmptyReason
	}

	var updated *balance.Balance
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		balRepo := s.balanceRepo.WithTx(tx)

		bal, err := balRepo.LockOrCreate(ctx, userID, spaceID)
		if err != nil {
			return err
		}

		before := bal.CurrentBalance
		if err := bal.Credit(amount); err != nil {
			return err
		}
		if err := balRepo.Update(ctx, bal); err != nil {
			return err
		}

		entry := &history.Entry{
			ID:              uuid.New(),
			UserID:          userID,
			SpaceID:         spaceID,
			TransactionType: history.TransactionTypeEarn,
			Amount:          amount,
			BalanceBefore:   before,
			BalanceAfter:    bal.CurrentBalance,
			ReferenceID:     referenceID,
			Reason:          reason,
			CorrelationID:   correlationID,
			CreatedAt:       time.Now(),
		}
		if err := s.stageHistory(ctx, tx, referenceID, userID, entry); err != nil {
			return err
		}

		if settle != nil {
			if err := settle(tx); err != nil {
				return err
			}
		}

		updated = bal
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to issue points",
			"user_id", userID,
			"space_id", spaceID,
			"amount", amount,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Points issued",
		"user_id", userID,
		"space_id", spaceID,
		"amount", amount,
		"reference_id", referenceID,
		"new_balance", updated.CurrentBalance,
	)

	s.mirrorToLegacy(ctx, userID, spaceID, amount, decimal.Zero)
	return updated, nil
}

// Collect debits amount from the user's balance. With force the debit is
// clamped at zero and the history entry records the actually deducted
// amount so replaying the log still reproduces the stored balance.
func (s *LedgerServiceImpl) Collect(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, reason string, force bool) (*balance.Balance, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.ErrInvalidAmount
	}
	if reason == "" {
		return nil, shared.ErrEmptyReason
	}

	var (
		updated  *balance.Balance
		deducted decimal.Decimal
	)
	referenceID := uuid.New()
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		balRepo := s.balanceRepo.WithTx(tx)

		bal, err := balRepo.LockOrCreate(ctx, userID, spaceID)
		if err != nil {
			return err
		}

		before := bal.CurrentBalance
		deducted, err = bal.Debit(amount, force)
		if err != nil {
			return err
		}
		if err := balRepo.Update(ctx, bal); err != nil {
			return err
		}

		entry := &history.Entry{
			ID:              uuid.New(),
			UserID:          userID,
			SpaceID:         spaceID,
			TransactionType: history.TransactionTypeCollect,
			Amount:          deducted,
			BalanceBefore:   before,
			BalanceAfter:    bal.CurrentBalance,
			ReferenceID:     referenceID,
			Reason:          reason,
			CreatedAt:       time.Now(),
		}
		if err := s.stageHistory(ctx, tx, referenceID, userID, entry); err != nil {
			return err
		}

		updated = bal
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to collect points",
			"user_id", userID,
			"space_id", spaceID,
			"amount", amount,
			"force", force,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Points collected",
		"user_id", userID,
		"space_id", spaceID,
		"requested", amount,
		"deducted", deducted,
		"reference_id", referenceID,
		"new_balance", updated.CurrentBalance,
	)

	s.mirrorToLegacy(ctx, userID, spaceID, decimal.Zero, deducted)
	return updated, nil
}

// Transfer moves amount from sender to recipient. Both balance rows are
// locked in a deterministic order so two opposing transfers between the
// same pair cannot deadlock. Both legs land in one history reference.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, spaceID int64, amount decimal.Decimal, message string) (*TransferResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.ErrInvalidAmount
	}
	if senderID == recipientID {
		return nil, shared.ErrSelfTransfer
	}

	referenceID := uuid.New()
	result := &TransferResult{
		ReferenceID: referenceID,
		Amount:      amount,
	}
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		balRepo := s.balanceRepo.WithTx(tx)

		first, second := senderID, recipientID
		if bytes.Compare(second[:], first[:]) < 0 {
			first, second = second, first
		}
		firstBal, err := balRepo.LockOrCreate(ctx, first, spaceID)
		if err != nil {
			return err
		}
		secondBal, err := balRepo.LockOrCreate(ctx, second, spaceID)
		if err != nil {
			return err
		}

		sender, recipient := firstBal, secondBal
		if sender.UserID != senderID {
			sender, recipient = secondBal, firstBal
		}

		senderBefore := sender.CurrentBalance
		recipientBefore := recipient.CurrentBalance

		if _, err := sender.Debit(amount, false); err != nil {
			return err
		}
		if err := recipient.Credit(amount); err != nil {
			return err
		}
		if err := balRepo.Update(ctx, sender); err != nil {
			return err
		}
		if err := balRepo.Update(ctx, recipient); err != nil {
			return err
		}

		now := time.Now()
		outEntry := &history.Entry{
			ID:              uuid.New(),
			UserID:          senderID,
			SpaceID:         spaceID,
			TransactionType: history.TransactionTypeTransferOut,
			Amount:          amount,
			BalanceBefore:   senderBefore,
			BalanceAfter:    sender.CurrentBalance,
			ReferenceID:     referenceID,
			Reason:          message,
			CreatedAt:       now,
		}
		inEntry := &history.Entry{
			ID:              uuid.New(),
			UserID:          recipientID,
			SpaceID:         spaceID,
			TransactionType: history.TransactionTypeTransferIn,
			Amount:          amount,
			BalanceBefore:   recipientBefore,
			BalanceAfter:    recipient.CurrentBalance,
			ReferenceID:     referenceID,
			Reason:          message,
			CreatedAt:       now,
		}
		if err := s.stageHistory(ctx, tx, referenceID, senderID, outEntry, inEntry); err != nil {
			return err
		}

		result.SenderBalance = sender
		result.RecipientBalance = recipient
		result.TransferredAt = now
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to transfer points",
			"sender_id", senderID,
			"recipient_id", recipientID,
			"space_id", spaceID,
			"amount", amount,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Points transferred",
		"sender_id", senderID,
		"recipient_id", recipientID,
		"space_id", spaceID,
		"amount", amount,
		"reference_id", referenceID,
	)

	s.mirrorToLegacy(ctx, senderID, spaceID, decimal.Zero, amount)
	s.mirrorToLegacy(ctx, recipientID, spaceID, amount, decimal.Zero)
	return result, nil
}

// GetBalance reads the user's balance, lazily creating a zero record
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID, spaceID int64) (*balance.Balance, error) {
	bal, err := s.balanceRepo.GetOrCreate(ctx, userID, spaceID)
	if err != nil {
		s.logger.Error("Failed to get balance", "user_id", userID, "space_id", spaceID, "error", err)
		return nil, err
	}
	return bal, nil
}

// GetHistory retrieves a paginated slice of the user's history log
func (s *LedgerServiceImpl) GetHistory(ctx context.Context, userID uuid.UUID, spaceID int64, page, perPage int) ([]*history.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.historyRepo.GetByUser(ctx, userID, spaceID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.historyRepo.CountByUser(ctx, userID, spaceID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// stageHistory writes the outbox message carrying the history entries
// within the caller's transaction
func (s *LedgerServiceImpl) stageHistory(ctx context.Context, tx pgx.Tx, referenceID, userID uuid.UUID, entries ...*history.Entry) error {
	msg, err := outbox.NewMessage(referenceID, userID, entries)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return s.outboxRepo.WithTx(tx).Create(ctx, msg)
}

// mirrorToLegacy reflects a committed mutation onto the legacy balance
// record. The mirror write is best-effort: it runs after the primary
// commit and a failure here only logs, leaving drift for the
// reconciliation engine to detect and repair.
func (s *LedgerServiceImpl) mirrorToLegacy(ctx context.Context, userID uuid.UUID, spaceID int64, earned, spent decimal.Decimal) {
	rec, err := s.legacyRepo.Get(ctx, userID, spaceID)
	if err != nil {
		var notFound legacy.ErrLegacyBalanceNotFound
		if !errors.As(err, &notFound) {
			s.logger.Warn("Failed to read legacy balance for mirror write",
				"user_id", userID, "space_id", spaceID, "error", err)
			return
		}
		rec = legacy.NewBalance(userID, spaceID)
	}

	if earned.GreaterThan(decimal.Zero) {
		rec.ApplyEarn(earned)
	}
	if spent.GreaterThan(decimal.Zero) {
		rec.ApplySpend(spent)
	}

	if err := s.legacyRepo.Save(ctx, rec); err != nil {
		s.logger.Warn("Failed to mirror mutation to legacy balance",
			"user_id", userID, "space_id", spaceID, "error", err)
	}
}
