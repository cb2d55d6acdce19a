package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/domain/balance"
	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/domain/legacy"
	"github.com/spacepoints-ledger/internal/domain/shared"
)

// ReconciliationServiceImpl implements the ReconciliationService
// interface. The canonical balance store is the one-way source of
// truth: repairs always overwrite the legacy mirror, never the primary.
type ReconciliationServiceImpl struct {
	balanceRepo  balance.Repository
	legacyRepo   legacy.Repository
	scanPageSize int
	logger       *slog.Logger
}

// NewReconciliationService creates a new reconciliation service.
// scanPageSize bounds how many balance keys a system scan loads per
// page; non-positive values fall back to a sane default.
func NewReconciliationService(logger *slog.Logger, balanceRepo balance.Repository, legacyRepo legacy.Repository, scanPageSize int) ReconciliationService {
	if scanPageSize <= 0 {
		scanPageSize = 500
	}
	return &ReconciliationServiceImpl{
		balanceRepo:  balanceRepo,
		legacyRepo:   legacyRepo,
		scanPageSize: scanPageSize,
		logger:       logger,
	}
}

// CheckConsistency reads both representations and reports the drift.
// Pure read, safe at any frequency. A missing legacy record counts as a
// zero secondary balance.
func (s *ReconciliationServiceImpl) CheckConsistency(ctx context.Context, userID uuid.UUID, spaceID int64) (*ConsistencyCheckResult, error) {
	primary, err := s.balanceRepo.Get(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}

	secondary := decimal.Zero
	rec, err := s.legacyRepo.Get(ctx, userID, spaceID)
	if err != nil {
		var notFound legacy.ErrLegacyBalanceNotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		secondary = rec.Balance
	}

	discrepancy := primary.CurrentBalance.Sub(secondary)
	return &ConsistencyCheckResult{
		UserID:           userID,
		SpaceID:          spaceID,
		PrimaryBalance:   primary.CurrentBalance,
		SecondaryBalance: secondary,
		Discrepancy:      discrepancy,
		IsConsistent:     discrepancy.IsZero(),
		CheckedAt:        time.Now(),
	}, nil
}

// Repair overwrites the legacy record with the canonical figures and
// re-checks. The before and after states are both logged so an operator
// can audit what was overwritten; a failed write reports the user as
// still inconsistent instead of assuming the fix landed.
func (s *ReconciliationServiceImpl) Repair(ctx context.Context, userID uuid.UUID, spaceID int64) (*ConsistencyCheckResult, error) {
	before, err := s.CheckConsistency(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}

	primary, err := s.balanceRepo.Get(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}

	rec, err := s.legacyRepo.Get(ctx, userID, spaceID)
	if err != nil {
		var notFound legacy.ErrLegacyBalanceNotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}
		rec = legacy.NewBalance(userID, spaceID)
	}

	rec.Overwrite(primary.CurrentBalance, primary.TotalEarned)
	if err := s.legacyRepo.Save(ctx, rec); err != nil {
		s.logger.Error("Failed to repair legacy balance",
			"user_id", userID,
			"space_id", spaceID,
			"discrepancy", before.Discrepancy,
			"error", err,
		)
		return before, err
	}

	after, err := s.CheckConsistency(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Legacy balance repaired",
		"user_id", userID,
		"space_id", spaceID,
		"before_secondary", before.SecondaryBalance,
		"after_secondary", after.SecondaryBalance,
		"primary", after.PrimaryBalance,
		"was_consistent", before.IsConsistent,
	)
	return after, nil
}

// ReplayLegacyTransfer applies a mutation that happened directly against
// the legacy system to the legacy bookkeeping only, so the mirror
// reflects it without double-applying to the primary store
func (s *ReconciliationServiceImpl) ReplayLegacyTransfer(ctx context.Context, fromUserID, toUserID uuid.UUID, spaceID int64, amount decimal.Decimal, transactionType history.TransactionType, description string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.ErrInvalidAmount
	}

	from, err := s.loadOrInit(ctx, fromUserID, spaceID)
	if err != nil {
		return err
	}
	to, err := s.loadOrInit(ctx, toUserID, spaceID)
	if err != nil {
		return err
	}

	from.ApplySpend(amount)
	to.ApplyEarn(amount)

	if err := s.legacyRepo.Save(ctx, from); err != nil {
		return err
	}
	if err := s.legacyRepo.Save(ctx, to); err != nil {
		return err
	}

	s.logger.Info("Legacy transfer replayed",
		"from_user_id", fromUserID,
		"to_user_id", toUserID,
		"space_id", spaceID,
		"amount", amount,
		"transaction_type", string(transactionType),
		"description", description,
	)
	return nil
}

// SystemSyncSummary scans every known balance key and counts the ones
// whose legacy mirror drifted. The scan honors context cancellation
// between pages; already-checked users keep their result in the partial
// summary returned alongside the context error.
func (s *ReconciliationServiceImpl) SystemSyncSummary(ctx context.Context) (*SystemSyncSummary, error) {
	primaryCount, err := s.balanceRepo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	secondaryCount, err := s.legacyRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	summary := &SystemSyncSummary{
		PrimaryUserCount:   primaryCount,
		SecondaryUserCount: secondaryCount,
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			summary.LastCheckedAt = time.Now()
			return summary, err
		}

		keys, err := s.balanceRepo.ListKeys(ctx, s.scanPageSize, offset)
		if err != nil {
			summary.LastCheckedAt = time.Now()
			return summary, err
		}
		if len(keys) == 0 {
			break
		}

		for _, key := range keys {
			result, err := s.CheckConsistency(ctx, key.UserID, key.SpaceID)
			if err != nil {
				summary.LastCheckedAt = time.Now()
				return summary, err
			}
			summary.ScannedUserCount++
			if !result.IsConsistent {
				summary.InconsistentUserCount++
			}
		}

		offset += len(keys)
	}

	summary.LastCheckedAt = time.Now()
	s.logger.Info("System sync scan finished",
		"scanned", summary.ScannedUserCount,
		"inconsistent", summary.InconsistentUserCount,
		"primary_users", summary.PrimaryUserCount,
		"secondary_users", summary.SecondaryUserCount,
	)
	return summary, nil
}

func (s *ReconciliationServiceImpl) loadOrInit(ctx context.Context, userID uuid.UUID, spaceID int64) (*legacy.Balance, error) {
	rec, err := s.legacyRepo.Get(ctx, userID, spaceID)
	if err != nil {
		var notFound legacy.ErrLegacyBalanceNotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}
		rec = legacy.NewBalance(userID, spaceID)
	}
	return rec, nil
}
