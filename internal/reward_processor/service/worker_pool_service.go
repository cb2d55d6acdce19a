package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/spacepoints-ledger/internal/domain/shared"
)

// WorkerPoolProcessingService fans reward settlements out to a bounded
// worker pool while keeping the caller synchronous
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProcessReward submits a settlement to the worker pool and waits for
// its result.
func (s *WorkerPoolProcessingService) ProcessReward(ctx context.Context, request *shared.RewardProcessRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Submitting reward settlement to worker pool",
		"distribution_id", request.DistributionID.String(),
	)

	// Create a channel to receive the result of the settlement
	resultChan := make(chan error, 1)

	// Store the result channel in the result map
	distributionID := request.DistributionID.String()
	s.mu.Lock()
	s.results[distributionID] = resultChan
	s.mu.Unlock()

	// Create a copy of the request to avoid data races
	requestCopy := *request

	// Submit the task to the worker pool
	err := s.pool.Submit(func() {
		err := s.baseService.ProcessReward(ctx, &requestCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, distributionID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, distributionID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit reward settlement to worker pool",
			"distribution_id", request.DistributionID.String(),
			"error", err,
		)
		return err
	}

	// Wait for the result from the worker
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
