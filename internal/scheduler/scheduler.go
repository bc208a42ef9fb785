package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fedisync/internal/federation"
	"fedisync/internal/model"
	"fedisync/internal/repository"
	"fedisync/internal/service"
	"fedisync/pkg/log"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Scheduler is the reconciliation loop: every interval it pages through
// follow rows needing attention, oldest-first, and dispatches the eligible
// ones to the policy evaluator under a bounded worker pool.
type Scheduler struct {
	conf       *viper.Viper
	logger     *log.Logger
	followRepo repository.CommunityFollowRepository
	follows    service.FollowService

	interval    time.Duration
	pageSize    int
	concurrency int

	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(
	conf *viper.Viper,
	logger *log.Logger,
	followRepo repository.CommunityFollowRepository,
	follows service.FollowService,
) *Scheduler {
	interval := conf.GetDuration("scheduler.interval")
	if interval <= 0 {
		interval = time.Minute
	}
	pageSize := conf.GetInt("scheduler.page_size")
	if pageSize <= 0 {
		pageSize = 100
	}
	concurrency := conf.GetInt("scheduler.concurrency")
	if concurrency <= 0 {
		concurrency = 50
	}
	return &Scheduler{
		conf:        conf,
		logger:      logger,
		followRepo:  followRepo,
		follows:     follows,
		interval:    interval,
		pageSize:    pageSize,
		concurrency: concurrency,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	s.logger.Info("reconciliation scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("page_size", s.pageSize),
		zap.Int("concurrency", s.concurrency))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Sweep(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("reconciliation scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one reconciliation pass. Exported so tests and the admin API
// can trigger a pass on demand.
func (s *Scheduler) Sweep(ctx context.Context) {
	follows, err := s.followRepo.FindPending(ctx, model.PendingStatuses, s.pageSize)
	if err != nil {
		s.logger.Error("sweep query failed", zap.Error(err))
		return
	}
	if len(follows) == 0 {
		return
	}

	now := time.Now()
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, follow := range follows {
		if ctx.Err() != nil {
			break
		}
		if now.Before(EligibleAt(follow.CreateTime, follow.AttemptCount)) {
			// not due yet: cycle it to the back of the oldest-first queue
			// so the sweep doesn't keep re-reading it
			if err := s.followRepo.Touch(ctx, follow.Id); err != nil {
				s.logger.Error("touch failed", zap.Int64("follow_id", follow.Id), zap.Error(err))
			}
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(follow *model.CommunityFollow) {
			defer wg.Done()
			defer func() { <-sem }()
			s.evaluate(ctx, follow)
		}(follow)
	}
	wg.Wait()
}

// evaluate runs one row through the policy chain and persists the outcome.
// A panic in evaluation is contained here: the row goes to ERROR and the
// sweep carries on.
func (s *Scheduler) evaluate(ctx context.Context, follow *model.CommunityFollow) {
	var (
		status model.FollowStatus
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("evaluation panic: %v", r)
				s.logger.Error("policy evaluation panicked",
					zap.Int64("follow_id", follow.Id), zap.Any("panic", r))
			}
		}()
		status, err = s.follows.ConditionalFollow(ctx, follow)
	}()

	var reason *string
	if err != nil {
		status = model.FollowStatusError
		r := federation.Reason(err)
		reason = &r
		if federation.Retryable(err) {
			s.logger.Warn("follow evaluation failed",
				zap.Int64("follow_id", follow.Id),
				zap.String("reason", r),
				zap.Error(err))
		} else {
			s.logger.Error("follow evaluation hit a permanent fault",
				zap.Int64("follow_id", follow.Id),
				zap.String("reason", r),
				zap.Error(err))
		}
	}

	if updateErr := s.followRepo.UpdateOutcome(ctx, follow.Id, status, follow.AttemptCount+1, reason); updateErr != nil {
		s.logger.Error("outcome update failed",
			zap.Int64("follow_id", follow.Id), zap.Error(updateErr))
	}
}
