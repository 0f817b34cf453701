package verification

import (
	"context"
	"time"

	"shareperk-engage/pkg/config"
	"shareperk-engage/pkg/task"
	"shareperk-engage/pkg/taskname"
	"shareperk-engage/services/participation"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scheduler drives the participation state machine: it claims due pending
// participations with a conditional update, hands them to the queue, and
// re-enqueues rows stuck in verifying. It holds no state of its own, so
// multiple instances can run concurrently; the conditional claim decides
// who wins each row.
type Scheduler struct {
	cfg            *config.Config
	participations *participation.Service
	enqueuer       task.Enqueuer
}

type SchedulerParams struct {
	fx.In

	Config         *config.Config
	Participations *participation.Service
	Enqueuer       task.Enqueuer
}

func NewScheduler(p SchedulerParams) *Scheduler {
	return &Scheduler{
		cfg:            p.Config,
		participations: p.Participations,
		enqueuer:       p.Enqueuer,
	}
}

// StartScheduler is invoked by fx on service start.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started verification scheduler",
		zap.Duration("poll_interval", s.cfg.Engage.PollInterval),
		zap.Duration("stuck_after", s.cfg.Engage.StuckAfter),
	)

	// one tick at startup, then on the poll interval
	s.tick(ctx)

	ticker := time.NewTicker(s.cfg.Engage.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()

	dispatched, err := s.DispatchDue(ctx)
	if err != nil {
		zap.L().Error("[Scheduler] failed to dispatch due participations", zap.Error(err))
	}

	requeued, err := s.SweepStuck(ctx)
	if err != nil {
		zap.L().Error("[Scheduler] failed to sweep stuck participations", zap.Error(err))
	}

	if dispatched > 0 || requeued > 0 {
		zap.L().Info("[Scheduler] tick finished",
			zap.Int("dispatched", dispatched),
			zap.Int("requeued_stuck", requeued),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// DispatchDue claims due pending participations and enqueues one
// verification job per claimed row. A row another instance claimed first is
// skipped silently. A claim whose enqueue fails stays in verifying and is
// picked up by the stuck sweep, the same recovery path as a crash between
// the two steps.
func (s *Scheduler) DispatchDue(ctx context.Context) (int, error) {
	due, err := s.participations.FindDue(ctx, time.Now(), s.cfg.Engage.ClaimBatchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	counts := make(chan int, len(due))

	for _, p := range due {
		g.Go(func() error {
			claimed, err := s.participations.ClaimForVerification(gctx, p.ID)
			if err != nil {
				zap.L().Error("[Scheduler] failed to claim participation",
					zap.String("participation_id", p.ID), zap.Error(err))
				return nil
			}
			if !claimed {
				return nil
			}

			if err := s.enqueue(p.ID); err != nil {
				zap.L().Error("[Scheduler] failed to enqueue verification job",
					zap.String("participation_id", p.ID), zap.Error(err))
				return nil
			}
			counts <- 1
			return nil
		})
	}

	_ = g.Wait()
	close(counts)
	for range counts {
		dispatched++
	}

	return dispatched, nil
}

// SweepStuck re-enqueues participations left in verifying with no progress
// for longer than the configured cutoff. The status is not touched: the row
// is already claimed, it just lost its job.
func (s *Scheduler) SweepStuck(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.Engage.StuckAfter)
	stuck, err := s.participations.FindStuck(ctx, cutoff, s.cfg.Engage.ClaimBatchSize)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, p := range stuck {
		if err := s.enqueue(p.ID); err != nil {
			zap.L().Error("[Scheduler] failed to requeue stuck participation",
				zap.String("participation_id", p.ID), zap.Error(err))
			continue
		}
		requeued++
	}

	return requeued, nil
}

// Requeue enqueues one verification job for a participation regardless of
// its scheduled time. Exposed to the ops surface.
func (s *Scheduler) Requeue(ctx context.Context, participationID string) error {
	if _, err := s.participations.Get(ctx, participationID); err != nil {
		return err
	}
	return s.enqueue(participationID)
}

func (s *Scheduler) enqueue(participationID string) error {
	t, err := NewVerifyTask(participationID)
	if err != nil {
		return err
	}

	_, err = s.enqueuer.Enqueue(t,
		asynq.Queue(taskname.QueueVerification),
		asynq.MaxRetry(s.cfg.Engage.MaxAttempts),
		asynq.Timeout(s.cfg.Verifier.Timeout+30*time.Second),
	)
	return err
}
