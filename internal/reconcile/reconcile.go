package reconcile

import (
	"context"
	"sync"
	"time"

	"xengage/internal/api"
	"xengage/internal/logging"
	"xengage/internal/metrics"
	"xengage/internal/model"
	"xengage/internal/queue"
	"xengage/internal/ratelimit"
	"xengage/internal/session"
)

// Reconciler periodically replaces local queue and rate-limit state
// with server truth. Ticks do not back off; a failing tick is logged
// once and retried at the next interval. A 401 expires the session and
// stops the loop.
type Reconciler struct {
	api      *api.Client
	sess     *session.Session
	limits   *ratelimit.Limits
	queue    *queue.Queue
	interval time.Duration
	kick     chan struct{}
	now      func() time.Time
}

func New(a *api.Client, s *session.Session, l *ratelimit.Limits, q *queue.Queue, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Reconciler{
		api: a, sess: s, limits: l, queue: q,
		interval: interval,
		kick:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Kick requests an immediate tick, used right after a dispatch.
func (r *Reconciler) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run ticks until ctx is cancelled or the session expires.
func (r *Reconciler) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	last := r.now()
	step := func() error {
		now := r.now()
		r.limits.Countdown(now.Sub(last))
		last = now
		if !r.sess.Authenticated() {
			return context.Canceled
		}
		if err := r.Tick(ctx); err != nil {
			if api.IsAuthRequired(err) {
				r.sess.Expire()
				logging.Info("reconcile_session_expired", nil)
				return err
			}
			logging.ErrorOnce("reconcile_tick", "reconcile_tick_error", map[string]any{"error": err.Error()})
		}
		return nil
	}
	if err := step(); err != nil { return err }
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.kick:
			if err := step(); err != nil { return err }
		case <-t.C:
			if err := step(); err != nil { return err }
		}
	}
}

// Tick fetches the action queue and the rate-limit snapshot in
// parallel, awaits both, and merges. A snapshot observed before the
// latest completed dispatch is dropped so optimistic deductions are not
// clobbered.
func (r *Reconciler) Tick(ctx context.Context) error {
	metrics.ReconcileTicks.Inc()
	observed := r.limits.CompletedSeq()

	var wg sync.WaitGroup
	var actions []model.QueuedAction
	var snap ratelimit.Snapshot
	var qErr, lErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		actions, qErr = queue.Fetch(ctx, r.api)
	}()
	go func() {
		defer wg.Done()
		snap, lErr = ratelimit.Fetch(ctx, r.api)
	}()
	wg.Wait()

	if qErr != nil || lErr != nil {
		metrics.ReconcileErrors.Inc()
		if qErr != nil { return qErr }
		return lErr
	}
	r.queue.MergeServer(actions)
	r.limits.Merge(snap, observed)
	return nil
}
