package watch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reconciler owns the client-side alarm state machine: Idle or
// Alerting. Both the push stream and the poll loop feed it through
// Reconcile, which is a pure function of the latest known truth (is
// there at least one active beep log), so it does not matter which
// signal arrives last or whether both fire at once. At most one alarm
// goroutine exists at any instant.
type Reconciler struct {
	Beeper Beeper
	Period time.Duration
	Logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Reconcile converges the alarm toward the given truth. Starting while
// already alerting and stopping while idle are both no-ops.
func (r *Reconciler) Reconcile(hasActiveBeep bool) {
	if hasActiveBeep {
		r.startAlarm()
	} else {
		r.StopAlarm()
	}
}

// Alerting reports whether the alarm loop is currently running.
func (r *Reconciler) Alerting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// StopAlarm cancels the alarm loop and waits for it to exit, so no tone
// fires after StopAlarm returns. Idempotent.
func (r *Reconciler) StopAlarm() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Reconciler) startAlarm() {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go r.loop(ctx, done)
}

func (r *Reconciler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	period := r.Period
	if period <= 0 {
		period = time.Second
	}

	// Tone at t=0, then on every tick until cancelled.
	if err := r.Beeper.Beep(ctx); err != nil {
		r.failAlarm(ctx, done, err)
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Beeper.Beep(ctx); err != nil {
				r.failAlarm(ctx, done, err)
				return
			}
		}
	}
}

// failAlarm forces the state back to Idle after a beep failure. It must
// not call StopAlarm: that would wait on our own done channel.
func (r *Reconciler) failAlarm(ctx context.Context, done chan struct{}, err error) {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return
	}
	if r.Logger != nil {
		r.Logger.Warn("alarm tone failed, forcing idle", zap.Error(err))
	}
	r.mu.Lock()
	if r.done == done {
		if r.cancel != nil {
			r.cancel()
		}
		r.cancel = nil
		r.done = nil
	}
	r.mu.Unlock()
}
