// Package worker implements the broker's polling workers: administrator
// approval, confirmation email and paper marking. All three share one
// poll-process-acknowledge loop over a pending hash with a dead-letter
// hash for the items that fail their single attempt.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iamOgunyinka/sproot/internal/queue"
	"github.com/iamOgunyinka/sproot/pkg/common"
	"github.com/iamOgunyinka/sproot/pkg/observability"
)

// Outcome reasons for metrics and structured logs.
const (
	reasonOK              = "ok"
	reasonVanished        = "vanished"
	reasonFetchError      = "fetch_error"
	reasonInvalidPayload  = "invalid_payload"
	reasonTransientError  = "transient_error"
	reasonDomainError     = "domain_error"
	reasonUnexpectedError = "unexpected_error"
	reasonDeadLetterError = "dead_letter_error"
	reasonAckError        = "ack_error"
)

// queueStore is the slice of the queue store a loop needs.
type queueStore interface {
	Snapshot(ctx context.Context, hash string) ([]string, error)
	Fetch(ctx context.Context, hash, key string) (string, error)
	DeadLetter(ctx context.Context, hash, key, value string) error
	Remove(ctx context.Context, hash, key string) error
}

// Processor handles one dequeued item. The returned error's chain
// decides the outcome: nil acknowledges, anything else dead-letters.
// Wrapping common.ErrInvalidPayload, ErrTransient or ErrDomain refines
// the recorded reason; a bare error counts as unexpected.
type Processor interface {
	Process(ctx context.Context, key, payload string) error
}

// LoopConfig fixes one worker's queue identity and cadence.
type LoopConfig struct {
	Category     string
	PendingKey   string
	FailureKey   string
	PollInterval time.Duration
	StartupGrace time.Duration

	// FailureValue, when set, derives the value written to the failure
	// hash from the failed item. Defaults to the verbatim payload.
	FailureValue func(key, payload string) string
}

// Loop drives one Processor over one pending hash.
type Loop struct {
	store queueStore
	proc  Processor
	cfg   LoopConfig
	clock Clock
	log   *slog.Logger
}

func NewLoop(store queueStore, proc Processor, cfg LoopConfig, clock Clock) *Loop {
	if clock == nil {
		clock = NewRealClock()
	}
	return &Loop{
		store: store,
		proc:  proc,
		cfg:   cfg,
		clock: clock,
		log:   observability.Logger().With("component", "worker", "category", cfg.Category),
	}
}

// Run polls until ctx is cancelled. The idle backoff applies only when
// a cycle found nothing to do (or resolved nothing): after a productive
// cycle the loop re-snapshots immediately, so items enqueued mid-cycle
// are picked up without waiting out the poll interval.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("worker starting",
		"pending_key", l.cfg.PendingKey,
		"poll_interval", l.cfg.PollInterval.String(),
		"startup_grace", l.cfg.StartupGrace.String(),
	)

	if l.cfg.StartupGrace > 0 {
		if err := l.sleep(ctx, l.cfg.StartupGrace); err != nil {
			return err
		}
	}

	for {
		progressed := l.runCycle(ctx)
		if err := ctx.Err(); err != nil {
			l.log.Info("worker stopping")
			return err
		}
		if progressed {
			continue
		}
		if err := l.sleep(ctx, l.cfg.PollInterval); err != nil {
			l.log.Info("worker stopping")
			return err
		}
	}
}

// runCycle works off one snapshot. It reports whether any item was
// resolved (left the pending hash): a cycle whose items all stay
// pending, store outages included, must back off instead of spinning.
func (l *Loop) runCycle(ctx context.Context) bool {
	keys, err := l.store.Snapshot(ctx, l.cfg.PendingKey)
	if err != nil {
		l.log.Error("snapshot failed", "error", err)
		return false
	}
	brokerCycleItems.WithLabelValues(l.cfg.Category).Set(float64(len(keys)))
	if len(keys) == 0 {
		return false
	}

	l.log.Debug("cycle start", "items", len(keys))
	progressed := false
	for _, key := range keys {
		if ctx.Err() != nil {
			return progressed
		}
		if l.handleItem(ctx, key) {
			progressed = true
		}
	}
	return progressed
}

// handleItem gives one item its single attempt. Failed items move to the
// failure hash before leaving the pending hash, so a crash between the
// two writes re-attempts rather than loses the item. The return value
// reports whether the item left the pending hash.
func (l *Loop) handleItem(ctx context.Context, key string) bool {
	start := l.clock.Now()

	payload, err := l.store.Fetch(ctx, l.cfg.PendingKey, key)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			l.observe(key, start, reasonVanished, "skipped")
			return true
		}
		l.log.Error("fetch failed", "key", key, "error", err)
		l.observe(key, start, reasonFetchError, "error")
		return false
	}

	procErr := l.proc.Process(ctx, key, payload)
	if procErr == nil {
		if err := l.store.Remove(ctx, l.cfg.PendingKey, key); err != nil {
			l.log.Error("ack failed, item will be re-processed", "key", key, "error", err)
			l.observe(key, start, reasonAckError, "error")
			return false
		}
		l.observe(key, start, reasonOK, "success")
		return true
	}

	reason := classify(procErr)
	l.log.Warn("item failed", "key", key, "reason", reason, "error", procErr)

	value := payload
	if l.cfg.FailureValue != nil {
		value = l.cfg.FailureValue(key, payload)
	}
	if err := l.store.DeadLetter(ctx, l.cfg.FailureKey, key, value); err != nil {
		// Leave the item pending: it retries next cycle instead of
		// disappearing between the two hashes.
		l.log.Error("dead-letter write failed, leaving item pending", "key", key, "error", err)
		l.observe(key, start, reasonDeadLetterError, "error")
		return false
	}
	brokerDeadLetters.WithLabelValues(l.cfg.Category, reason).Inc()

	if err := l.store.Remove(ctx, l.cfg.PendingKey, key); err != nil {
		l.log.Error("ack after dead-letter failed", "key", key, "error", err)
		l.observe(key, start, reasonAckError, "error")
		return false
	}
	l.observe(key, start, reason, "failure")
	return true
}

func (l *Loop) observe(key string, start time.Time, reason, status string) {
	brokerItemsTotal.WithLabelValues(l.cfg.Category, status, reason).Inc()
	brokerItemDuration.WithLabelValues(l.cfg.Category).Observe(l.clock.Now().Sub(start).Seconds())
	l.log.Debug("item done", "key", key, "status", status, "reason", reason)
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.clock.After(d):
		return nil
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidPayload):
		return reasonInvalidPayload
	case errors.Is(err, common.ErrTransient):
		return reasonTransientError
	case errors.Is(err, common.ErrDomain):
		return reasonDomainError
	default:
		return reasonUnexpectedError
	}
}
