package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iamOgunyinka/sproot/pkg/common"
)

// mockQueueStore is an in-memory queue store with injectable failures.
type mockQueueStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	sets    map[string]map[string]bool
	enqueue []string

	fetchErr      error
	deadLetterErr error
	removeErr     error
	enqueueErr    error
}

func newMockQueueStore() *mockQueueStore {
	return &mockQueueStore{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]bool),
	}
}

func (m *mockQueueStore) seed(hash, key, payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashes[hash] == nil {
		m.hashes[hash] = make(map[string]string)
	}
	m.hashes[hash][key] = payload
}

func (m *mockQueueStore) get(hash, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.hashes[hash][key]
	return v, ok
}

func (m *mockQueueStore) Snapshot(ctx context.Context, hash string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.hashes[hash]))
	for k := range m.hashes[hash] {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *mockQueueStore) Fetch(ctx context.Context, hash, key string) (string, error) {
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.hashes[hash][key]
	if !ok {
		return "", fmt.Errorf("missing %s/%s", hash, key)
	}
	return v, nil
}

func (m *mockQueueStore) DeadLetter(ctx context.Context, hash, key, value string) error {
	if m.deadLetterErr != nil {
		return m.deadLetterErr
	}
	m.seed(hash, key, value)
	return nil
}

func (m *mockQueueStore) Remove(ctx context.Context, hash, key string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hashes[hash], key)
	return nil
}

func (m *mockQueueStore) Enqueue(ctx context.Context, hash, key, payload string) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.mu.Lock()
	m.enqueue = append(m.enqueue, hash+"/"+key)
	m.mu.Unlock()
	m.seed(hash, key, payload)
	return nil
}

func (m *mockQueueStore) AddDedup(ctx context.Context, set, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[set] == nil {
		m.sets[set] = make(map[string]bool)
	}
	m.sets[set][member] = true
	return nil
}

// processorFunc adapts a function to the Processor interface.
type processorFunc func(ctx context.Context, key, payload string) error

func (f processorFunc) Process(ctx context.Context, key, payload string) error {
	return f(ctx, key, payload)
}

// fakeClock ticks immediately and lets the test stop the loop after a
// fixed number of sleeps. onSleep returns false to block that sleep
// forever, forcing the loop to exit through its context.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(count int) bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	count := len(c.sleeps)
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil && !hook(count) {
		return make(chan time.Time)
	}
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) sleepDurations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

func testLoopConfig() LoopConfig {
	return LoopConfig{
		Category:     "test",
		PendingKey:   "pending",
		FailureKey:   "failed",
		PollInterval: 60 * time.Second,
		StartupGrace: 10 * time.Second,
	}
}

// runLoopCycles runs the loop until it has slept maxSleeps times.
func runLoopCycles(t *testing.T, loop *Loop, clock *fakeClock, maxSleeps int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.onSleep = func(count int) bool {
		if count >= maxSleeps {
			cancel()
			return false
		}
		return true
	}
	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestLoopSuccessAcknowledges(t *testing.T) {
	store := newMockQueueStore()
	store.seed("pending", "item-1", "payload-1")
	clock := newFakeClock()

	var processed []string
	loop := NewLoop(store, processorFunc(func(ctx context.Context, key, payload string) error {
		processed = append(processed, key+"="+payload)
		return nil
	}), testLoopConfig(), clock)

	runLoopCycles(t, loop, clock, 2)

	if len(processed) != 1 || processed[0] != "item-1=payload-1" {
		t.Errorf("processed = %v, want [item-1=payload-1]", processed)
	}
	if _, ok := store.get("pending", "item-1"); ok {
		t.Error("item still pending after success")
	}
	if _, ok := store.get("failed", "item-1"); ok {
		t.Error("successful item landed in the failure hash")
	}
}

func TestLoopFailureDeadLetters(t *testing.T) {
	store := newMockQueueStore()
	store.seed("pending", "item-1", "payload-1")
	clock := newFakeClock()

	loop := NewLoop(store, processorFunc(func(ctx context.Context, key, payload string) error {
		return fmt.Errorf("no such course: %w", common.ErrDomain)
	}), testLoopConfig(), clock)

	runLoopCycles(t, loop, clock, 2)

	if _, ok := store.get("pending", "item-1"); ok {
		t.Error("failed item still pending")
	}
	if v, ok := store.get("failed", "item-1"); !ok || v != "payload-1" {
		t.Errorf("failure hash entry = %q, %v; want payload-1, true", v, ok)
	}
}

func TestLoopSingleAttemptOnly(t *testing.T) {
	store := newMockQueueStore()
	store.seed("pending", "item-1", "payload-1")
	clock := newFakeClock()

	attempts := 0
	loop := NewLoop(store, processorFunc(func(ctx context.Context, key, payload string) error {
		attempts++
		return fmt.Errorf("db down: %w", common.ErrTransient)
	}), testLoopConfig(), clock)

	// Several cycles, but the item was dead-lettered on the first.
	runLoopCycles(t, loop, clock, 4)

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestLoopDeadLetterFailureLeavesItemPending(t *testing.T) {
	store := newMockQueueStore()
	store.seed("pending", "item-1", "payload-1")
	store.deadLetterErr = errors.New("redis down")
	clock := newFakeClock()

	loop := NewLoop(store, processorFunc(func(ctx context.Context, key, payload string) error {
		return fmt.Errorf("bad item: %w", common.ErrInvalidPayload)
	}), testLoopConfig(), clock)

	runLoopCycles(t, loop, clock, 2)

	// The item must never be lost between the two hashes.
	if _, ok := store.get("pending", "item-1"); !ok {
		t.Error("item vanished although the dead-letter write failed")
	}
	if _, ok := store.get("failed", "item-1"); ok {
		t.Error("failure hash has an entry despite the write error")
	}
}

func TestLoopFailureValueHook(t *testing.T) {
	store := newMockQueueStore()
	store.seed("pending", "user@example.com", "77 %% Ada Obi")
	clock := newFakeClock()

	cfg := testLoopConfig()
	cfg.FailureValue = ConfirmationFailureValue

	loop := NewLoop(store, processorFunc(func(ctx context.Context, key, payload string) error {
		return fmt.Errorf("smtp refused: %w", common.ErrTransient)
	}), cfg, clock)

	runLoopCycles(t, loop, clock, 2)

	if v, ok := store.get("failed", "user@example.com"); !ok || v != "77" {
		t.Errorf("failure value = %q, %v; want the bare user id 77", v, ok)
	}
}

func TestLoopIdleCadence(t *testing.T) {
	store := newMockQueueStore()
	clock := newFakeClock()

	loop := NewLoop(store, processorFunc(func(ctx context.Context, key, payload string) error {
		return nil
	}), testLoopConfig(), clock)

	// Empty queue: one startup grace, then the poll interval per cycle.
	runLoopCycles(t, loop, clock, 3)

	sleeps := clock.sleepDurations()
	if len(sleeps) < 3 {
		t.Fatalf("recorded %d sleeps, want at least 3", len(sleeps))
	}
	if sleeps[0] != 10*time.Second {
		t.Errorf("first sleep = %v, want the 10s startup grace", sleeps[0])
	}
	for i, d := range sleeps[1:] {
		if d != 60*time.Second {
			t.Errorf("sleep %d = %v, want the 60s poll interval", i+1, d)
		}
	}
}

func TestLoopDrainsBacklogBeforeIdling(t *testing.T) {
	store := newMockQueueStore()
	store.seed("pending", "item-1", "payload-1")
	clock := newFakeClock()

	// Processing item-1 enqueues item-2 mid-cycle.
	var processed []string
	loop := NewLoop(store, processorFunc(func(ctx context.Context, key, payload string) error {
		processed = append(processed, key)
		if key == "item-1" {
			store.seed("pending", "item-2", "payload-2")
		}
		return nil
	}), testLoopConfig(), clock)

	runLoopCycles(t, loop, clock, 2)

	if len(processed) != 2 || processed[0] != "item-1" || processed[1] != "item-2" {
		t.Fatalf("processed = %v, want [item-1 item-2]", processed)
	}
	// No poll-interval sleep between the two productive cycles: the
	// backlog drains first, then the loop idles.
	sleeps := clock.sleepDurations()
	want := []time.Duration{10 * time.Second, 60 * time.Second}
	if len(sleeps) != len(want) || sleeps[0] != want[0] || sleeps[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", sleeps, want)
	}
}

func TestLoopBacksOffWhenNothingResolves(t *testing.T) {
	store := newMockQueueStore()
	store.seed("pending", "item-1", "payload-1")
	store.deadLetterErr = errors.New("redis down")
	clock := newFakeClock()

	attempts := 0
	loop := NewLoop(store, processorFunc(func(ctx context.Context, key, payload string) error {
		attempts++
		return fmt.Errorf("bad item: %w", common.ErrInvalidPayload)
	}), testLoopConfig(), clock)

	// The item stays pending every cycle; each unproductive cycle must
	// sleep rather than spin.
	runLoopCycles(t, loop, clock, 3)

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (one per slept cycle)", attempts)
	}
	sleeps := clock.sleepDurations()
	for i, d := range sleeps[1:] {
		if d != 60*time.Second {
			t.Errorf("sleep %d = %v, want the 60s poll interval", i+1, d)
		}
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	store := newMockQueueStore()
	clock := newFakeClock()

	loop := NewLoop(store, processorFunc(func(ctx context.Context, key, payload string) error {
		return nil
	}), testLoopConfig(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run on cancelled context = %v, want context.Canceled", err)
	}
}
