package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/forwarder"
	"github.com/shaiso/Courier/internal/store"
)

// --- Fakes ---

type stubSender struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (s *stubSender) Send(ctx context.Context, ep *domain.Endpoint, msg *domain.Message) (*domain.Message, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return nil, errors.New("endpoint unreachable")
	}
	return &domain.Message{StatusCode: 200}, nil
}

type staticEndpoints map[string]*domain.Endpoint

func (m staticEndpoints) Resolve(name string) (*domain.Endpoint, bool) {
	ep, ok := m[name]
	return ep, ok
}

// --- Helpers ---

// fastParams — throttle-режим с короткими паузами, чтобы worker
// выбирал store без ожидания триггера.
func fastParams() forwarder.Params {
	p := forwarder.DefaultParams()
	p.TargetEndpoint = "orders"
	p.Throttle = true
	p.Interval = 100 * time.Millisecond
	p.RetryInterval = 10 * time.Millisecond
	return p
}

func newTestProcessor(t *testing.T, params forwarder.Params, active bool, sender forwarder.Sender) (*Processor, *store.InMemory) {
	t.Helper()
	st := store.NewInMemory("orders-store")
	p, err := New(Config{
		Name:      "orders-forwarder",
		Params:    params,
		Store:     st,
		Sender:    sender,
		Endpoints: staticEndpoints{"orders": {Name: "orders", URL: "http://orders.local"}},
		Active:    active,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}
	return p, st
}

func seed(t *testing.T, st *store.InMemory, n int) {
	t.Helper()
	producer, err := st.Producer()
	if err != nil {
		t.Fatalf("failed to get producer: %v", err)
	}
	for i := 0; i < n; i++ {
		err := producer.Enqueue(context.Background(), &domain.Message{Body: []byte("payload")})
		if err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
	}
}

func depth(t *testing.T, st *store.InMemory) int {
	t.Helper()
	d, err := st.Depth(context.Background())
	if err != nil {
		t.Fatalf("failed to read depth: %v", err)
	}
	return d
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- Lifecycle Tests ---

func TestProcessor_DeliversFromStore(t *testing.T) {
	sender := &stubSender{}
	p, st := newTestProcessor(t, fastParams(), true, sender)
	seed(t, st, 2)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer p.Stop()

	waitFor(t, 3*time.Second, "store to drain", func() bool {
		return depth(t, st) == 0
	})

	if got := sender.calls.Load(); got < 2 {
		t.Errorf("expected at least 2 sends, got %d", got)
	}
	if p.IsDeactivated() {
		t.Error("processor should stay active")
	}
}

func TestProcessor_StartsPaused(t *testing.T) {
	sender := &stubSender{}
	p, st := newTestProcessor(t, fastParams(), false, sender)
	seed(t, st, 1)

	if p.Status() != domain.ProcessorStatusPaused {
		t.Fatalf("expected PAUSED, got %s", p.Status())
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer p.Stop()

	// Неактивный процессор не трогает store
	time.Sleep(400 * time.Millisecond)
	if got := depth(t, st); got != 1 {
		t.Errorf("paused processor should not consume, depth=%d", got)
	}
	if got := sender.calls.Load(); got != 0 {
		t.Errorf("paused processor should not send, got %d sends", got)
	}
}

func TestProcessor_DeactivateActivateCycle(t *testing.T) {
	sender := &stubSender{}
	p, st := newTestProcessor(t, fastParams(), true, sender)
	seed(t, st, 1)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer p.Stop()

	waitFor(t, 3*time.Second, "first delivery", func() bool {
		return depth(t, st) == 0
	})

	p.Deactivate()
	if p.Status() != domain.ProcessorStatusPaused {
		t.Fatalf("expected PAUSED, got %s", p.Status())
	}

	// Даём текущему вызову worker'а завершиться, потом кладём
	// новое сообщение
	time.Sleep(100 * time.Millisecond)
	before := sender.calls.Load()
	seed(t, st, 1)

	time.Sleep(400 * time.Millisecond)
	if got := depth(t, st); got != 1 {
		t.Errorf("deactivated processor should not consume, depth=%d", got)
	}
	if got := sender.calls.Load(); got != before {
		t.Errorf("deactivated processor should not send, got %d extra sends", got-before)
	}

	// Реактивация: новый worker подхватывает накопленное
	p.Activate()
	waitFor(t, 3*time.Second, "delivery after reactivation", func() bool {
		return depth(t, st) == 0
	})
	if p.Status() != domain.ProcessorStatusActive {
		t.Errorf("expected ACTIVE, got %s", p.Status())
	}
}

func TestProcessor_DeactivatedByWorkerOnExhaustion(t *testing.T) {
	sender := &stubSender{}
	sender.fail.Store(true)

	params := fastParams()
	params.MaxDeliverAttempts = 1

	p, st := newTestProcessor(t, params, true, sender)
	seed(t, st, 1)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer p.Stop()

	waitFor(t, 3*time.Second, "worker-driven deactivation", func() bool {
		return p.IsDeactivated()
	})

	// Недоставленное сообщение остаётся в store
	if got := depth(t, st); got != 1 {
		t.Errorf("failed message should remain queued, depth=%d", got)
	}
}

func TestNew_InvalidCron(t *testing.T) {
	params := forwarder.DefaultParams()
	params.CronExpression = "not a cron"

	_, err := New(Config{
		Name:   "bad-cron",
		Params: params,
		Store:  store.NewInMemory("s"),
		Sender: &stubSender{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err == nil {
		t.Error("expected error for an invalid cron expression")
	}
}

// --- Registry Tests ---

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	a, _ := newTestProcessor(t, fastParams(), true, &stubSender{})
	if err := reg.Register(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Register(a); !errors.Is(err, ErrDuplicateProcessor) {
		t.Errorf("expected ErrDuplicateProcessor, got %v", err)
	}

	got, err := reg.Get("orders-forwarder")
	if err != nil || got != a {
		t.Errorf("expected registered processor, got %v (err %v)", got, err)
	}

	if _, err := reg.Get("ghost"); !errors.Is(err, ErrProcessorNotFound) {
		t.Errorf("expected ErrProcessorNotFound, got %v", err)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		st := store.NewInMemory(name + "-store")
		p, err := New(Config{
			Name:   name,
			Params: fastParams(),
			Store:  st,
			Sender: &stubSender{},
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		if err != nil {
			t.Fatalf("failed to create processor: %v", err)
		}
		if err := reg.Register(p); err != nil {
			t.Fatalf("failed to register: %v", err)
		}
	}

	list := reg.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 processors, got %d", len(list))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, p := range list {
		if p.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], p.Name())
		}
	}
}
