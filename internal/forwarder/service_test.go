package forwarder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/sequence"
	"github.com/shaiso/Courier/internal/store"
)

// --- Fakes ---

type fakeOwner struct {
	name            string
	deactivated     bool
	deactivateCalls int
}

func (o *fakeOwner) Name() string        { return o.name }
func (o *fakeOwner) IsDeactivated() bool { return o.deactivated }
func (o *fakeOwner) Deactivate()         { o.deactivated = true; o.deactivateCalls++ }

type fakeConsumer struct {
	messages   []*domain.Message
	alive      bool
	fetchCalls int
	ackCalls   int
	ackErr     error
}

func (c *fakeConsumer) FetchNext(ctx context.Context) (*domain.Message, error) {
	c.fetchCalls++
	if len(c.messages) == 0 {
		return nil, nil
	}
	return c.messages[0], nil
}

func (c *fakeConsumer) Acknowledge(ctx context.Context) error {
	if c.ackErr != nil {
		return c.ackErr
	}
	c.ackCalls++
	if len(c.messages) > 0 {
		c.messages = c.messages[1:]
	}
	return nil
}

func (c *fakeConsumer) IsAlive() bool { return c.alive }
func (c *fakeConsumer) Close() error  { c.alive = false; return nil }

type sendResult struct {
	reply *domain.Message
	err   error
}

type fakeSender struct {
	results   []sendResult
	calls     int
	sent      []*domain.Message
	endpoints []string
	panicMsg  string
}

func (s *fakeSender) Send(ctx context.Context, ep *domain.Endpoint, msg *domain.Message) (*domain.Message, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	idx := s.calls
	s.calls++
	s.sent = append(s.sent, msg)
	s.endpoints = append(s.endpoints, ep.Name)
	if len(s.results) == 0 {
		return nil, nil
	}
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx].reply, s.results[idx].err
}

type mapEndpoints map[string]*domain.Endpoint

func (m mapEndpoints) Resolve(name string) (*domain.Endpoint, bool) {
	ep, ok := m[name]
	return ep, ok
}

type fakeStats struct {
	delivered, failed, retried, dropped, deactivated int
}

func (s *fakeStats) Delivered()   { s.delivered++ }
func (s *fakeStats) Failed()      { s.failed++ }
func (s *fakeStats) Retried()     { s.retried++ }
func (s *fakeStats) Dropped()     { s.dropped++ }
func (s *fakeStats) Deactivated() { s.deactivated++ }

// --- Helpers ---

func newMsg() *domain.Message {
	return &domain.Message{ID: uuid.New(), Body: []byte("payload")}
}

// testParams — однопроходный режим с быстрым retry для тестов.
func testParams() Params {
	p := DefaultParams()
	p.Throttle = false
	p.RetryInterval = time.Millisecond
	p.TargetEndpoint = "orders"
	return p
}

type testEnv struct {
	owner    *fakeOwner
	consumer *fakeConsumer
	sender   *fakeSender
	seqs     *sequence.Registry
	stats    *fakeStats
	svc      *Service
}

func newTestEnv(params Params, msgs []*domain.Message, sender *fakeSender) *testEnv {
	env := &testEnv{
		owner:    &fakeOwner{name: "proc-1"},
		consumer: &fakeConsumer{messages: msgs, alive: true},
		sender:   sender,
		seqs:     sequence.NewRegistry(),
		stats:    &fakeStats{},
	}
	env.svc = New(Config{
		Params:   params,
		Owner:    env.owner,
		Consumer: func() (store.Consumer, error) { return env.consumer, nil },
		Sender:   sender,
		Endpoints: mapEndpoints{
			"orders": {Name: "orders", URL: "http://orders.local"},
		},
		Sequences: env.seqs,
		Stats:     env.stats,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return env
}

// countingSeq регистрирует sequence, считающую вызовы.
func countingSeq(t *testing.T, r *sequence.Registry, name string) *int {
	t.Helper()
	calls := new(int)
	err := r.Register(name, sequence.Func(func(ctx context.Context, msg *domain.Message) error {
		*calls++
		return nil
	}))
	if err != nil {
		t.Fatalf("failed to register sequence %s: %v", name, err)
	}
	return calls
}

// --- Delivery Tests ---

func TestRun_DeliversAndAcks(t *testing.T) {
	params := testParams()
	params.ReplySequence = "reply"

	sender := &fakeSender{results: []sendResult{{reply: &domain.Message{StatusCode: 200}}}}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)
	replyCalls := countingSeq(t, env.seqs, "reply")

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.calls != 1 {
		t.Errorf("expected 1 send, got %d", sender.calls)
	}
	if env.consumer.ackCalls != 1 {
		t.Errorf("expected exactly 1 ack, got %d", env.consumer.ackCalls)
	}
	if *replyCalls != 1 {
		t.Errorf("expected reply sequence once, got %d", *replyCalls)
	}
	if env.svc.attemptCount != 0 {
		t.Errorf("attempt count should reset to 0, got %d", env.svc.attemptCount)
	}
	if env.stats.delivered != 1 {
		t.Errorf("expected 1 delivered, got %d", env.stats.delivered)
	}
	if len(env.consumer.messages) != 0 {
		t.Error("message should be removed from the store")
	}
}

func TestRun_OneWayDelivery(t *testing.T) {
	params := testParams()
	params.ReplySequence = "reply"

	sender := &fakeSender{} // nil-ответ: one-way
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)
	replyCalls := countingSeq(t, env.seqs, "reply")

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.consumer.ackCalls != 1 {
		t.Errorf("expected 1 ack, got %d", env.consumer.ackCalls)
	}
	// Reply sequence не вызывается: ответа нет
	if *replyCalls != 0 {
		t.Errorf("reply sequence should not run for one-way, got %d", *replyCalls)
	}
}

func TestRun_RetriesThenSucceeds(t *testing.T) {
	params := testParams()
	params.MaxDeliverAttempts = 5
	params.FaultSequence = "fault"

	sender := &fakeSender{results: []sendResult{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
		{reply: &domain.Message{StatusCode: 200}},
	}}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)
	faultCalls := countingSeq(t, env.seqs, "fault")

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", sender.calls)
	}
	if env.consumer.ackCalls != 1 {
		t.Errorf("expected exactly 1 ack, got %d", env.consumer.ackCalls)
	}
	if *faultCalls != 2 {
		t.Errorf("expected fault sequence twice, got %d", *faultCalls)
	}
	if env.stats.failed != 2 || env.stats.retried != 2 || env.stats.delivered != 1 {
		t.Errorf("unexpected stats: %+v", env.stats)
	}
}

func TestRun_FreshCopyPerAttempt(t *testing.T) {
	params := testParams()
	params.MaxDeliverAttempts = 3
	params.NonRetryStatusCodes = []string{"404"}

	sender := &fakeSender{results: []sendResult{
		{err: errors.New("connection refused")},
		{reply: &domain.Message{StatusCode: 200}},
	}}
	original := newMsg()
	env := newTestEnv(params, []*domain.Message{original}, sender)

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 sent copies, got %d", len(sender.sent))
	}
	// Каждая попытка шлёт свежую копию, не оригинал
	for i, sent := range sender.sent {
		if sent == original {
			t.Errorf("attempt %d sent the original message, not a copy", i)
		}
		if len(sent.NonErrorStatus) != 1 || sent.NonErrorStatus[0] != 404 {
			t.Errorf("attempt %d: non-error codes not attached: %v", i, sent.NonErrorStatus)
		}
	}
	if len(original.NonErrorStatus) != 0 {
		t.Error("original message should stay untouched")
	}
}

// --- Retry limit tests ---

func TestRun_DeactivatesAfterMaxAttempts(t *testing.T) {
	params := testParams()
	params.MaxDeliverAttempts = 3
	params.DeactivateSequence = "deactivate"

	sender := &fakeSender{results: []sendResult{{err: errors.New("boom")}}}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)
	deactivateCalls := countingSeq(t, env.seqs, "deactivate")

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", sender.calls)
	}
	if !env.owner.deactivated || env.owner.deactivateCalls != 1 {
		t.Errorf("processor should be deactivated once, got %d", env.owner.deactivateCalls)
	}
	if *deactivateCalls != 1 {
		t.Errorf("expected deactivate sequence once, got %d", *deactivateCalls)
	}
	if env.consumer.ackCalls != 0 {
		t.Errorf("failed message must not be acked, got %d acks", env.consumer.ackCalls)
	}
	if len(env.consumer.messages) != 1 {
		t.Error("message should remain in the store")
	}
	if !env.svc.IsTerminated() {
		t.Error("service should be terminated")
	}
	if env.stats.deactivated != 1 || env.stats.retried != 2 {
		t.Errorf("unexpected stats: %+v", env.stats)
	}

	// Повторный вызов терминированного worker'а не трогает store
	fetches := env.consumer.fetchCalls
	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.consumer.fetchCalls != fetches {
		t.Error("terminated service should not fetch again")
	}
}

func TestRun_DropOnLimitContinues(t *testing.T) {
	params := testParams()
	params.MaxDeliverAttempts = 2
	params.DropOnLimit = true

	sender := &fakeSender{results: []sendResult{{err: errors.New("boom")}}}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", sender.calls)
	}
	// Сброс: сообщение подтверждено, процессор жив
	if env.consumer.ackCalls != 1 {
		t.Errorf("expected 1 ack for the dropped message, got %d", env.consumer.ackCalls)
	}
	if env.owner.deactivated {
		t.Error("processor should keep running after a drop")
	}
	if env.svc.IsTerminated() {
		t.Error("service should not be terminated after a drop")
	}
	if env.svc.attemptCount != 0 {
		t.Errorf("attempt count should reset after drop, got %d", env.svc.attemptCount)
	}
	if env.stats.dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", env.stats.dropped)
	}
}

// --- Non-Retryable Classification Tests ---

func TestRun_NonRetryableSendErrorAcks(t *testing.T) {
	params := testParams()
	params.NonRetryStatusCodes = []string{"404"}
	params.RetryInterval = 2 * time.Second // совпадение не должно спать
	params.FaultSequence = "fault"

	sender := &fakeSender{results: []sendResult{{err: errors.New("endpoint returned status 404 Not Found")}}}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)
	faultCalls := countingSeq(t, env.seqs, "fault")

	start := time.Now()
	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("non-retryable outcome must not sleep, took %v", elapsed)
	}
	if sender.calls != 1 {
		t.Errorf("expected a single attempt, got %d", sender.calls)
	}
	// Сообщение подтверждается и убирается из store
	if env.consumer.ackCalls != 1 {
		t.Errorf("expected 1 ack, got %d", env.consumer.ackCalls)
	}
	if *faultCalls != 0 {
		t.Errorf("fault sequence should not run, got %d", *faultCalls)
	}
}

func TestRun_NonRetryableMarkerReplyLeavesMessage(t *testing.T) {
	params := testParams()
	params.NonRetryStatusCodes = []string{"404"}
	params.RetryInterval = 2 * time.Second
	params.ReplySequence = "reply"

	sender := &fakeSender{results: []sendResult{{reply: &domain.Message{
		SenderError:  true,
		ErrorMessage: "endpoint orders returned status 404 Not Found",
		StatusCode:   404,
	}}}}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)
	replyCalls := countingSeq(t, env.seqs, "reply")

	start := time.Now()
	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("terminal outcome must not sleep, took %v", elapsed)
	}
	if sender.calls != 1 {
		t.Errorf("expected a single attempt, got %d", sender.calls)
	}
	if *replyCalls != 1 {
		t.Errorf("expected reply sequence once, got %d", *replyCalls)
	}
	// Терминальный неуспех: подтверждения нет, сообщение остаётся
	if env.consumer.ackCalls != 0 {
		t.Errorf("marker reply must not be acked, got %d", env.consumer.ackCalls)
	}
	if len(env.consumer.messages) != 1 {
		t.Error("message should remain in the store")
	}
	if env.owner.deactivated {
		t.Error("processor should stay active")
	}
}

func TestRun_ErrorStatusReplyGoesToFaultSeq(t *testing.T) {
	params := testParams()
	params.MaxDeliverAttempts = 1
	params.FaultSequence = "fault"

	sender := &fakeSender{results: []sendResult{{reply: &domain.Message{StatusCode: 500}}}}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)
	faultCalls := countingSeq(t, env.seqs, "fault")

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *faultCalls != 1 {
		t.Errorf("expected fault sequence once, got %d", *faultCalls)
	}
	if env.consumer.ackCalls != 0 {
		t.Errorf("error reply must not be acked, got %d", env.consumer.ackCalls)
	}
	// Бюджет в одну попытку исчерпан сразу
	if !env.owner.deactivated {
		t.Error("processor should be deactivated")
	}
}

// --- Endpoint Resolution Tests ---

func TestRun_NoEndpointAcksWithoutSend(t *testing.T) {
	params := testParams()
	params.TargetEndpoint = ""

	sender := &fakeSender{}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.calls != 0 {
		t.Errorf("no endpoint means no send, got %d", sender.calls)
	}
	if env.consumer.ackCalls != 1 {
		t.Errorf("unroutable message should be discarded with an ack, got %d", env.consumer.ackCalls)
	}
	if env.stats.delivered != 0 {
		t.Error("discard should not count as delivered")
	}
}

func TestRun_EndpointFromMessage(t *testing.T) {
	params := testParams()
	params.TargetEndpoint = ""

	msg := newMsg()
	msg.Endpoint = "orders"
	sender := &fakeSender{results: []sendResult{{reply: &domain.Message{StatusCode: 200}}}}
	env := newTestEnv(params, []*domain.Message{msg}, sender)

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.calls != 1 || sender.endpoints[0] != "orders" {
		t.Errorf("message endpoint should be used, calls=%d endpoints=%v", sender.calls, sender.endpoints)
	}
	if env.consumer.ackCalls != 1 {
		t.Errorf("expected 1 ack, got %d", env.consumer.ackCalls)
	}
}

func TestRun_UnresolvableEndpointDiscards(t *testing.T) {
	params := testParams()
	params.TargetEndpoint = "ghost"

	sender := &fakeSender{}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.calls != 0 {
		t.Errorf("unresolvable endpoint means no send, got %d", sender.calls)
	}
	if env.consumer.ackCalls != 1 {
		t.Errorf("expected discard ack, got %d", env.consumer.ackCalls)
	}
}

// --- Loop Mode Tests ---

func TestRun_CronModeEmptyStoreReturns(t *testing.T) {
	params := testParams()
	params.CronExpression = "* * * * *"
	params.ThrottleInterval = 5 * time.Millisecond

	env := newTestEnv(params, nil, &fakeSender{})

	start := time.Now()
	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Пустой store в cron-режиме: один fetch и сразу выход
	if env.consumer.fetchCalls != 1 {
		t.Errorf("expected a single fetch, got %d", env.consumer.fetchCalls)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("empty cron invocation should return immediately, took %v", elapsed)
	}
}

func TestRun_CronModeDrainsStore(t *testing.T) {
	params := testParams()
	params.CronExpression = "* * * * *"
	params.ThrottleInterval = 5 * time.Millisecond

	sender := &fakeSender{results: []sendResult{{reply: &domain.Message{StatusCode: 200}}}}
	env := newTestEnv(params, []*domain.Message{newMsg(), newMsg()}, sender)

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.consumer.ackCalls != 2 {
		t.Errorf("expected both messages delivered, got %d acks", env.consumer.ackCalls)
	}
	if env.consumer.fetchCalls != 3 {
		t.Errorf("expected 3 fetches (2 messages + empty), got %d", env.consumer.fetchCalls)
	}
}

func TestRun_DeactivatedProcessorSkipsFetch(t *testing.T) {
	env := newTestEnv(testParams(), []*domain.Message{newMsg()}, &fakeSender{})
	env.owner.deactivated = true

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.consumer.fetchCalls != 0 {
		t.Errorf("deactivated processor should not fetch, got %d", env.consumer.fetchCalls)
	}
	if !env.svc.IsTerminated() {
		t.Error("service should be terminated")
	}
}

func TestRun_ThrottleYieldsAfterSlice(t *testing.T) {
	params := testParams()
	params.Throttle = true
	params.Interval = 100 * time.Millisecond

	env := newTestEnv(params, nil, &fakeSender{})

	start := time.Now()
	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	// Вызов владеет потоком примерно квант, короткий интервал
	// досыпается внутри
	if elapsed < time.Second {
		t.Errorf("throttled invocation should hold the slice, took %v", elapsed)
	}
	if elapsed > 3*time.Second {
		t.Errorf("throttled invocation should yield after the slice, took %v", elapsed)
	}
	if env.consumer.fetchCalls < 2 {
		t.Errorf("expected multiple polls within the slice, got %d", env.consumer.fetchCalls)
	}
}

func TestRun_StartInactiveDelaysOnce(t *testing.T) {
	params := testParams()
	env := newTestEnv(params, nil, &fakeSender{})
	env.owner.deactivated = true

	svc := New(Config{
		Params:        params,
		Owner:         env.owner,
		Consumer:      func() (store.Consumer, error) { return env.consumer, nil },
		Sender:        env.sender,
		Endpoints:     mapEndpoints{},
		Sequences:     env.seqs,
		StartInactive: true,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	start := time.Now()
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("first invocation should wait the grace delay, took %v", elapsed)
	}

	// Пауза одноразовая
	start = time.Now()
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("second invocation should not wait, took %v", elapsed)
	}
}

// --- Failure Mode Tests ---

func TestRun_DeadConsumerSkipsSend(t *testing.T) {
	env := newTestEnv(testParams(), []*domain.Message{newMsg()}, &fakeSender{})
	env.consumer.alive = false
	env.consumer.ackErr = errors.New("consumer connection lost")

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.sender.calls != 0 {
		t.Errorf("dead consumer should skip the send, got %d", env.sender.calls)
	}
	if env.consumer.ackCalls != 0 {
		t.Errorf("ack should fail, got %d successful acks", env.consumer.ackCalls)
	}
	if len(env.consumer.messages) != 1 {
		t.Error("message should remain in the store")
	}
}

func TestRun_PanicDeactivatesProcessor(t *testing.T) {
	params := testParams()
	params.DeactivateSequence = "deactivate"

	sender := &fakeSender{panicMsg: "sender exploded"}
	env := newTestEnv(params, []*domain.Message{newMsg()}, sender)
	deactivateCalls := countingSeq(t, env.seqs, "deactivate")

	if err := env.svc.Run(context.Background()); err != nil {
		t.Fatalf("panic should not escape Run: %v", err)
	}

	if !env.owner.deactivated {
		t.Error("processor should be deactivated after a panic")
	}
	if *deactivateCalls != 1 {
		t.Errorf("expected deactivate sequence once, got %d", *deactivateCalls)
	}
	if env.consumer.ackCalls != 0 {
		t.Errorf("message must not be acked after a panic, got %d", env.consumer.ackCalls)
	}
	if env.stats.deactivated != 1 {
		t.Errorf("expected 1 deactivation, got %d", env.stats.deactivated)
	}
}

func TestRun_ConsumerInitError(t *testing.T) {
	svc := New(Config{
		Params: testParams(),
		Owner:  &fakeOwner{name: "proc-1"},
		Consumer: func() (store.Consumer, error) {
			return nil, errors.New("store is down")
		},
		Sender:    &fakeSender{},
		Endpoints: mapEndpoints{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	err := svc.Run(context.Background())
	if !errors.Is(err, ErrConsumerUnavailable) {
		t.Errorf("expected ErrConsumerUnavailable, got %v", err)
	}
}

func TestService_ResetCycle(t *testing.T) {
	env := newTestEnv(testParams(), nil, &fakeSender{})
	env.svc.attemptCount = 7
	env.svc.succeeded = true

	env.svc.resetCycle()
	env.svc.resetCycle() // идемпотентно

	if env.svc.attemptCount != 0 || env.svc.succeeded {
		t.Errorf("reset should zero the cycle state, got count=%d succeeded=%v",
			env.svc.attemptCount, env.svc.succeeded)
	}
}
