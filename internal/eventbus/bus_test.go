package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, signal domain.ChangeSignal) {
	m.Called(ctx, signal)
}

func startBus(t *testing.T, eventType EventType, consumer Consumer) EventBus {
	t.Helper()
	bus := New(logger.NewNop(), &Config{ChannelBuffer: 8})
	require.NoError(t, bus.Subscribe(eventType, consumer))
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	})
	return bus
}

func TestEventBus_DeliversToConsumer(t *testing.T) {
	got := make(chan Event, 1)
	bus := startBus(t, EventTypeDataChanged, ConsumerFunc(func(ctx context.Context, e Event) error {
		got <- e
		return nil
	}))

	event := NewEvent(EventTypeDataChanged, DataChangedEvent{Categories: []domain.Category{domain.CategoryLoans}})
	require.NoError(t, bus.Publish(context.Background(), event))

	select {
	case e := <-got:
		assert.Equal(t, event.ID, e.ID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventBus_FailedConsumeIsNotRedelivered(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	bus := startBus(t, EventTypeDataChanged, ConsumerFunc(func(ctx context.Context, e Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("backend down")
	}))

	require.NoError(t, bus.Publish(context.Background(), NewEvent(EventTypeDataChanged, DataChangedEvent{})))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestEventBus_PublishWithoutSubscriberIsNoop(t *testing.T) {
	bus := New(nil, nil)
	assert.NoError(t, bus.Publish(context.Background(), NewEvent(EventTypeVersionBumped, nil)))
}

func TestEventBus_PublishDropsWhenFull(t *testing.T) {
	bus := New(logger.NewNop(), &Config{ChannelBuffer: 1})
	require.NoError(t, bus.Subscribe(EventTypeDataChanged, ConsumerFunc(func(context.Context, Event) error { return nil })))

	// Not started: nothing drains the channel.
	assert.NoError(t, bus.Publish(context.Background(), NewEvent(EventTypeDataChanged, DataChangedEvent{})))
	assert.NoError(t, bus.Publish(context.Background(), NewEvent(EventTypeDataChanged, DataChangedEvent{})))
}

func TestRefetchConsumer_OnlyChangedCategories(t *testing.T) {
	rc := NewRefetchConsumer(logger.NewNop())

	var loans, deposits int
	rc.Register(domain.CategoryLoans, func(context.Context) error { loans++; return nil })
	rc.Register(domain.CategoryDeposits, func(context.Context) error { deposits++; return nil })

	err := rc.Consume(context.Background(), NewEvent(EventTypeDataChanged, DataChangedEvent{
		Categories: []domain.Category{domain.CategoryLoans},
	}))

	require.NoError(t, err)
	assert.Equal(t, 1, loans)
	assert.Equal(t, 0, deposits)
}

func TestRefetchConsumer_AllRefetchesEverything(t *testing.T) {
	rc := NewRefetchConsumer(nil)

	var calls int
	for _, c := range domain.AllCategories {
		rc.Register(c, func(context.Context) error { calls++; return nil })
	}

	err := rc.Consume(context.Background(), NewEvent(EventTypeDataChanged, DataChangedEvent{All: true}))

	require.NoError(t, err)
	assert.Equal(t, len(domain.AllCategories), calls)
}

func TestRefetchConsumer_CombinesErrors(t *testing.T) {
	rc := NewRefetchConsumer(nil)
	errA := errors.New("a")
	errB := errors.New("b")
	rc.Register(domain.CategoryLoans, func(context.Context) error { return errA })
	rc.Register(domain.CategoryLoans, func(context.Context) error { return errB })

	err := rc.Consume(context.Background(), NewEvent(EventTypeDataChanged, DataChangedEvent{
		Categories: []domain.Category{domain.CategoryLoans},
	}))

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestRefetchConsumer_RejectsWrongPayload(t *testing.T) {
	rc := NewRefetchConsumer(nil)
	assert.Error(t, rc.Consume(context.Background(), NewEvent(EventTypeDataChanged, "nope")))
}

func TestBroadcastConsumer(t *testing.T) {
	b := new(MockBroadcaster)
	signal := domain.ChangeSignal{Categories: []domain.Category{domain.CategoryTransactions}}
	b.On("Broadcast", mock.Anything, signal).Return().Once()

	err := NewBroadcastConsumer(b, 0).Consume(context.Background(), NewEvent(EventTypeVersionBumped, VersionBumpedEvent{Signal: signal}))

	require.NoError(t, err)
	b.AssertExpectations(t)
}
