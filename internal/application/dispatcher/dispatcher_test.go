package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-approval/internal/domain/event"
)

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func newEvent() *event.Event {
	return event.NewEvent(event.TypeRequestSubmitted, "req-1", "user-1", nil)
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher(WithLogger(&mockLogger{}))

	var order []string
	d.Subscribe(event.TypeRequestSubmitted, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(event.TypeRequestSubmitted, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(event.TypeRequestRejected, "other", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "other")
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), newEvent()))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatch_StopsAtFirstError(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("boom")

	called := false
	d.Subscribe(event.TypeRequestSubmitted, "failing", func(ctx context.Context, evt *event.Event) error {
		return boom
	})
	d.Subscribe(event.TypeRequestSubmitted, "after", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(context.Background(), newEvent())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.False(t, called)
}

func TestDispatch_RecoversPanic(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	d.Subscribe(event.TypeRequestSubmitted, "panicky", func(ctx context.Context, evt *event.Event) error {
		panic("unexpected")
	})

	err := d.Dispatch(context.Background(), newEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
	assert.Contains(t, logger.errors, "Handler panic recovered")
}

func TestDispatchAsync_CloseWaitsForHandlers(t *testing.T) {
	d := NewDispatcher()

	var count atomic.Int32
	for i := 0; i < 3; i++ {
		d.Subscribe(event.TypeRequestSubmitted, "counter", func(ctx context.Context, evt *event.Event) error {
			count.Add(1)
			return nil
		})
	}

	d.DispatchAsync(context.Background(), newEvent())
	require.NoError(t, d.Close())

	assert.Equal(t, int32(3), count.Load())
}

func TestClose(t *testing.T) {
	d := NewDispatcher()

	require.NoError(t, d.Close())
	assert.Error(t, d.Close())
	assert.ErrorIs(t, d.Dispatch(context.Background(), newEvent()), ErrClosed)
}

func TestListHandlers(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(event.TypeRequestApproved, "notify", func(ctx context.Context, evt *event.Event) error { return nil })

	handlers := d.ListHandlers(event.TypeRequestApproved)

	require.Len(t, handlers, 1)
	assert.Equal(t, "notify", handlers[0].Name)
	assert.Nil(t, handlers[0].Handler)
	assert.Empty(t, d.ListHandlers(event.TypeRequestRejected))
}

func TestConcurrentSubscribeAndDispatch(t *testing.T) {
	d := NewDispatcher()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Subscribe(event.TypeRequestAdvanced, "h", func(ctx context.Context, evt *event.Event) error { return nil })
		}()
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestAdvanced, "req-1", "u", nil))
		}()
	}
	wg.Wait()

	assert.Len(t, d.ListHandlers(event.TypeRequestAdvanced), 10)
}
