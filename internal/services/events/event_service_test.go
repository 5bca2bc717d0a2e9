package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/interfaces"
)

func TestSubscribe_NilHandler(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	err := svc.Subscribe(interfaces.EventJobCreated, nil)
	assert.Error(t, err)
}

func TestPublishSync_DeliversToAllSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var count atomic.Int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		count.Add(1)
		return nil
	}

	require.NoError(t, svc.Subscribe(interfaces.EventJobCompleted, handler))
	require.NoError(t, svc.Subscribe(interfaces.EventJobCompleted, handler))

	err := svc.PublishSync(context.Background(), interfaces.Event{
		ID:   "evt_1",
		Type: interfaces.EventJobCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), count.Load())
}

func TestPublishSync_CollectsHandlerErrors(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	require.NoError(t, svc.Subscribe(interfaces.EventJobFailed, func(ctx context.Context, event interfaces.Event) error {
		return fmt.Errorf("handler blew up")
	}))

	err := svc.PublishSync(context.Background(), interfaces.Event{
		ID:   "evt_2",
		Type: interfaces.EventJobFailed,
	})
	assert.Error(t, err)
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	err := svc.Publish(context.Background(), interfaces.Event{
		ID:   "evt_3",
		Type: interfaces.EventBatchStarted,
	})
	assert.NoError(t, err)
}

func TestPublish_Async(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	var got interfaces.Event

	require.NoError(t, svc.Subscribe(interfaces.EventBatchCompleted, func(ctx context.Context, event interfaces.Event) error {
		got = event
		wg.Done()
		return nil
	}))

	err := svc.Publish(context.Background(), interfaces.Event{
		ID:      "evt_4",
		Type:    interfaces.EventBatchCompleted,
		Payload: "batch_123",
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, "batch_123", got.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestClose_ClearsSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var count atomic.Int32
	require.NoError(t, svc.Subscribe(interfaces.EventJobStarted, func(ctx context.Context, event interfaces.Event) error {
		count.Add(1)
		return nil
	}))

	require.NoError(t, svc.Close())

	err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobStarted})
	require.NoError(t, err)
	assert.Equal(t, int32(0), count.Load())
}
