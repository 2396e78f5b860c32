package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitGroup(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for events")
	}
}

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var received Event
	var wg sync.WaitGroup
	wg.Add(1)

	unsub := bus.Subscribe(ExecutionStarted, func(e Event) {
		received = e
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: ExecutionStarted, Data: ExecutionStartedData{Command: "cache:clear"}})
	waitGroup(t, &wg)

	assert.Equal(t, ExecutionStarted, received.Type)
	assert.Equal(t, "cache:clear", received.Data.(ExecutionStartedData).Command)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	var wg sync.WaitGroup
	wg.Add(3)

	unsub := bus.SubscribeAll(func(e Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: ExecutionStarted})
	bus.Publish(Event{Type: ExecutionCompleted})
	bus.Publish(Event{Type: CatalogReloaded})
	waitGroup(t, &wg)

	assert.Equal(t, int32(3), atomic.LoadInt32(&count))
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var typed, global int32
	unsub := bus.Subscribe(ExecutionFailed, func(Event) { atomic.AddInt32(&typed, 1) })
	unsubAll := bus.SubscribeAll(func(Event) { atomic.AddInt32(&global, 1) })

	bus.PublishSync(Event{Type: ExecutionFailed})
	unsub()
	unsubAll()
	bus.PublishSync(Event{Type: ExecutionFailed})

	assert.Equal(t, int32(1), atomic.LoadInt32(&typed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&global))
}

func TestBus_EventTypeFiltering(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var completed, failed int32
	bus.Subscribe(ExecutionCompleted, func(Event) { atomic.AddInt32(&completed, 1) })
	bus.Subscribe(ExecutionFailed, func(Event) { atomic.AddInt32(&failed, 1) })

	bus.PublishSync(Event{Type: ExecutionCompleted})
	bus.PublishSync(Event{Type: ExecutionCompleted})
	bus.PublishSync(Event{Type: ExecutionFailed})

	assert.Equal(t, int32(2), completed)
	assert.Equal(t, int32(1), failed)
}

func TestBus_ClosedBusIsInert(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	var count int32
	unsub := bus.Subscribe(ExecutionStarted, func(Event) { atomic.AddInt32(&count, 1) })
	unsub()
	bus.PublishSync(Event{Type: ExecutionStarted})
	bus.Publish(Event{Type: ExecutionStarted})
	assert.Zero(t, count)
}

func TestBus_Messages(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Messages(ctx)
	require.NoError(t, err)

	bus.PublishSync(Event{Type: ExecutionFailed, Data: ExecutionFinishedData{Command: "backup:run", ReturnCode: 2}})

	select {
	case msg := <-msgs:
		msg.Ack()
		assert.Equal(t, ExecutionFailed, TypeOf(msg))

		var decoded struct {
			Type EventType             `json:"type"`
			Data ExecutionFinishedData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, "backup:run", decoded.Data.Command)
		assert.Equal(t, 2, decoded.Data.ReturnCode)
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for mirrored message")
	}
}

func TestGlobalBus_Reset(t *testing.T) {
	var count int32
	Subscribe(ExecutionStarted, func(Event) { atomic.AddInt32(&count, 1) })

	PublishSync(Event{Type: ExecutionStarted})
	Reset()
	PublishSync(Event{Type: ExecutionStarted})

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestBus_ConcurrentSubscribePublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(ExecutionCompleted, func(Event) {})
			defer unsub()
			for j := 0; j < 10; j++ {
				bus.Publish(Event{Type: ExecutionCompleted})
			}
		}()
	}
	wg.Wait()
}
