package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FiltersByType(t *testing.T) {
	bus := NewBus()

	var all, onlyDividends []EventType
	bus.Subscribe(func(e *Event) { all = append(all, e.Type) })
	bus.Subscribe(func(e *Event) { onlyDividends = append(onlyDividends, e.Type) }, DividendCreated, DividendDeleted)

	bus.Publish(&Event{Type: TransactionCreated})
	bus.Publish(&Event{Type: DividendCreated})

	assert.Equal(t, []EventType{TransactionCreated, DividendCreated}, all)
	assert.Equal(t, []EventType{DividendCreated}, onlyDividends)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0
	unsubscribe := bus.Subscribe(func(e *Event) { count++ })
	assert.Equal(t, 1, bus.SubscriberCount())

	bus.Publish(&Event{Type: StockCreated})
	unsubscribe()
	bus.Publish(&Event{Type: StockCreated})

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	received := 0
	bus.Subscribe(func(e *Event) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(&Event{Type: PriceUpdated})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, received)
}

func TestManager_EmitPublishes(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var got *Event
	bus.Subscribe(func(e *Event) { got = e })

	manager.Emit(TransactionCreated, "transactions", map[string]interface{}{"stock_code": "0700.HK"})

	require.NotNil(t, got)
	assert.Equal(t, TransactionCreated, got.Type)
	assert.Equal(t, "transactions", got.Module)
	assert.Equal(t, "0700.HK", got.Data["stock_code"])
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var got *Event
	bus.Subscribe(func(e *Event) { got = e }, ErrorOccurred)

	manager.EmitError("reliability", errors.New("disk full"), map[string]interface{}{"job": "backup"})

	require.NotNil(t, got)
	assert.Equal(t, "disk full", got.Data["error"])
	assert.Equal(t, "backup", got.Data["job"])
}
