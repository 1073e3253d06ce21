// Package events provides the in-process event bus and emitter for ledger changes.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	StockCreated       EventType = "STOCK_CREATED"
	StockUpdated       EventType = "STOCK_UPDATED"
	StockDeleted       EventType = "STOCK_DELETED"
	PriceUpdated       EventType = "PRICE_UPDATED"
	TransactionCreated EventType = "TRANSACTION_CREATED"
	TransactionUpdated EventType = "TRANSACTION_UPDATED"
	TransactionDeleted EventType = "TRANSACTION_DELETED"
	PositionChanged    EventType = "POSITION_CHANGED"
	DividendCreated    EventType = "DIVIDEND_CREATED"
	DividendUpdated    EventType = "DIVIDEND_UPDATED"
	DividendDeleted    EventType = "DIVIDEND_DELETED"

	// Maintenance events
	PositionsReconciled EventType = "POSITIONS_RECONCILED"
	BackupCompleted     EventType = "BACKUP_COMPLETED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id" msgpack:"id"`
	Type      EventType              `json:"type" msgpack:"type"`
	Timestamp time.Time              `json:"timestamp" msgpack:"timestamp"`
	Module    string                 `json:"module" msgpack:"module"`
	Data      map[string]interface{} `json:"data" msgpack:"data"`
}

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager publishing to bus
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the bus events are published on
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit emits an event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	if m.bus != nil {
		m.bus.Publish(event)
	}
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{"error": err.Error()}
	for k, v := range context {
		data[k] = v
	}
	m.Emit(ErrorOccurred, module, data)
}
