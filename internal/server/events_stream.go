package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"

	"github.com/aristath/stockledger/internal/events"
)

const (
	streamBuffer      = 100
	streamWriteWait   = 5 * time.Second
	streamPingEvery   = 30 * time.Second
	encodingMsgpack   = "msgpack"
	connectedEvent    = "CONNECTED"
)

// EventsStreamHandler pushes ledger events to websocket clients.
// Frames are JSON text by default or msgpack binary with ?encoding=msgpack;
// ?types=A,B limits the stream to the listed event types.
type EventsStreamHandler struct {
	eventBus *events.Bus
	origins  []string
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, origins []string, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		origins:  origins,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	binary := r.URL.Query().Get("encoding") == encodingMsgpack
	types := parseTypes(r.URL.Query().Get("types"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients never send; CloseRead handles control frames and cancels ctx on disconnect.
	ctx := conn.CloseRead(r.Context())

	eventChan := make(chan *events.Event, streamBuffer)
	unsubscribe := h.eventBus.Subscribe(func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().Str("event_type", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}, types...)
	defer unsubscribe()

	h.log.Info().Bool("msgpack", binary).Int("types", len(types)).Msg("Client connected to event stream")

	hello := &events.Event{Type: connectedEvent, Module: "events_stream", Timestamp: time.Now().UTC()}
	if err := h.write(ctx, conn, binary, hello); err != nil {
		return
	}

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			if err := h.write(ctx, conn, binary, event); err != nil {
				h.log.Debug().Err(err).Msg("Event stream write failed")
				return
			}

		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Event stream ping failed")
				return
			}
		}
	}
}

func (h *EventsStreamHandler) write(ctx context.Context, conn *websocket.Conn, binary bool, event *events.Event) error {
	payload, kind, err := encodeEvent(event, binary)
	if err != nil {
		h.log.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to encode event")
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
	defer cancel()
	return conn.Write(writeCtx, kind, payload)
}

func encodeEvent(event *events.Event, binary bool) ([]byte, websocket.MessageType, error) {
	if binary {
		data, err := msgpack.Marshal(event)
		return data, websocket.MessageBinary, err
	}
	data, err := json.Marshal(event)
	return data, websocket.MessageText, err
}

// parseTypes splits a comma separated filter; nil means every type
func parseTypes(raw string) []events.EventType {
	var out []events.EventType
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, events.EventType(strings.ToUpper(t)))
		}
	}
	return out
}
