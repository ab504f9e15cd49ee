package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

// WsTransport is the realtime gateway connection. Incoming envelopes are
// normalized and fanned out on Events; the channel closes when the
// connection drops.
type WsTransport struct {
	url   string
	token string

	conn     *websocket.Conn
	writeMux sync.Mutex

	events    chan models.Event
	ready     *Readiness
	done      chan struct{}
	closeOnce sync.Once
}

func NewWsTransport(url, token string) *WsTransport {
	return &WsTransport{
		url:    url,
		token:  token,
		events: make(chan models.Event, 64),
		ready:  NewReadiness(),
		done:   make(chan struct{}),
	}
}

func (t *WsTransport) Connect(ctx context.Context) error {
	header := http.Header{}
	if len(t.token) > 0 {
		header.Set("Authorization", "Bearer "+t.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, header)
	if err != nil {
		err = fmt.Errorf("unable to connect realtime gateway: %v", err)
		t.ready.Resolve(err)
		return err
	}

	t.conn = conn
	t.ready.Resolve(nil)
	go t.readPump()
	return nil
}

// Ready resolves once the gateway connection is established (or failed).
func (t *WsTransport) Ready() *Readiness {
	return t.ready
}

func (t *WsTransport) readPump() {
	defer close(t.events)

	for {
		_, packet, err := t.conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("Realtime gateway connection was closed...")
			return
		}

		var command models.UnifiedCommand
		if err := jsoniter.Unmarshal(packet, &command); err != nil {
			log.Warn().Err(err).Msg("Unable to unmarshal a realtime packet, skipped it.")
			continue
		}
		if command.Action == "error" {
			log.Warn().Str("message", command.Message).Msg("Realtime gateway replied an error.")
			continue
		}

		event, ok := NormalizeEvent(command)
		if !ok {
			log.Debug().Str("action", command.Action).Msg("Skipped an unrecognized realtime event.")
			continue
		}
		// The consumer may be gone already; never block on a full buffer.
		select {
		case t.events <- event:
		case <-t.done:
			return
		}
	}
}

func (t *WsTransport) Publish(command models.UnifiedCommand) error {
	if t.conn == nil {
		return fmt.Errorf("realtime gateway is not connected")
	}

	t.writeMux.Lock()
	defer t.writeMux.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, command.Marshal()); err != nil {
		return fmt.Errorf("unable to publish to realtime gateway: %v", err)
	}
	return nil
}

func (t *WsTransport) JoinRoom(room string) error {
	return t.Publish(models.UnifiedCommand{
		Action:  models.EventRoomJoin,
		Payload: map[string]any{"room": room},
	})
}

func (t *WsTransport) LeaveRoom(room string) error {
	return t.Publish(models.UnifiedCommand{
		Action:  models.EventRoomLeave,
		Payload: map[string]any{"room": room},
	})
}

func (t *WsTransport) Events() <-chan models.Event {
	return t.events
}

func (t *WsTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
