// Package livesync pushes cart and session changes to every open tab of a
// storefront session over websockets.
package livesync

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"musa/rdx"
)

// Channel is the pub/sub channel instances use to share events.
const Channel = "livesync"

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	Room string
}

// Event is the frame sent to browsers.
type Event struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

type broadcastMsg struct {
	Room string          `json:"room"`
	Data json.RawMessage `json:"data"`
}

// Hub keeps one room per session id. Run owns the room map; ClientCount
// reads it under mu.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex

	// Bus, when set, carries events between instances. Events published
	// here reach local clients through Relay.
	Bus rdx.Store
}

func NewHub(bus rdx.Store) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		quit:       make(chan struct{}),
		Bus:        bus,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					h.drop(c)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for _, conns := range h.rooms {
				for c := range conns {
					h.drop(c)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// drop must be called with mu held.
func (h *Hub) drop(c *Client) {
	conns := h.rooms[c.Room]
	if !conns[c] {
		return
	}
	delete(conns, c)
	close(c.Send)
	if len(conns) == 0 {
		delete(h.rooms, c.Room)
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) deliver(ctx context.Context, m broadcastMsg) {
	select {
	case h.broadcast <- m:
	case <-h.quit:
	case <-ctx.Done():
	}
}

func (h *Hub) ClientCount(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Publish sends {action, payload} to every tab of a session. With a Bus
// the event goes through pub/sub so other instances see it too; if the
// bus fails the event is still delivered locally.
func (h *Hub) Publish(ctx context.Context, sessionID, action string, payload any) {
	if sessionID == "" {
		return
	}
	data, err := json.Marshal(Event{Action: action, Payload: payload})
	if err != nil {
		log.Printf("livesync: encode %s: %v", action, err)
		return
	}
	m := broadcastMsg{Room: sessionID, Data: data}
	if h.Bus != nil {
		frame, err := json.Marshal(m)
		if err == nil {
			err = h.Bus.Publish(ctx, Channel, frame)
		}
		if err == nil {
			return
		}
		log.Printf("livesync: publish %s: %v", action, err)
	}
	h.deliver(ctx, m)
}

// Relay feeds events from the Bus into the local hub until ctx is done.
func (h *Hub) Relay(ctx context.Context) error {
	if h.Bus == nil {
		return nil
	}
	msgs, stop, err := h.Bus.Subscribe(ctx, Channel)
	if err != nil {
		return err
	}
	defer stop()
	for {
		select {
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			var m broadcastMsg
			if err := json.Unmarshal(raw, &m); err != nil || m.Room == "" {
				log.Printf("livesync: bad frame: %v", err)
				continue
			}
			h.deliver(ctx, m)
		case <-ctx.Done():
			return nil
		case <-h.quit:
			return nil
		}
	}
}
