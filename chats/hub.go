package chats

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"unihive/metrics"
	"unihive/models"
)

// Client is one websocket connection subscribed to a room.
type Client struct {
	Send   chan []byte
	Room   string
	UserID string
}

type broadcastMsg struct {
	Room string
	Data []byte
}

// Hub fans messages out to the clients of a room. All room state is owned
// by the Run goroutine.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	stop       chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func ChatRoom(chatID string) string { return "chat:" + chatID }

func HiveRoom(h models.HiveCategory) string { return "hive:" + string(h) }

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true
			metrics.WebsocketClients.Inc()

		case c := <-h.unregister:
			h.drop(c)

		case m := <-h.broadcast:
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					// slow consumer
					h.drop(c)
				}
			}

		case <-h.stop:
			for _, conns := range h.rooms {
				for c := range conns {
					h.drop(c)
				}
			}
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	conns := h.rooms[c.Room]
	if !conns[c] {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.rooms, c.Room)
	}
	close(c.Send)
	metrics.WebsocketClients.Dec()
}

// Stop closes every client and ends Run. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Register returns false when the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

func (h *Hub) Broadcast(room string, data []byte) {
	select {
	case h.broadcast <- broadcastMsg{Room: room, Data: data}:
	case <-h.stop:
	}
}

func (h *Hub) BroadcastJSON(room string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[hub] marshal for %s: %v", room, err)
		return
	}
	h.Broadcast(room, data)
}

// hiveUpdate is what open hive lists receive; they refetch on any event.
type hiveUpdate struct {
	Type string `json:"type"`
	models.HiveEvent
}

// PushHiveEvent forwards a hive event to the hive's websocket room.
func (h *Hub) PushHiveEvent(evt models.HiveEvent) {
	h.BroadcastJSON(HiveRoom(evt.Hive), hiveUpdate{Type: "hive-update", HiveEvent: evt})
}
