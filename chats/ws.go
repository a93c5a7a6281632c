package chats

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS layer in front of the router.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type inboundPayload struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}

// serve upgrades the request and pumps messages between the socket and the
// hub room. onText is called for inbound chat payloads; nil makes the room
// receive-only.
func serve(hub *Hub, w http.ResponseWriter, r *http.Request, room, userID string, onText func(text string)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade %s: %v", room, err)
		return
	}
	client := &Client{Send: make(chan []byte, 256), Room: room, UserID: userID}
	if !hub.Register(client) {
		conn.Close()
		return
	}
	go writePump(conn, client)
	readPump(conn, client, hub, onText)
}

func writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(conn *websocket.Conn, c *Client, hub *Hub, onText func(string)) {
	defer func() {
		hub.Unregister(c)
		conn.Close()
	}()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read %s: %v", c.Room, err)
			}
			return
		}
		if onText == nil {
			continue
		}
		var in inboundPayload
		if err := json.Unmarshal(raw, &in); err != nil {
			log.Printf("[ws] invalid payload in %s: %v", c.Room, err)
			continue
		}
		if in.Action == "chat" && in.Text != "" {
			onText(in.Text)
		}
	}
}
