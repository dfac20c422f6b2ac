package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hoshinonyaruko/snake-in-web/engine"
	"github.com/hoshinonyaruko/snake-in-web/input"
	"github.com/hoshinonyaruko/snake-in-web/structs"
	"github.com/rs/zerolog/log"
)

// Message types, value of the "t" field.
//
//	client -> server: "d" direction {"t":"d","d":"up"}
//	                  "w" swipe     {"t":"w","x":-3,"y":40}
//	                  "p" toggle    {"t":"p"}
//	                  "r" restart   {"t":"r"}
//	server -> client: "s" state     {"t":"s", ...snapshot}
const (
	MsgDirection = "d"
	MsgSwipe     = "w"
	MsgToggle    = "p"
	MsgRestart   = "r"
	MsgState     = "s"
)

// 每个客户端最多缓存的帧数，写不过来就丢帧
const sendBuffer = 16

type ClientMessage struct {
	Type      string  `json:"t"`
	Direction string  `json:"d,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
}

type StateMsg struct {
	Type string `json:"t"`
	structs.Snapshot
}

type client struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
}

// Hub pushes snapshots to every connected WebSocket client.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func encodeState(snap structs.Snapshot) ([]byte, error) {
	return json.Marshal(StateMsg{Type: MsgState, Snapshot: snap})
}

// Present implements engine.Presenter. Slow clients lose frames.
func (h *Hub) Present(snap structs.Snapshot) {
	data, err := encodeState(snap)
	if err != nil {
		log.Error().Err(err).Msg("encode state")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.ws.Close()
	}
}

func (h *Hub) Handler(eng *engine.Engine) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ws, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("ws upgrade")
			return
		}

		c := &client{id: uuid.NewString(), ws: ws, send: make(chan []byte, sendBuffer)}
		if data, err := encodeState(eng.Snapshot()); err == nil {
			c.send <- data
		}
		h.add(c)
		log.Info().Str("client", c.id).Msg("ws connected")

		go c.writeLoop()
		c.readLoop(eng)

		h.remove(c)
		ws.Close()
		log.Info().Str("client", c.id).Msg("ws disconnected")
	}
}

func (c *client) writeLoop() {
	for data := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Str("client", c.id).Msg("ws write")
			return
		}
	}
}

// readLoop 读取玩家输入，直到连接断开
func (c *client) readLoop(eng *engine.Engine) {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("client", c.id).Msg("ws read")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Str("client", c.id).Msg("bad message")
			continue
		}

		switch msg.Type {
		case MsgDirection:
			if d, ok := input.FromKey(msg.Direction); ok {
				eng.RequestDirection(d)
			}
		case MsgSwipe:
			if d, ok := input.FromSwipe(msg.X, msg.Y); ok {
				eng.RequestDirection(d)
			}
		case MsgToggle:
			eng.Toggle()
		case MsgRestart:
			eng.Restart()
		}
	}
}
