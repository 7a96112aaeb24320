package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/airchains-network/lottery-dapp/lottery"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	EventStatus       = "status"
	EventNotification = "notification"
	EventDismiss      = "dismiss"
	EventState        = "state"
)

// Event is one message pushed to front ends
type Event struct {
	Type         string                `json:"type"`
	Status       *lottery.Status       `json:"status,omitempty"`
	Notification *lottery.Notification `json:"notification,omitempty"`
	State        *StateView            `json:"state,omitempty"`
}

// Hub fans display events out to every connected front end. It is the
// lottery.Display of the served application and remembers the current
// status line and open notification for late joiners.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	log        *logrus.Logger

	mu           sync.RWMutex
	status       lottery.Status
	notification *lottery.Notification
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves register, unregister and broadcast until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			for _, msg := range h.replay() {
				client.send <- msg
			}
			h.log.Infof("New WebSocket client connected. Total clients: %d", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Infof("WebSocket client disconnected. Total clients: %d", len(h.clients))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

func (h *Hub) publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Errorf("Failed to marshal %s event: %v", e.Type, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warnf("Dropping %s event, broadcast queue full", e.Type)
	}
}

// replay is what a newly connected client needs to catch up
func (h *Hub) replay() [][]byte {
	h.mu.RLock()
	status := h.status
	note := h.notification
	h.mu.RUnlock()

	var out [][]byte
	if data, err := json.Marshal(Event{Type: EventStatus, Status: &status}); err == nil {
		out = append(out, data)
	}
	if note != nil {
		if data, err := json.Marshal(Event{Type: EventNotification, Notification: note}); err == nil {
			out = append(out, data)
		}
	}
	return out
}

func (h *Hub) SetStatus(s lottery.Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
	h.publish(Event{Type: EventStatus, Status: &s})
}

// Notify replaces any open notification; only one is shown at a time
func (h *Hub) Notify(n lottery.Notification) {
	h.mu.Lock()
	h.notification = &n
	h.mu.Unlock()
	h.publish(Event{Type: EventNotification, Notification: &n})
}

func (h *Hub) Dismiss() {
	h.mu.Lock()
	open := h.notification != nil
	h.notification = nil
	h.mu.Unlock()
	if open {
		h.publish(Event{Type: EventDismiss})
	}
}

// PublishState pushes a fresh state view
func (h *Hub) PublishState(v *StateView) {
	h.publish(Event{Type: EventState, State: v})
}

// Current returns the status line and open notification
func (h *Hub) Current() (lottery.Status, *lottery.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status, h.notification
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (h *Hub) handleWebSocket(c *gin.Context, checkOrigin func(r *http.Request) bool) {
	u := upgrader
	u.CheckOrigin = checkOrigin
	conn, err := u.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("Failed to upgrade connection to WebSocket: %v", err)
		return
	}

	client := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump handles the few commands a front end can send: dismissing the
// open notification
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("WebSocket read error: %v", err)
			}
			break
		}

		var cmd struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.log.Errorf("Failed to parse WebSocket message: %v", err)
			continue
		}
		switch cmd.Type {
		case EventDismiss:
			c.hub.Dismiss()
		default:
			c.hub.log.Debugf("Ignoring WebSocket command %q", cmd.Type)
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
