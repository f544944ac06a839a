// Package realtime pushes confirmed donations to connected dashboards over
// websockets.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
)

const (
	MessageTotal             = "total"
	MessageDonationConfirmed = "donation_confirmed"

	sendBuffer   = 16
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Message is the JSON frame sent to clients.
type Message struct {
	Type      string           `json:"type"`
	Donation  *models.Donation `json:"donation,omitempty"`
	Total     *decimal.Decimal `json:"total,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// TotalFunc reports the current donation total, sent to each new client.
type TotalFunc func(ctx context.Context) (decimal.Decimal, error)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans donation events out to websocket clients. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	upgrader   websocket.Upgrader
	total      TotalFunc
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

// NewHub returns a Hub accepting connections from allowedOrigins ("*" allows
// any origin). total may be nil.
func NewHub(allowedOrigins []string, total TotalFunc) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		total:      total,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Run services registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			log.Printf("Websocket client connected, %d connected", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				log.Printf("Websocket client disconnected, %d connected", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer
					log.Printf("Dropping websocket client with a full send buffer")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
}

// DonationConfirmed queues d for broadcast. It never blocks the caller.
func (h *Hub) DonationConfirmed(d models.Donation) {
	data, err := json.Marshal(Message{Type: MessageDonationConfirmed, Donation: &d, Timestamp: time.Now().Unix()})
	if err != nil {
		log.Printf("Error marshaling donation %s for broadcast: %v", d.Reference, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("Broadcast queue full, donation %s not pushed to live clients", d.Reference)
	}
}

// ServeHTTP upgrades the request and streams messages until the client goes
// away or the hub stops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to websocket: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if initial := h.initialMessage(r.Context()); initial != nil {
		c.send <- initial
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump()

	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) initialMessage(ctx context.Context) []byte {
	if h.total == nil {
		return nil
	}
	total, err := h.total(ctx)
	if err != nil {
		log.Printf("Error getting initial total for websocket client: %v", err)
		return nil
	}
	data, err := json.Marshal(Message{Type: MessageTotal, Total: &total, Timestamp: time.Now().Unix()})
	if err != nil {
		return nil
	}
	return data
}

// readPump discards client frames; it only exists to notice disconnects and
// to process control frames.
func (c *client) readPump() {
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Websocket error: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
