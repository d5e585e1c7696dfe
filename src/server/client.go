package server

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	wildcard       = "*"
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub  *PublishServer
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	all      bool
	symbols  map[string]struct{}
	sendLock sync.Mutex
	closed   bool
}

func newClient(hub *PublishServer, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		symbols: make(map[string]struct{}),
	}
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// subscribe adds symbols; an empty list or "*" means every symbol.
func (c *Client) subscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(symbols) == 0 {
		c.all = true
		return
	}
	for _, sym := range symbols {
		if sym == wildcard {
			c.all = true
			continue
		}
		c.symbols[strings.ToUpper(sym)] = struct{}{}
	}
}

// unsubscribe removes symbols; an empty list or "*" removes everything.
func (c *Client) unsubscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(symbols) == 0 {
		c.all = false
		c.symbols = make(map[string]struct{})
		return
	}
	for _, sym := range symbols {
		if sym == wildcard {
			c.all = false
			continue
		}
		delete(c.symbols, strings.ToUpper(sym))
	}
}

func (c *Client) wants(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.all {
		return true
	}
	_, ok := c.symbols[symbol]
	return ok
}

func (c *Client) topics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.symbols)+1)
	if c.all {
		out = append(out, wildcard)
	}
	for sym := range c.symbols {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (c *Client) describe() string {
	return strings.Join(c.topics(), ",")
}

// -----------------------------------------------------------------------------

// trySend queues a direct reply. Replies race with the hub closing send on
// disconnect, hence the lock and the closed flag.
func (c *Client) trySend(payload []byte) {
	c.sendLock.Lock()
	defer c.sendLock.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Debug("WebSocket error: %v", err)
			}
			break
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.Logger.Debug("Write error: %v", err)
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
