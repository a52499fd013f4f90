package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/FrameScene/internal/events"
)

const (
	// Default number of recent events sent on connection
	defaultRecentEvents = 50

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The editor UI is served from another origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamFilter selects which events a client receives.
type streamFilter struct {
	prefixes []string
	recent   int
}

// parseStreamFilter reads ?prefix=scene.,history. and ?recent=N.
func parseStreamFilter(r *http.Request) streamFilter {
	f := streamFilter{recent: defaultRecentEvents}
	if v := r.URL.Query().Get("prefix"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				f.prefixes = append(f.prefixes, p)
			}
		}
	}
	if v := r.URL.Query().Get("recent"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.recent = n
		}
	}
	return f
}

type wsClient struct {
	conn   *websocket.Conn
	sub    events.Subscriber
	filter streamFilter
}

func (c *wsClient) close() {
	events.Unsubscribe(c.sub)
	c.conn.Close()
}

func (c *wsClient) send(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop handles pongs and close messages. It closes done when the peer
// goes away.
func (c *wsClient) readLoop(done chan<- struct{}) {
	defer close(done)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// wsEventsHandler streams editor events: first the recent ones from the
// ring buffer, then live events as they are emitted.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	filter := parseStreamFilter(r)
	c := &wsClient{conn: conn, sub: events.Subscribe(filter.prefixes...), filter: filter}

	if c.filter.recent > 0 {
		for _, e := range events.RecentEvents(c.filter.recent, c.filter.prefixes...) {
			if err := c.send(e); err != nil {
				log.Printf("ws write recent event failed: %v", err)
				c.close()
				return
			}
		}
	}

	done := make(chan struct{})
	go c.readLoop(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			c.close()
			return

		case e, ok := <-c.sub:
			if !ok {
				// Server shutting down.
				conn.Close()
				return
			}
			if err := c.send(e); err != nil {
				log.Printf("ws write event failed: %v", err)
				c.close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
