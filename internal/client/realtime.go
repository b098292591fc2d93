package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is a record change notification from the backend's realtime feed.
type Event struct {
	Collection string          `json:"collection"`
	Action     string          `json:"action"`
	Record     json.RawMessage `json:"record"`
}

// Subscription is a live realtime connection for one collection.
type Subscription struct {
	conn *websocket.Conn

	closeOnce sync.Once
	done      chan struct{}
}

// Subscribe opens a realtime connection for a collection and invokes handler
// for every change event until Unsubscribe is called or the connection drops.
// There is no automatic reconnect; callers resubscribe if they care.
func (c *Client) Subscribe(ctx context.Context, collection string, handler func(Event)) (*Subscription, error) {
	wsURL, err := c.realtimeURL(collection)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	sub := &Subscription{conn: conn, done: make(chan struct{})}

	go func() {
		defer sub.Unsubscribe()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-sub.done:
				default:
					log.Printf("ERROR: realtime read (%s): %v", collection, err)
				}
				return
			}
			// The server may batch queued events newline-separated.
			for _, line := range strings.Split(string(message), "\n") {
				if line == "" {
					continue
				}
				var event Event
				if err := json.Unmarshal([]byte(line), &event); err != nil {
					log.Printf("ERROR: decode realtime event: %v", err)
					continue
				}
				handler(event)
			}
		}
	}()

	return sub, nil
}

// Unsubscribe closes the connection. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (c *Client) realtimeURL(collection string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}

	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	base.Path = "/api/realtime/" + url.PathEscape(collection)

	if token := c.auth.Token(); token != "" {
		q := base.Query()
		q.Set("token", token)
		base.RawQuery = q.Encode()
	}
	return base.String(), nil
}
