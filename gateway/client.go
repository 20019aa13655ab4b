package gateway

import (
	"chat-relay/domain/event"
	"chat-relay/fanout"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 256
	maxFrameSize   = 1024
	writeTimeout   = 10 * time.Second
)

// controlFrame is what a browser client sends to manage its room set.
type controlFrame struct {
	Action string `json:"action"` // "join" or "leave"
	RoomID string `json:"roomId"`
}

// Client is one WebSocket connection with its per-room streams.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	streams map[string]*fanout.Stream
	closed  bool

	// forwarders tracks the per-room goroutines feeding c.send; the channel
	// may only be closed once they have all exited.
	forwarders sync.WaitGroup
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	// The client owns its lifetime: the HTTP handler returns right after the
	// upgrade, so its request context cannot scope the streams.
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		streams: make(map[string]*fanout.Stream),
	}
}

// readPump consumes control frames until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameSize)

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("WebSocket read failed", "error", err)
			}
			return
		}
		var frame controlFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.hub.log.Debug("Ignoring malformed control frame", "error", err)
			continue
		}
		switch frame.Action {
		case "join":
			c.join(frame.RoomID)
		case "leave":
			c.leave(frame.RoomID)
		default:
			c.hub.log.Debug("Ignoring unknown control action", "action", frame.Action)
		}
	}
}

// writePump serializes all writes to the connection.
func (c *Client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// join opens a stream for the room and forwards its events to the socket.
func (c *Client) join(roomID string) {
	c.mu.Lock()
	if c.closed || c.streams[roomID] != nil {
		c.mu.Unlock()
		return
	}
	stream, err := c.hub.chat.SubscribeMessages(c.ctx, roomID)
	if err != nil {
		c.mu.Unlock()
		c.hub.log.Warn("Room join rejected", "room_id", roomID, "error", err)
		return
	}
	c.streams[roomID] = stream
	c.forwarders.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.forwarders.Done()
		defer stream.Close()
		for {
			message, err := stream.Next(c.ctx)
			if err != nil {
				return
			}
			payload, err := event.Encode(message)
			if err != nil {
				c.hub.log.Error("Event encoding failed", "room_id", roomID, "error", err)
				continue
			}
			select {
			case c.send <- payload:
			case <-c.ctx.Done():
				return
			default:
				// A client that cannot keep up loses the event.
				c.hub.log.Warn("Dropping event for slow client", "room_id", roomID)
			}
		}
	}()
}

func (c *Client) leave(roomID string) {
	c.mu.Lock()
	stream := c.streams[roomID]
	delete(c.streams, roomID)
	c.mu.Unlock()
	if stream != nil {
		stream.Close()
	}
}

// shutdown releases every stream and ends the write pump. Called by the hub.
func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	streams := c.streams
	c.streams = make(map[string]*fanout.Stream)
	c.mu.Unlock()

	c.cancel()
	for _, stream := range streams {
		stream.Close()
	}
	// Closed streams and the cancelled context end every forwarder; only then
	// is c.send safe to close.
	c.forwarders.Wait()
	close(c.send)
}
