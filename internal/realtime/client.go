package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crmchat/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBufSize    = 64
	eventBufSize   = 256

	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
)

var (
	ErrNotConnected = errors.New("realtime: not connected")
	ErrSendBuffer   = errors.New("realtime: send buffer full")
)

// bufPool pools bytes.Buffer for JSON encoding in writePump.
var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Client is a reconnecting WebSocket connection to the chat backend.
// Lifecycle: New -> Run(ctx) (blocks, reconnects) -> ctx cancelled.
// Decoded events are delivered on Events(); the channel is closed when Run returns.
type Client struct {
	url    string
	header http.Header
	dialer *websocket.Dialer

	events chan Event
	send   chan OutgoingMessage

	mu        sync.RWMutex
	connected bool

	initialBackoff time.Duration
}

func New(url, token string) *Client {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return &Client{
		url:            url,
		header:         h,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		events:         make(chan Event, eventBufSize),
		send:           make(chan OutgoingMessage, sendBufSize),
		initialBackoff: initialBackoff,
	}
}

func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendTyping queues a typing start/stop signal. Never blocks.
func (c *Client) SendTyping(ctx context.Context, channelID string, typing bool) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	msg := OutgoingMessage{Type: EventTyping, ChannelID: channelID, Typing: &typing}
	select {
	case c.send <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSendBuffer
	}
}

// Run keeps a session open until ctx is cancelled, reconnecting with
// exponential backoff (2s doubling up to 30s, reset after a successful connect).
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)
	backoff := c.initialBackoff
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Errorf("realtime dial failed, retry in %v: %v", backoff, err)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = c.initialBackoff
		logger.Infof("realtime connected %s", c.url)
		c.setConnected(true)
		c.deliver(ctx, Event{Type: EventConnected})

		c.session(ctx, conn)

		c.setConnected(false)
		c.deliver(ctx, Event{Type: EventDisconnected})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Errorf("realtime disconnected, reconnect in %v", backoff)
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// session runs both pumps on conn and returns when either exits.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) {
	sctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump(sctx, conn)
	}()
	c.readPump(sctx, conn)
	cancel()
	conn.Close()
	wg.Wait()
}

// deliver hands an event to the consumer; it blocks only until ctx is done.
func (c *Client) deliver(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// readPump reads frames until a read error. Closing conn unblocks it.
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Errorf("realtime set read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("realtime read error: %v", err)
			}
			return
		}
		ev, err := Decode(raw)
		if err != nil {
			var unknown *ErrUnknownEvent
			if errors.As(err, &unknown) {
				logger.Debugf("realtime skip %s", unknown.Type)
			} else {
				logger.Errorf("realtime decode: %v", err)
			}
			continue
		}
		c.deliver(ctx, ev)
	}
}

// writePump writes queued messages and pings. Exits on ctx cancellation or write error;
// closing conn on exit unblocks readPump so a dead socket is noticed at once.
func (c *Client) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Errorf("realtime set write deadline: %v", err)
				return
			}
			buf := bufPool.Get().(*bytes.Buffer)
			buf.Reset()
			if err := json.NewEncoder(buf).Encode(msg); err != nil {
				bufPool.Put(buf)
				logger.Errorf("realtime marshal: %v", err)
				continue
			}
			data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
			writeErr := conn.WriteMessage(websocket.TextMessage, data)
			bufPool.Put(buf)
			if writeErr != nil {
				logger.Errorf("realtime write: %v", writeErr)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Errorf("realtime ping: %v", err)
				return
			}
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
