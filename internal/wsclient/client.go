// Package wsclient is a small WebSocket client for the chess server, used by
// the smoke-check binary and the transport tests.
package wsclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-chess-server/pkg/chessdto"
)

type MessageCallback func(msg *chessdto.ServerMessage)

type StateCallback func(state State)

type HeaderProvider func() map[string]string

type State int

const (
	StateConnecting State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "closed"
	}
}

var ErrClosed = errors.New("wsclient: connection closed")

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

type Option func(*Client)

// WithPingInterval enables keepalive pings; zero disables them.
func WithPingInterval(d time.Duration) Option { return func(c *Client) { c.pingInterval = d } }

func WithDialTimeout(d time.Duration) Option { return func(c *Client) { c.dialTimeout = d } }

// WithHeaderProvider injects headers into the handshake request.
func WithHeaderProvider(h HeaderProvider) Option { return func(c *Client) { c.headerProvider = h } }

// Client holds one connection. Messages are delivered to callbacks from the
// read goroutine in arrival order.
type Client struct {
	url            string
	pingInterval   time.Duration
	dialTimeout    time.Duration
	headerProvider HeaderProvider

	conn   *websocket.Conn
	state  State
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextID   int
	cbM      sync.RWMutex

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
	errM     sync.Mutex
	err      error

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		url:         url,
		state:       StateClosed,
		dialTimeout: 10 * time.Second,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dial is New followed by Connect.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := New(url, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Connect(ctx context.Context) error {
	c.stateM.Lock()
	if c.state != StateClosed || c.conn != nil {
		c.stateM.Unlock()
		return nil
	}
	c.stateM.Unlock()

	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	c.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(),
	})
	if err != nil {
		c.rootCancel()
		c.setState(StateClosed)
		return err
	}
	c.conn = conn
	c.setState(StateConnected)

	c.wg.Add(1)
	go c.listen()
	if c.pingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}
	return nil
}

// Send writes one command.
func (c *Client) Send(ctx context.Context, cmd *chessdto.Command) error {
	if c.conn == nil || c.isStopping() {
		return ErrClosed
	}
	return wsjson.Write(ctx, c.conn, cmd)
}

// SendRaw writes an arbitrary text frame.
func (c *Client) SendRaw(ctx context.Context, data []byte) error {
	if c.conn == nil || c.isStopping() {
		return ErrClosed
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) listen() {
	defer c.wg.Done()
	defer close(c.done)
	for {
		var msg chessdto.ServerMessage
		if err := wsjson.Read(c.rootCtx, c.conn, &msg); err != nil {
			c.errM.Lock()
			c.err = err
			c.errM.Unlock()
			c.setState(StateClosed)
			return
		}

		c.cbM.RLock()
		callbacks := make([]callbackEntry, len(c.msgCbs))
		copy(callbacks, c.msgCbs)
		c.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(&msg)
			}
		}
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.done:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
			err := c.conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				_ = c.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// Done is closed when the read loop ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the read loop. Use websocket.CloseStatus
// on it to get the peer's close code.
func (c *Client) Err() error {
	c.errM.Lock()
	defer c.errM.Unlock()
	return c.err
}

func (c *Client) OnMessage(cb MessageCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextID++
	c.msgCbs = append(c.msgCbs, callbackEntry{id: c.nextID, callback: cb})
	return c.nextID
}

func (c *Client) RemoveMessageCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, cb := range c.msgCbs {
		if cb.id == id {
			c.msgCbs = append(c.msgCbs[:i], c.msgCbs[i+1:]...)
			break
		}
	}
}

func (c *Client) OnStateChange(cb StateCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextID++
	c.stateCbs = append(c.stateCbs, stateCallbackEntry{id: c.nextID, callback: cb})
	return c.nextID
}

func (c *Client) State() State {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Client) setState(state State) {
	c.stateM.Lock()
	c.state = state
	c.stateM.Unlock()

	c.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(c.stateCbs))
	copy(callbacks, c.stateCbs)
	c.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// Close performs the closing handshake and waits for the goroutines.
func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.conn == nil {
		return nil
	}
	_ = c.conn.Close(websocket.StatusNormalClosure, "close")

	waited := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waited)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-waited:
		c.rootCancel()
		return nil
	}
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Client) buildHeaders() http.Header {
	hdr := http.Header{}
	if c.headerProvider == nil {
		return hdr
	}
	for k, v := range c.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
