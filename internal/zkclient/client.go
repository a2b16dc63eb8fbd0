// Package zkclient adapts github.com/go-zookeeper/zk's connection to the
// internal/coordcache.Client capability. It is the only package in this
// repository that imports the zk driver directly.
package zkclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/nerdrew/zk-recipes-go/internal/coordcache"
)

// Client wraps a *zk.Conn, funneling every watch delivery and session
// event through a single internal dispatch loop so the coordcache engine's
// single-dispatch-thread assumption holds even though the underlying
// driver hands back one channel per armed watch.
type Client struct {
	servers        []string
	sessionTimeout time.Duration
	logger         *slog.Logger

	mu          sync.Mutex
	conn        *zk.Conn
	handlers    map[string]coordcache.WatchHandler
	onConnected []coordcache.ConnectedHandler
	onException []coordcache.ExceptionHandler

	dispatchCh chan func()
	closeCh    chan struct{}
	wg         sync.WaitGroup
}

// Option configures a Client at Dial time.
type Option func(*Client)

// WithLogger sets the *slog.Logger used for connection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Dial connects to a comma-separated ZooKeeper ensemble host list and
// returns a Client ready to be handed to coordcache.CacheFacade.Start.
func Dial(host string, sessionTimeout time.Duration, opts ...Option) (*Client, error) {
	servers := splitHosts(host)
	if len(servers) == 0 {
		return nil, fmt.Errorf("zkclient: no servers in host string %q", host)
	}

	c := &Client{
		servers:        servers,
		sessionTimeout: sessionTimeout,
		logger:         slog.Default(),
		handlers:       make(map[string]coordcache.WatchHandler),
		dispatchCh:     make(chan func(), 256),
		closeCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, events, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("zkclient: failed to connect to %v; %w", servers, err)
	}
	c.conn = conn

	c.wg.Add(2)
	go c.runDispatchLoop()
	go c.runSessionEvents(events)

	return c, nil
}

// AsDial adapts Dial's fixed options into a coordcache.Dial, for use with
// coordcache.Open's cache-owning construction mode.
func AsDial(sessionTimeout time.Duration, opts ...Option) coordcache.Dial {
	return func(host string) (coordcache.Client, error) {
		return Dial(host, sessionTimeout, opts...)
	}
}

func splitHosts(host string) []string {
	parts := strings.Split(host, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	return conn.State() == zk.StateHasSession
}

func (c *Client) Connecting() bool {
	switch c.conn.State() {
	case zk.StateConnecting, zk.StateConnectedReadOnly:
		return true
	default:
		return false
	}
}

func (c *Client) SessionID() coordcache.SessionID {
	return coordcache.SessionID(c.conn.SessionID())
}

func (c *Client) Stat(_ context.Context, path string, watch bool) (coordcache.Stat, error) {
	if !watch {
		exists, stat, err := c.conn.Exists(path)
		if err != nil {
			return coordcache.Stat{}, classify(err)
		}
		return toStat(exists, stat), nil
	}

	exists, stat, evCh, err := c.conn.ExistsW(path)
	if err != nil {
		return coordcache.Stat{}, classify(err)
	}
	c.armWatch(path, evCh)
	return toStat(exists, stat), nil
}

func (c *Client) Get(_ context.Context, path string, watch bool) ([]byte, coordcache.Stat, error) {
	if !watch {
		data, stat, err := c.conn.Get(path)
		if err != nil {
			return nil, coordcache.Stat{}, classify(err)
		}
		return data, toStat(true, stat), nil
	}

	data, stat, evCh, err := c.conn.GetW(path)
	if err != nil {
		return nil, coordcache.Stat{}, classify(err)
	}
	c.armWatch(path, evCh)
	return data, toStat(true, stat), nil
}

func (c *Client) Children(_ context.Context, path string, watch bool) ([]string, coordcache.Stat, error) {
	if !watch {
		children, stat, err := c.conn.Children(path)
		if err != nil {
			return nil, coordcache.Stat{}, classify(err)
		}
		return children, toStat(true, stat), nil
	}

	children, stat, evCh, err := c.conn.ChildrenW(path)
	if err != nil {
		return nil, coordcache.Stat{}, classify(err)
	}
	c.armWatch(path, evCh)
	return children, toStat(true, stat), nil
}

// armWatch waits on a single-shot zk watch channel in its own goroutine
// and forwards the translated event onto the dispatch loop, so the
// coordcache engine only ever observes callbacks from one logical thread.
func (c *Client) armWatch(path string, ch <-chan zk.Event) {
	go func() {
		ev, ok := <-ch
		if !ok {
			return
		}
		c.submit(func() {
			c.mu.Lock()
			handler := c.handlers[path]
			c.mu.Unlock()
			if handler == nil {
				return
			}
			handler(coordcache.WatchEvent{
				Path:        ev.Path,
				IsNodeEvent: ev.Type != zk.EventNotWatching && ev.Type != zk.EventSession,
				EventName:   ev.Type.String(),
				StateName:   ev.State.String(),
				Kind:        translateKind(ev.Type),
			})
		})
	}()
}

func (c *Client) Register(path string, handler coordcache.WatchHandler) coordcache.Subscription {
	c.mu.Lock()
	c.handlers[path] = handler
	c.mu.Unlock()
	return subscriptionFunc(func() {
		c.mu.Lock()
		delete(c.handlers, path)
		c.mu.Unlock()
	})
}

func (c *Client) OnConnected(handler coordcache.ConnectedHandler) coordcache.Subscription {
	c.mu.Lock()
	c.onConnected = append(c.onConnected, handler)
	idx := len(c.onConnected) - 1
	c.mu.Unlock()
	return subscriptionFunc(func() {
		c.mu.Lock()
		c.onConnected[idx] = nil
		c.mu.Unlock()
	})
}

func (c *Client) OnException(handler coordcache.ExceptionHandler) coordcache.Subscription {
	c.mu.Lock()
	c.onException = append(c.onException, handler)
	idx := len(c.onException) - 1
	c.mu.Unlock()
	return subscriptionFunc(func() {
		c.mu.Lock()
		c.onException[idx] = nil
		c.mu.Unlock()
	})
}

func (c *Client) Defer(fn func()) {
	c.submit(fn)
}

func (c *Client) submit(fn func()) {
	select {
	case c.dispatchCh <- fn:
	case <-c.closeCh:
	}
}

func (c *Client) runDispatchLoop() {
	defer c.wg.Done()
	for {
		select {
		case fn := <-c.dispatchCh:
			fn()
		case <-c.closeCh:
			return
		}
	}
}

func (c *Client) runSessionEvents(events <-chan zk.Event) {
	defer c.wg.Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.submit(func() { c.handleSessionEvent(ev) })
		case <-c.closeCh:
			return
		}
	}
}

func (c *Client) handleSessionEvent(ev zk.Event) {
	switch ev.State {
	case zk.StateHasSession:
		c.mu.Lock()
		handlers := append([]coordcache.ConnectedHandler(nil), c.onConnected...)
		c.mu.Unlock()
		for _, h := range handlers {
			if h != nil {
				h()
			}
		}
	case zk.StateExpired, zk.StateAuthFailed:
		if ev.Err == nil {
			return
		}
		c.mu.Lock()
		handlers := append([]coordcache.ExceptionHandler(nil), c.onException...)
		c.mu.Unlock()
		for _, h := range handlers {
			if h != nil {
				h(ev.Err)
			}
		}
	default:
		if ev.Err != nil {
			c.logger.Warn("zkclient: session event error", "state", ev.State.String(), "error", ev.Err)
		}
	}
}

// Reopen tears down the current connection and dials a fresh one, giving
// the caller a new session rather than waiting on the driver's own
// reconnect loop. Used after a fork, where the child must not adopt the
// parent's session id.
func (c *Client) Reopen() error {
	c.mu.Lock()
	oldConn := c.conn
	c.mu.Unlock()
	if oldConn != nil {
		oldConn.Close()
	}

	conn, events, err := zk.Connect(c.servers, c.sessionTimeout)
	if err != nil {
		return fmt.Errorf("zkclient: reopen failed; %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runSessionEvents(events)
	return nil
}

func (c *Client) Close() error {
	close(c.closeCh)
	c.conn.Close()
	c.wg.Wait()
	return nil
}

type subscriptionFunc func()

func (f subscriptionFunc) Unregister() { f() }
