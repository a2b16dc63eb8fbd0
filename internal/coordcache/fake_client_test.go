package coordcache

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// fakeNode models one ZooKeeper-style znode: its data bytes (if any) and,
// independently, its child-name set. A directory path and a value path
// are both represented by the same node shape; tests only ever populate
// the half relevant to the scenario.
type fakeNode struct {
	exists   bool
	data     []byte
	version  int32
	cversion int32
	mtime    int64
	children map[string]struct{}
}

type fakeSubscription struct {
	cancel func()
}

func (s *fakeSubscription) Unregister() {
	if s.cancel != nil {
		s.cancel()
	}
}

// fakeTransientError simulates the client's transient (connection-lost
// class) error taxonomy.
type fakeTransientError struct{ path string }

func (e *fakeTransientError) Error() string   { return "fake: transient error on " + e.path }
func (e *fakeTransientError) Transient() bool { return true }

// fakeTerminalError simulates the client's terminal (keeper/marshalling
// class) error taxonomy.
type fakeTerminalError struct{ path string }

func (e *fakeTerminalError) Error() string   { return "fake: terminal error on " + e.path }
func (e *fakeTerminalError) Transient() bool { return false }

// fakeClient is a deterministic, test-controlled double for Client. Watch
// delivery is driven explicitly by the test (createValue, setValue,
// deleteValue, addChild, removeChild, connect, disconnect, expire) rather
// than by any background goroutine, so assertions never race the engine.
type fakeClient struct {
	mu sync.Mutex

	connected  bool
	connecting bool
	sessionID  SessionID

	nodes         map[string]*fakeNode
	armedData     map[string]bool
	armedChildren map[string]bool

	// pending{Data,Children}Fires record paths that changed while
	// disconnected but whose watch was armed; a transport-level
	// reconnect (same session) redelivers them, matching a ZK client
	// that queues watch events generated before the socket dropped.
	pendingDataFires     map[string]bool
	pendingChildrenFires map[string]bool

	handlers            map[string]WatchHandler
	onConnectedHandlers []ConnectedHandler
	onExceptionHandlers []ExceptionHandler

	deferredQueue []func()

	transientCount map[string]int
	terminalPaths  map[string]bool

	reopenSessionID SessionID
	closed          bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nodes:                make(map[string]*fakeNode),
		armedData:            make(map[string]bool),
		armedChildren:        make(map[string]bool),
		pendingDataFires:     make(map[string]bool),
		pendingChildrenFires: make(map[string]bool),
		handlers:             make(map[string]WatchHandler),
		transientCount:       make(map[string]int),
		terminalPaths:        make(map[string]bool),
	}
}

func (c *fakeClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Connecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connecting
}

func (c *fakeClient) SessionID() SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *fakeClient) Stat(_ context.Context, path string, watch bool) (Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.maybeFailLocked(path); err != nil {
		return Stat{}, err
	}
	if watch {
		c.armedData[path] = true
	}
	n, ok := c.nodes[path]
	if !ok || !n.exists {
		return Stat{Exists: false}, nil
	}
	return Stat{Exists: true, Version: n.version, ChildListVersion: n.cversion, Mtime: n.mtime, DataLength: int32(len(n.data))}, nil
}

func (c *fakeClient) Get(_ context.Context, path string, watch bool) ([]byte, Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.maybeFailLocked(path); err != nil {
		return nil, Stat{}, err
	}
	if watch {
		c.armedData[path] = true
	}
	n, ok := c.nodes[path]
	if !ok || !n.exists {
		return nil, Stat{}, errors.New("fake: get on missing node " + path)
	}
	data := append([]byte(nil), n.data...)
	return data, Stat{Exists: true, Version: n.version, ChildListVersion: n.cversion, Mtime: n.mtime, DataLength: int32(len(n.data))}, nil
}

func (c *fakeClient) Children(_ context.Context, path string, watch bool) ([]string, Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.maybeFailLocked(path); err != nil {
		return nil, Stat{}, err
	}
	if watch {
		c.armedChildren[path] = true
	}
	n, ok := c.nodes[path]
	if !ok || !n.exists {
		return nil, Stat{Exists: false}, nil
	}
	out := make([]string, 0, len(n.children))
	for name := range n.children {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, Stat{Exists: true, Version: n.version, ChildListVersion: n.cversion, Mtime: n.mtime}, nil
}

func (c *fakeClient) Register(path string, handler WatchHandler) Subscription {
	c.mu.Lock()
	c.handlers[path] = handler
	c.mu.Unlock()
	return &fakeSubscription{cancel: func() {
		c.mu.Lock()
		delete(c.handlers, path)
		c.mu.Unlock()
	}}
}

func (c *fakeClient) OnConnected(handler ConnectedHandler) Subscription {
	c.mu.Lock()
	c.onConnectedHandlers = append(c.onConnectedHandlers, handler)
	idx := len(c.onConnectedHandlers) - 1
	c.mu.Unlock()
	return &fakeSubscription{cancel: func() {
		c.mu.Lock()
		c.onConnectedHandlers[idx] = nil
		c.mu.Unlock()
	}}
}

func (c *fakeClient) OnException(handler ExceptionHandler) Subscription {
	c.mu.Lock()
	c.onExceptionHandlers = append(c.onExceptionHandlers, handler)
	idx := len(c.onExceptionHandlers) - 1
	c.mu.Unlock()
	return &fakeSubscription{cancel: func() {
		c.mu.Lock()
		c.onExceptionHandlers[idx] = nil
		c.mu.Unlock()
	}}
}

func (c *fakeClient) Defer(fn func()) {
	c.mu.Lock()
	c.deferredQueue = append(c.deferredQueue, fn)
	c.mu.Unlock()
}

func (c *fakeClient) Reopen() error {
	c.mu.Lock()
	c.connected = false
	sid := c.reopenSessionID
	c.mu.Unlock()
	c.connect(sid)
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	c.mu.Unlock()
	return nil
}

// --- test-driver helpers below; not part of the Client interface ---

// runDeferred drains every closure scheduled via Defer, including ones
// scheduled by closures it runs, modeling the client's thread pool
// eventually becoming quiescent.
func (c *fakeClient) runDeferred() {
	for {
		c.mu.Lock()
		if len(c.deferredQueue) == 0 {
			c.mu.Unlock()
			return
		}
		fn := c.deferredQueue[0]
		c.deferredQueue = c.deferredQueue[1:]
		c.mu.Unlock()
		fn()
	}
}

func (c *fakeClient) setReopenSessionID(id SessionID) {
	c.mu.Lock()
	c.reopenSessionID = id
	c.mu.Unlock()
}

// connect simulates the client establishing (or re-establishing) a
// connection under sessionID, invoking OnConnected handlers and then
// redelivering any watch events that were queued while disconnected.
func (c *fakeClient) connect(sessionID SessionID) {
	c.mu.Lock()
	c.connected = true
	c.connecting = false
	c.sessionID = sessionID
	handlers := append([]ConnectedHandler(nil), c.onConnectedHandlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			h()
		}
	}

	c.mu.Lock()
	dataFires := make([]string, 0, len(c.pendingDataFires))
	for p := range c.pendingDataFires {
		dataFires = append(dataFires, p)
	}
	c.pendingDataFires = make(map[string]bool)
	childFires := make([]string, 0, len(c.pendingChildrenFires))
	for p := range c.pendingChildrenFires {
		childFires = append(childFires, p)
	}
	c.pendingChildrenFires = make(map[string]bool)
	c.mu.Unlock()

	for _, p := range dataFires {
		c.fireData(p, EventNodeDataChanged)
	}
	for _, p := range childFires {
		c.fireChildren(p)
	}
}

func (c *fakeClient) disconnect() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *fakeClient) maybeFailLocked(path string) error {
	if n, ok := c.transientCount[path]; ok && n > 0 {
		c.transientCount[path] = n - 1
		return &fakeTransientError{path: path}
	}
	if c.terminalPaths[path] {
		return &fakeTerminalError{path: path}
	}
	return nil
}

// failTransientOnce arranges for the next n calls against path (Stat, Get,
// or Children) to return a transient error before succeeding.
func (c *fakeClient) failTransientOnce(path string, n int) {
	c.mu.Lock()
	c.transientCount[path] = n
	c.mu.Unlock()
}

func (c *fakeClient) setTerminal(path string, terminal bool) {
	c.mu.Lock()
	c.terminalPaths[path] = terminal
	c.mu.Unlock()
}

func (c *fakeClient) fireData(path string, kind WatchEventKind) {
	c.mu.Lock()
	if !c.armedData[path] {
		c.mu.Unlock()
		return
	}
	if !c.connected {
		// Leave armedData set: the watch was never actually consumed,
		// only queued for redelivery once the transport reconnects.
		c.pendingDataFires[path] = true
		c.mu.Unlock()
		return
	}
	c.armedData[path] = false
	handler := c.handlers[path]
	c.mu.Unlock()

	if handler != nil {
		handler(WatchEvent{Path: path, IsNodeEvent: true, Kind: kind})
	}
}

func (c *fakeClient) fireChildren(path string) {
	c.mu.Lock()
	if !c.armedChildren[path] {
		c.mu.Unlock()
		return
	}
	if !c.connected {
		c.pendingChildrenFires[path] = true
		c.mu.Unlock()
		return
	}
	c.armedChildren[path] = false
	handler := c.handlers[path]
	c.mu.Unlock()

	if handler != nil {
		handler(WatchEvent{Path: path, IsNodeEvent: false, Kind: EventNodeChildrenChanged})
	}
}

// setValue creates or updates a value node's bytes.
func (c *fakeClient) setValue(path string, data []byte) {
	c.mu.Lock()
	n, ok := c.nodes[path]
	if !ok {
		n = &fakeNode{children: make(map[string]struct{})}
		c.nodes[path] = n
	}
	n.exists = true
	n.data = data
	n.version++
	n.mtime = int64(n.version)
	c.mu.Unlock()

	c.fireData(path, EventNodeDataChanged)
}

// deleteValue removes a value node entirely.
func (c *fakeClient) deleteValue(path string) {
	c.mu.Lock()
	if n, ok := c.nodes[path]; ok {
		n.exists = false
		n.data = nil
	}
	c.mu.Unlock()

	c.fireData(path, EventNodeDeleted)
}

// ensureDir makes sure path exists as a directory node (Stat().Exists ==
// true) without giving it data.
func (c *fakeClient) ensureDir(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[path]
	if !ok {
		n = &fakeNode{children: make(map[string]struct{})}
		c.nodes[path] = n
	}
	n.exists = true
}

// addChild adds name to path's child set and fires path's children watch.
func (c *fakeClient) addChild(path, name string) {
	c.mu.Lock()
	n, ok := c.nodes[path]
	if !ok {
		n = &fakeNode{children: make(map[string]struct{})}
		c.nodes[path] = n
	}
	n.exists = true
	n.children[name] = struct{}{}
	n.cversion++
	n.mtime = int64(n.cversion)
	c.mu.Unlock()

	c.fireChildren(path)
}

// removeChild removes name from path's child set and fires path's
// children watch.
func (c *fakeClient) removeChild(path, name string) {
	c.mu.Lock()
	if n, ok := c.nodes[path]; ok {
		delete(n.children, name)
		n.cversion++
		n.mtime = int64(n.cversion)
	}
	c.mu.Unlock()

	c.fireChildren(path)
}

// deleteDir removes a directory node entirely.
func (c *fakeClient) deleteDir(path string) {
	c.mu.Lock()
	if n, ok := c.nodes[path]; ok {
		n.exists = false
		n.children = make(map[string]struct{})
	}
	c.mu.Unlock()

	c.fireChildren(path)
}
