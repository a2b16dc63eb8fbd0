package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandler(t *testing.T) {
	handler := Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "coordcache_") {
		t.Error("response should contain coordcache_ metrics")
	}
}

func TestRecordStaticUpdate(t *testing.T) {
	RecordStaticUpdate("/x/boom", false, 0.25)
	RecordStaticUpdate("/x/boom", true, 0)

	// Verify metrics are recorded (no panic)
}

func TestRecordDirectoryUpdate(t *testing.T) {
	RecordDirectoryUpdate("/x/group", 3, 0.1)

	// Verify metrics are recorded (no panic)
}

func TestRecordRuntimeWatchInstalledAndReleased(t *testing.T) {
	RecordRuntimeWatchInstalled()
	RecordRuntimeWatchReleased()

	// Verify metrics are recorded (no panic)
}

func TestRecordPendingEnqueuedAndDrained(t *testing.T) {
	RecordPendingEnqueued("static", 1)
	RecordPendingDrained("static", 0)

	// Verify metrics are recorded (no panic)
}

func TestRecordSessionLifecycle(t *testing.T) {
	RecordSessionConnected()
	RecordWarmCacheReady()
	RecordSessionExpired()

	// Verify metrics are recorded (no panic)
}

// mockProvider implements MetricsProvider for testing.
type mockProvider struct {
	shouldErr bool
}

func (m *mockProvider) CollectMetrics(ctx context.Context) error {
	if m.shouldErr {
		return errors.New("collection error")
	}
	return nil
}

func TestCollector_RegisterUnregister(t *testing.T) {
	c := NewCollector(1 * time.Second)

	provider := &mockProvider{}
	c.Register("test", provider)

	c.mu.RLock()
	_, ok := c.providers["test"]
	c.mu.RUnlock()
	if !ok {
		t.Error("provider should be registered")
	}

	c.Unregister("test")

	c.mu.RLock()
	_, ok = c.providers["test"]
	c.mu.RUnlock()
	if ok {
		t.Error("provider should be unregistered")
	}
}

func TestCollector_StartStop(t *testing.T) {
	c := NewCollector(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &mockProvider{}
	c.Register("test", provider)

	// Start
	err := c.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	c.mu.RLock()
	running := c.running
	c.mu.RUnlock()
	if !running {
		t.Error("collector should be running after Start")
	}

	// Wait for at least one collection cycle
	time.Sleep(150 * time.Millisecond)

	// Stop
	err = c.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	c.mu.RLock()
	running = c.running
	c.mu.RUnlock()
	if running {
		t.Error("collector should not be running after Stop")
	}
}

func TestCollector_CollectWithError(t *testing.T) {
	c := NewCollector(100 * time.Millisecond)

	ctx := context.Background()

	// Register a provider that errors
	failProvider := &mockProvider{shouldErr: true}
	c.Register("failing", failProvider)

	// Register a provider that succeeds
	okProvider := &mockProvider{shouldErr: false}
	c.Register("healthy", okProvider)

	// Collect should set ComponentStatus appropriately
	c.collect(ctx)

	// Verify no panic occurred
}

func TestCollector_DoubleStart(t *testing.T) {
	c := NewCollector(100 * time.Millisecond)

	ctx := context.Background()

	err := c.Start(ctx)
	if err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	// Second start should be no-op
	err = c.Start(ctx)
	if err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	err = c.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestCollector_DoubleStop(t *testing.T) {
	c := NewCollector(100 * time.Millisecond)

	ctx := context.Background()

	err := c.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	err = c.Stop(ctx)
	if err != nil {
		t.Fatalf("first Stop failed: %v", err)
	}

	// Second stop should be no-op
	err = c.Stop(ctx)
	if err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}
