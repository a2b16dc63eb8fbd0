// Package events provides an in-process pub/sub event bus for cross-component
// communication within the cache daemon.
package events

import (
	"time"
)

// EventType identifies the type of event being published.
type EventType string

const (
	// StaticUpdated is published whenever a registered static path's cached
	// value is refreshed, including transitions back to the default value.
	StaticUpdated EventType = "static.updated"

	// DirectoryUpdated is published whenever a directory mirror's child
	// set is refreshed. Changes to a watched child's value are published
	// as RuntimeUpdated.
	DirectoryUpdated EventType = "directory.updated"

	// RuntimeUpdated is published whenever a dynamically-acquired
	// per-child watch fires for a directory member.
	RuntimeUpdated EventType = "runtime.updated"

	// SessionConnected identifies the underlying Client establishing a
	// session, whether fresh or resumed. No component in this module
	// publishes it; CoordCacheNotifier only publishes StaticUpdated,
	// DirectoryUpdated and RuntimeUpdated.
	SessionConnected EventType = "session.connected"

	// SessionExpired identifies the underlying Client's session being lost
	// without resumption. No component in this module publishes it.
	SessionExpired EventType = "session.expired"

	// WatchInstallFailed identifies a failed watch installation on a path.
	// No component in this module publishes it.
	WatchInstallFailed EventType = "watch.install_failed"

	// PendingDrained identifies a previously failed path being retried
	// successfully and removed from the pending queue. No component in this
	// module publishes it.
	PendingDrained EventType = "pending.drained"

	// ConfigReloaded is published when configuration is successfully reloaded.
	ConfigReloaded EventType = "config.reloaded"

	// ConfigReloadFailed is published when configuration reload fails.
	ConfigReloadFailed EventType = "config.reload_failed"
)

// Event represents a published event in the system.
type Event struct {
	// Type identifies the event type.
	Type EventType

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Payload contains event-specific data.
	Payload any
}

// NewEvent creates a new event with the given type and payload.
func NewEvent(eventType EventType, payload any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// StaticEvent contains data for StaticUpdated events.
type StaticEvent struct {
	// Path is the static path the value was read from.
	Path string

	// UsedDefault indicates the value fell back to the registered default,
	// either because the node is absent or the deserializer returned
	// UseDefault.
	UsedDefault bool

	// Version is the node's data version at the time of the read, or 0
	// when UsedDefault is true.
	Version int32

	// LatencySeconds is the age of the node's mtime at the moment the
	// update was processed.
	LatencySeconds float64
}

// DirectoryEvent contains data for DirectoryUpdated events.
type DirectoryEvent struct {
	// Path is the directory path being mirrored.
	Path string

	// ChildCount is the number of children currently watched.
	ChildCount int

	// DirectoryVersion is the child list's cversion at the time of read.
	DirectoryVersion int32

	// LatencySeconds is the age of the directory node's mtime.
	LatencySeconds float64
}

// RuntimeEvent contains data for RuntimeUpdated events.
type RuntimeEvent struct {
	// Path is the dynamically-watched child path.
	Path string

	// Present indicates whether the child still exists after the update.
	Present bool
}

// SessionEvent contains data for SessionConnected/SessionExpired events.
type SessionEvent struct {
	// SessionID is the session identifier reported by the Client, zero
	// when not yet known.
	SessionID int64

	// Resumed indicates a transport reconnect within the same session, as
	// opposed to a fresh session after expiry.
	Resumed bool
}

// WatchFailureEvent contains data for WatchInstallFailed/PendingDrained events.
type WatchFailureEvent struct {
	// Path is the path whose watch installation failed or recovered.
	Path string

	// Error contains the error message for WatchInstallFailed events.
	Error string
}

// ConfigReloadEvent contains data for config reload events.
type ConfigReloadEvent struct {
	// ChangedSections lists which config sections were modified.
	ChangedSections []string

	// ReloadableChanges indicates if all changes are hot-reloadable.
	ReloadableChanges bool

	// Error contains the error message if reload failed (for ConfigReloadFailed events).
	Error string
}

// NewStaticUpdated creates a StaticUpdated event.
func NewStaticUpdated(path string, usedDefault bool, version int32, latencySeconds float64) Event {
	return NewEvent(StaticUpdated, &StaticEvent{
		Path:           path,
		UsedDefault:    usedDefault,
		Version:        version,
		LatencySeconds: latencySeconds,
	})
}

// NewDirectoryUpdated creates a DirectoryUpdated event.
func NewDirectoryUpdated(path string, childCount int, directoryVersion int32, latencySeconds float64) Event {
	return NewEvent(DirectoryUpdated, &DirectoryEvent{
		Path:             path,
		ChildCount:       childCount,
		DirectoryVersion: directoryVersion,
		LatencySeconds:   latencySeconds,
	})
}

// NewRuntimeUpdated creates a RuntimeUpdated event.
func NewRuntimeUpdated(path string, present bool) Event {
	return NewEvent(RuntimeUpdated, &RuntimeEvent{
		Path:    path,
		Present: present,
	})
}

// NewSessionConnected creates a SessionConnected event.
func NewSessionConnected(sessionID int64, resumed bool) Event {
	return NewEvent(SessionConnected, &SessionEvent{
		SessionID: sessionID,
		Resumed:   resumed,
	})
}

// NewSessionExpired creates a SessionExpired event.
func NewSessionExpired(sessionID int64) Event {
	return NewEvent(SessionExpired, &SessionEvent{
		SessionID: sessionID,
	})
}

// NewWatchInstallFailed creates a WatchInstallFailed event.
func NewWatchInstallFailed(path string, err error) Event {
	return NewEvent(WatchInstallFailed, &WatchFailureEvent{
		Path:  path,
		Error: errorString(err),
	})
}

// NewPendingDrained creates a PendingDrained event.
func NewPendingDrained(path string) Event {
	return NewEvent(PendingDrained, &WatchFailureEvent{
		Path: path,
	})
}

// NewConfigReloaded creates a ConfigReloaded event.
func NewConfigReloaded(changedSections []string, reloadable bool) Event {
	return NewEvent(ConfigReloaded, &ConfigReloadEvent{
		ChangedSections:   changedSections,
		ReloadableChanges: reloadable,
	})
}

// NewConfigReloadFailed creates a ConfigReloadFailed event.
func NewConfigReloadFailed(err error) Event {
	return NewEvent(ConfigReloadFailed, &ConfigReloadEvent{
		Error: errorString(err),
	})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// EventHandler is a function that processes events.
type EventHandler func(event Event)
