package zkclient

import (
	"errors"

	"github.com/go-zookeeper/zk"

	"github.com/nerdrew/zk-recipes-go/internal/coordcache"
)

// classifiedError wraps a zk error with a Transient() bool, the contract
// coordcache.IsTransient checks for.
type classifiedError struct {
	err       error
	transient bool
}

func (e *classifiedError) Error() string   { return e.err.Error() }
func (e *classifiedError) Unwrap() error   { return e.err }
func (e *classifiedError) Transient() bool { return e.transient }

// classify wraps a raw zk error, marking the connection-level failures
// that a retry can reasonably expect to clear on their own as transient;
// everything else (expired session, missing node, bad version, auth
// failure) is terminal and must surface to the caller.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, zk.ErrNoServer),
		errors.Is(err, zk.ErrConnectionClosed):
		return &classifiedError{err: err, transient: true}
	default:
		return &classifiedError{err: err, transient: false}
	}
}

// toStat converts a zk stat (nil/zeroed when the node doesn't exist) into
// the driver-agnostic coordcache.Stat shape.
func toStat(exists bool, s *zk.Stat) coordcache.Stat {
	if !exists || s == nil {
		return coordcache.Stat{Exists: false}
	}
	return coordcache.Stat{
		Exists:           true,
		Version:          s.Version,
		ChildListVersion: s.Cversion,
		Mtime:            s.Mtime,
		DataLength:       s.DataLength,
	}
}

// translateKind maps a zk watch event type onto the driver-agnostic
// WatchEventKind the engine dispatches on.
func translateKind(t zk.EventType) coordcache.WatchEventKind {
	switch t {
	case zk.EventNodeCreated:
		return coordcache.EventNodeCreated
	case zk.EventNodeDeleted:
		return coordcache.EventNodeDeleted
	case zk.EventNodeDataChanged:
		return coordcache.EventNodeDataChanged
	case zk.EventNodeChildrenChanged:
		return coordcache.EventNodeChildrenChanged
	case zk.EventSession:
		return coordcache.EventSession
	default:
		return coordcache.EventSession
	}
}
