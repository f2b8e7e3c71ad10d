package pipeline

import (
	"sync"

	"github.com/bscott/mailcloud/internal/mailbox"
)

type EventKind int

const (
	// EventListed is sent once, after listing, with Total set.
	EventListed EventKind = iota
	EventProcessed
	// EventEmpty is a processed message with no text/plain content.
	EventEmpty
	EventCached
	EventFetchFailed
)

func (k EventKind) String() string {
	switch k {
	case EventListed:
		return "listed"
	case EventProcessed:
		return "processed"
	case EventEmpty:
		return "empty"
	case EventCached:
		return "cached"
	case EventFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind         EventKind
	Ref          mailbox.MessageRef
	Tokens       int
	PartsSkipped int
	Err          error

	// Done counts messages finished so far, this one included.
	Done  int
	Total int
}

// Observer receives events one at a time, never concurrently.
type Observer func(Event)

type emitter struct {
	mu       sync.Mutex
	observer Observer
	total    int
	done     int
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.Kind != EventListed {
		e.done++
	}
	ev.Done = e.done
	ev.Total = e.total
	if e.observer != nil {
		e.observer(ev)
	}
}
