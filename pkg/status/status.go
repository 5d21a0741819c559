// Package status carries human-facing progress updates from provisioning
// code to whatever front end started the run, over a buffered channel
// stored in the context. Senders never block: if nobody is listening or
// the channel is full, updates are dropped.
package status

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultChannelSize is the default buffer size for the update channel
	DefaultChannelSize = 100

	// DefaultFlushTimeout bounds how long cleanup waits for the handler to
	// drain remaining updates on shutdown
	DefaultFlushTimeout = 5 * time.Second
)

// Level is the severity of a status update
type Level string

const (
	LevelInfo     Level = "info"
	LevelProgress Level = "progress"
	LevelSuccess  Level = "success"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
)

// Update is one progress message. Resource and Action identify what is
// being worked on ("network", "creating"); Metadata carries structured
// extras like resource IDs.
type Update struct {
	Level     Level
	Message   string
	Resource  string
	Action    string
	Metadata  map[string]any
	Timestamp time.Time
}

// NewUpdate creates an Update stamped with the current time
func NewUpdate(level Level, message string) Update {
	return Update{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithResource sets the resource field
func (u Update) WithResource(resource string) Update {
	u.Resource = resource
	return u
}

// WithAction sets the action field
func (u Update) WithAction(action string) Update {
	u.Action = action
	return u
}

// WithMetadata adds one metadata key
func (u Update) WithMetadata(key string, value any) Update {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = value
	return u
}

// Send delivers an update to the channel in ctx, if any. Non-blocking;
// a full channel drops the update rather than stalling provisioning.
func Send(ctx context.Context, update Update) {
	ch := getChannel(ctx)
	if ch == nil {
		return
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	select {
	case ch <- update:
	default:
	}
}

// Handler processes updates received from the channel
type Handler func(Update)

// CleanupFunc closes the update channel and waits for the handler to
// finish; defer it right after StartHandler
type CleanupFunc func()

// StartHandler attaches a fresh update channel to ctx and starts a
// goroutine that feeds every update to handler. The returned cleanup
// closes the channel and waits (bounded by DefaultFlushTimeout) for the
// handler to drain.
func StartHandler(ctx context.Context, handler Handler) (context.Context, CleanupFunc) {
	ch := make(chan Update, DefaultChannelSize)
	ctx = WithChannel(ctx, ch)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range ch {
			handler(update)
		}
	}()

	cleanup := func() {
		close(ch)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(DefaultFlushTimeout):
			// Don't block shutdown on a slow handler.
		}
	}

	return ctx, cleanup
}
