package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDelay is the quiet period used when none is configured.
const DefaultDebounceDelay = 200 * time.Millisecond

// DebouncedWatcher wraps a Watcher and coalesces rapid events on the same
// path. Operations seen during the quiet period are merged into the event
// that is finally delivered.
type DebouncedWatcher struct {
	mu sync.Mutex

	watcher Watcher
	delay   time.Duration

	pending map[string]*pendingEvent

	events chan Event
	errors chan error

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// NewDebouncedWatcher creates a debounced watcher over w. A non-positive
// delay selects DefaultDebounceDelay.
func NewDebouncedWatcher(w Watcher, delay time.Duration) *DebouncedWatcher {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}

	dw := &DebouncedWatcher{
		watcher: w,
		delay:   delay,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		closeCh: make(chan struct{}),
	}

	dw.wg.Add(2)
	go dw.processEvents()
	go dw.forwardErrors()

	return dw
}

// Watch starts watching a file.
func (dw *DebouncedWatcher) Watch(path string) error {
	return dw.watcher.Watch(path)
}

// Unwatch stops watching a file.
func (dw *DebouncedWatcher) Unwatch(path string) error {
	return dw.watcher.Unwatch(path)
}

// Events returns the debounced event channel.
func (dw *DebouncedWatcher) Events() <-chan Event {
	return dw.events
}

// Errors returns the error channel.
func (dw *DebouncedWatcher) Errors() <-chan error {
	return dw.errors
}

// Close stops the watcher. Pending events are discarded.
func (dw *DebouncedWatcher) Close() error {
	dw.mu.Lock()
	if dw.closed {
		dw.mu.Unlock()
		return nil
	}
	dw.closed = true
	close(dw.closeCh)

	for path, p := range dw.pending {
		if p.timer.Stop() {
			dw.wg.Done()
		}
		delete(dw.pending, path)
	}
	dw.mu.Unlock()

	err := dw.watcher.Close()
	dw.wg.Wait()

	close(dw.events)
	close(dw.errors)

	return err
}

// PendingCount returns the number of paths waiting for their quiet period
// to end.
func (dw *DebouncedWatcher) PendingCount() int {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return len(dw.pending)
}

func (dw *DebouncedWatcher) processEvents() {
	defer dw.wg.Done()

	for {
		select {
		case <-dw.closeCh:
			return
		case event, ok := <-dw.watcher.Events():
			if !ok {
				return
			}
			dw.handleEvent(event)
		}
	}
}

func (dw *DebouncedWatcher) forwardErrors() {
	defer dw.wg.Done()

	for {
		select {
		case <-dw.closeCh:
			return
		case err, ok := <-dw.watcher.Errors():
			if !ok {
				return
			}
			select {
			case dw.errors <- err:
			default:
			}
		}
	}
}

// handleEvent starts or extends the quiet period for the event's path.
// Permission changes alone never start one.
func (dw *DebouncedWatcher) handleEvent(event Event) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.closed {
		return
	}

	if p, ok := dw.pending[event.Path]; ok {
		p.event.Op |= event.Op
		p.event.Timestamp = event.Timestamp
		// A timer that already fired is delivering p and will see the merge.
		if p.timer.Stop() {
			p.timer.Reset(dw.delay)
		}
		return
	}

	if event.Op == OpChmod {
		return
	}

	path := event.Path
	dw.wg.Add(1)
	dw.pending[path] = &pendingEvent{
		event: event,
		timer: time.AfterFunc(dw.delay, func() { dw.fire(path) }),
	}
}

// fire delivers the merged event for path once its timer expires.
func (dw *DebouncedWatcher) fire(path string) {
	defer dw.wg.Done()

	dw.mu.Lock()
	p, ok := dw.pending[path]
	if ok {
		delete(dw.pending, path)
	}
	closed := dw.closed
	dw.mu.Unlock()

	if !ok || closed {
		return
	}

	select {
	case dw.events <- p.event:
	case <-dw.closeCh:
	}
}

// Ensure DebouncedWatcher implements Watcher.
var _ Watcher = (*DebouncedWatcher)(nil)
