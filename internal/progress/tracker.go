// Package progress tracks the single long-running backend operation and
// its latest task status.
package progress

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/five82/layerscope/internal/backend"
)

// Tracker holds the one live task status. A new operation overwrites it.
// A backend completion event only ends the event stream; the operation
// itself is terminal once it calls Complete or Fail.
type Tracker struct {
	mu       sync.Mutex
	status   backend.TaskStatus
	active   bool
	finished bool
	gen      uint64
	current  *Operation
	log      *zap.Logger
	onChange func()
}

// NewTracker returns an idle tracker. onChange, when set, is called after
// every status change without the tracker lock held.
func NewTracker(logger *zap.Logger, onChange func()) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{log: logger.Named("progress"), onChange: onChange}
}

// Status returns the live task status. ok is false before the first
// operation.
func (t *Tracker) Status() (backend.TaskStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.active
}

// Reset clears the slot and ends any running operation.
func (t *Tracker) Reset() {
	t.mu.Lock()
	prev := t.current
	t.gen++
	t.current = nil
	t.status = backend.TaskStatus{}
	t.active = false
	t.finished = false
	t.mu.Unlock()

	prev.closeSubscription()
	t.changed()
}

// Begin starts a new operation with an initial checkpoint at progress 0.
// Any previous operation is superseded and its subscription torn down.
// When gw is non-nil the operation listens to the backend's task status
// stream until the backend reports completion or the operation ends.
func (t *Tracker) Begin(ctx context.Context, gw backend.Gateway, message string) *Operation {
	t.mu.Lock()
	prev := t.current
	t.gen++
	op := &Operation{tracker: t, gen: t.gen}
	t.current = op
	t.status = backend.TaskStatus{Message: message}
	t.active = true
	t.finished = false
	t.mu.Unlock()

	prev.closeSubscription()

	if gw != nil {
		sub, err := gw.SubscribeTaskStatus(ctx)
		if err != nil {
			t.log.Warn("task status subscription failed", zap.Error(err))
		} else {
			op.attach(sub)
		}
	}
	t.changed()
	return op
}

// apply stores status when gen is still the live operation and the
// operation has not finished. Backend events are also dropped once the
// backend reported completion; local milestones are not. It reports
// whether status was applied.
func (t *Tracker) apply(gen uint64, status backend.TaskStatus, local bool) bool {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		t.log.Debug("dropped task status for superseded operation",
			zap.Uint64("operation", gen),
			zap.String("message", status.Message),
		)
		return false
	}
	if t.finished || (!local && t.status.IsComplete) {
		t.mu.Unlock()
		return false
	}
	if local && status.IsComplete {
		t.finished = true
	}
	t.status = status.Clamped()
	t.mu.Unlock()
	t.changed()
	return true
}

func (t *Tracker) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}

// Operation is one tracked long-running task.
type Operation struct {
	tracker *Tracker
	gen     uint64

	mu  sync.Mutex
	sub *backend.Subscription
}

func (o *Operation) attach(sub *backend.Subscription) {
	o.mu.Lock()
	o.sub = sub
	o.mu.Unlock()
	go o.forward(sub)
}

func (o *Operation) forward(sub *backend.Subscription) {
	for status := range sub.C {
		if !o.tracker.apply(o.gen, status, false) {
			if !o.Current() {
				o.closeSubscription()
				return
			}
			continue
		}
		if status.IsComplete {
			o.closeSubscription()
			return
		}
	}
}

// Current reports whether this is still the live operation.
func (o *Operation) Current() bool {
	if o == nil {
		return false
	}
	o.tracker.mu.Lock()
	defer o.tracker.mu.Unlock()
	return o.tracker.gen == o.gen
}

// Checkpoint publishes a local progress milestone.
func (o *Operation) Checkpoint(message string, progress float64) {
	if o == nil {
		return
	}
	o.tracker.apply(o.gen, backend.TaskStatus{Message: message, Progress: progress}, true)
}

// Complete marks the operation successful and ends it.
func (o *Operation) Complete(message string) {
	if o == nil {
		return
	}
	o.tracker.apply(o.gen, backend.TaskStatus{Message: message, Progress: 1, IsComplete: true}, true)
	o.End()
}

// Fail marks the operation complete with err and ends it.
func (o *Operation) Fail(message string, err error) {
	if o == nil {
		return
	}
	status := backend.TaskStatus{Message: message, Progress: 1, IsComplete: true}
	if err != nil {
		status.Error = err.Error()
	}
	o.tracker.apply(o.gen, status, true)
	o.End()
}

// End tears down the operation's event subscription. The status slot is
// left as is.
func (o *Operation) End() {
	o.closeSubscription()
}

// Subscribed reports whether the operation still listens to backend events.
func (o *Operation) Subscribed() bool {
	if o == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sub != nil
}

func (o *Operation) closeSubscription() {
	if o == nil {
		return
	}
	o.mu.Lock()
	sub := o.sub
	o.sub = nil
	o.mu.Unlock()
	sub.Close()
}
