// Package record captures entity events for inspection and replay. A
// Recorder is the event-flow counterpart of a log: attach it to an
// observable, assert on or display what fired, or replay the capture onto
// another triggerer in order.
package record

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/tautline/rigging-go"
)

// Record is one captured event.
type Record struct {
	// ID orders the record within its Recorder.
	ID string
	// Name is the triggered event name.
	Name string
	// Args are the trigger arguments, retained as passed.
	Args []any
	// At is the capture time.
	At time.Time
}

// Recorder captures events from observables. Safe for concurrent use; one
// Recorder may observe several sources at once.
type Recorder struct {
	mu     sync.Mutex
	lastID int64
	recs   []Record
}

// New creates an empty Recorder.
func New() *Recorder { return &Recorder{} }

// Observe captures every event src triggers. Cancel the returned
// subscription to detach.
func (r *Recorder) Observe(src rigging.Observable) rigging.Subscription {
	return src.On(rigging.AllEvents, func(args ...any) {
		if len(args) == 0 {
			return
		}
		name, ok := args[0].(string)
		if !ok {
			return
		}
		r.add(name, slices.Clone(args[1:]))
	})
}

func (r *Recorder) add(name string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	r.recs = append(r.recs, Record{
		ID:   strconv.FormatInt(r.lastID, 10),
		Name: name,
		Args: args,
		At:   time.Now(),
	})
}

// Records returns a snapshot of the capture in order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.recs)
}

// Names returns the captured event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.recs))
	for i, rec := range r.recs {
		out[i] = rec.Name
	}
	return out
}

// Len reports how many events have been captured.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

// Reset discards the capture. ID assignment continues from where it left
// off.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = nil
}

// Replay re-triggers the captured events on dst in capture order. The
// capture is snapshotted first, so recording dst while replaying onto it
// will not loop.
func (r *Recorder) Replay(dst rigging.Triggerer) {
	for _, rec := range r.Records() {
		dst.Trigger(rec.Name, rec.Args...)
	}
}
