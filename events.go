package rigging

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handler is an event callback. Trigger arguments are passed through as-is.
type Handler func(args ...any)

// AllEvents is the reserved event name whose handlers observe every trigger.
// Handlers registered under it receive the triggered event name prepended to
// the trigger arguments.
const AllEvents = "all"

// Observable is anything that emits named events and accepts handlers for
// them. Event name arguments may contain several whitespace-separated names;
// a single call covers all of them.
//
// Implementations must be comparable (the usual pointer receivers are), since
// listeners key their bookkeeping by the Observable value.
type Observable interface {
	// On registers fn for the named events and returns a handle that removes
	// the registration when canceled.
	On(events string, fn Handler) Subscription
	// Once is On, but each named event invokes fn at most one time.
	Once(events string, fn Handler) Subscription
	// Off removes handlers for the named events, or every handler when no
	// names are given.
	Off(events ...string)
}

// Triggerer is anything that can emit named events.
type Triggerer interface {
	Trigger(event string, args ...any)
}

// Binder tracks its own registrations on other observables so they can be
// undone in bulk without retaining individual handles.
type Binder interface {
	ListenTo(src Observable, events string, fn Handler) Subscription
	ListenToOnce(src Observable, events string, fn Handler) Subscription
	// StopListening cancels tracked registrations: all of them when src is
	// nil, all registrations on src when no events are named, or only the
	// named events otherwise.
	StopListening(src Observable, events ...string)
}

// Subscription is a cancelable handle to registered handlers. Cancel is
// idempotent and safe for concurrent use.
type Subscription interface {
	ID() string
	Cancel()
}

// Emitter is the concrete event substrate. The zero value is ready to use.
// Types gain eventing by embedding it:
//
//	type Player struct {
//		rigging.Emitter
//	}
//
// All methods have pointer receivers, so embedders should be used through
// pointers. Emitter is safe for concurrent use; Trigger snapshots the
// handler list before invoking it, so handlers may register and cancel
// reentrantly.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]*handlerEntry
	listens  map[Observable][]*listenRecord
}

type handlerEntry struct {
	id    string
	fn    Handler
	once  bool
	fired atomic.Bool
}

// listenRecord is one tracked registration on another observable. Bulk
// unbinding matches on the event name and, for bindings resolved from method
// names, on the tag.
type listenRecord struct {
	src   Observable
	event string
	tag   string
	sub   Subscription
}

// On implements Observable.
func (e *Emitter) On(events string, fn Handler) Subscription {
	return e.register(events, fn, false)
}

// Once implements Observable.
func (e *Emitter) Once(events string, fn Handler) Subscription {
	return e.register(events, fn, true)
}

func (e *Emitter) register(events string, fn Handler, once bool) Subscription {
	sub := &emitterSub{id: uuid.NewString(), src: e}
	names := splitNames(events)
	if fn == nil || len(names) == 0 {
		sub.closed.Store(true)
		return sub
	}
	sub.events = names

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[string][]*handlerEntry)
	}
	for _, name := range names {
		e.handlers[name] = append(e.handlers[name], &handlerEntry{id: sub.id, fn: fn, once: once})
	}
	return sub
}

// Off implements Observable.
func (e *Emitter) Off(events ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(events) == 0 {
		e.handlers = nil
		return
	}
	for _, ev := range events {
		for _, name := range splitNames(ev) {
			delete(e.handlers, name)
		}
	}
}

// Trigger invokes every handler registered for the named events in
// registration order, then the AllEvents handlers with the event name
// prepended to args.
func (e *Emitter) Trigger(event string, args ...any) {
	for _, name := range splitNames(event) {
		e.emit(name, args)
	}
}

func (e *Emitter) emit(name string, args []any) {
	e.mu.RLock()
	direct := slices.Clone(e.handlers[name])
	var meta []*handlerEntry
	if name != AllEvents {
		meta = slices.Clone(e.handlers[AllEvents])
	}
	e.mu.RUnlock()

	if name == AllEvents {
		// AllEvents handlers always see the event name first, even when the
		// reserved name is triggered directly.
		fireEntries(direct, append([]any{name}, args...))
	} else {
		fireEntries(direct, args)
	}
	if len(meta) > 0 {
		fireEntries(meta, append([]any{name}, args...))
	}

	e.sweepOnce(name, direct)
	if name != AllEvents {
		e.sweepOnce(AllEvents, meta)
	}
}

func fireEntries(entries []*handlerEntry, args []any) {
	for _, h := range entries {
		if h.once && !h.fired.CompareAndSwap(false, true) {
			continue
		}
		h.fn(args...)
	}
}

// sweepOnce drops fired once-handlers. Kept separate from the invocation
// loop so Trigger never holds the write lock while running callbacks.
func (e *Emitter) sweepOnce(name string, fired []*handlerEntry) {
	dirty := false
	for _, h := range fired {
		if h.once && h.fired.Load() {
			dirty = true
			break
		}
	}
	if !dirty {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retain(name, func(h *handlerEntry) bool { return !(h.once && h.fired.Load()) })
}

// retain keeps only the entries for name that keep reports true for.
// Callers hold e.mu.
func (e *Emitter) retain(name string, keep func(*handlerEntry) bool) {
	entries := e.handlers[name]
	kept := entries[:0]
	for _, h := range entries {
		if keep(h) {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(e.handlers, name)
		return
	}
	e.handlers[name] = kept
}

func (e *Emitter) removeSub(events []string, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, name := range events {
		e.retain(name, func(h *handlerEntry) bool { return h.id != id })
	}
}

// HandlerCount reports how many handlers are registered for the named
// events, or in total when no names are given.
func (e *Emitter) HandlerCount(events ...string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(events) == 0 {
		n := 0
		for _, entries := range e.handlers {
			n += len(entries)
		}
		return n
	}
	n := 0
	for _, ev := range events {
		for _, name := range splitNames(ev) {
			n += len(e.handlers[name])
		}
	}
	return n
}

// ListenTo implements Binder.
func (e *Emitter) ListenTo(src Observable, events string, fn Handler) Subscription {
	return e.listenTo(src, events, fn, false, "")
}

// ListenToOnce implements Binder.
func (e *Emitter) ListenToOnce(src Observable, events string, fn Handler) Subscription {
	return e.listenTo(src, events, fn, true, "")
}

func (e *Emitter) listenTo(src Observable, events string, fn Handler, once bool, tag string) Subscription {
	group := &groupSub{id: uuid.NewString()}
	if src == nil || fn == nil {
		group.closed.Store(true)
		return group
	}
	names := splitNames(events)
	if len(names) == 0 {
		group.closed.Store(true)
		return group
	}

	// One registration per event name so StopListening can match a single
	// name out of a multi-name listen.
	records := make([]*listenRecord, 0, len(names))
	for _, name := range names {
		var sub Subscription
		if once {
			sub = src.Once(name, fn)
		} else {
			sub = src.On(name, fn)
		}
		records = append(records, &listenRecord{src: src, event: name, tag: tag, sub: sub})
		group.subs = append(group.subs, sub)
	}

	e.mu.Lock()
	if e.listens == nil {
		e.listens = make(map[Observable][]*listenRecord)
	}
	e.listens[src] = append(e.listens[src], records...)
	e.mu.Unlock()

	group.unrecord = func() { e.dropRecords(src, records) }
	return group
}

// StopListening implements Binder.
func (e *Emitter) StopListening(src Observable, events ...string) {
	e.stopListening(src, events, "")
}

func (e *Emitter) stopListening(src Observable, events []string, tag string) {
	var names []string
	for _, ev := range events {
		names = append(names, splitNames(ev)...)
	}
	match := func(rec *listenRecord) bool {
		if len(names) > 0 && !slices.Contains(names, rec.event) {
			return false
		}
		if tag != "" && rec.tag != tag {
			return false
		}
		return true
	}

	// Collect first, cancel after releasing the lock: canceling a
	// registration on e itself would otherwise deadlock.
	var doomed []Subscription
	e.mu.Lock()
	if src == nil {
		for s, records := range e.listens {
			doomed = append(doomed, e.dropMatchingLocked(s, records, match)...)
		}
	} else if records, ok := e.listens[src]; ok {
		doomed = append(doomed, e.dropMatchingLocked(src, records, match)...)
	}
	e.mu.Unlock()

	for _, sub := range doomed {
		sub.Cancel()
	}
}

// dropMatchingLocked removes matching records for src and returns their
// subscriptions. Callers hold e.mu.
func (e *Emitter) dropMatchingLocked(src Observable, records []*listenRecord, match func(*listenRecord) bool) []Subscription {
	var doomed []Subscription
	kept := records[:0]
	for _, rec := range records {
		if match(rec) {
			doomed = append(doomed, rec.sub)
			continue
		}
		kept = append(kept, rec)
	}
	if len(kept) == 0 {
		delete(e.listens, src)
	} else {
		e.listens[src] = kept
	}
	return doomed
}

func (e *Emitter) dropRecords(src Observable, records []*listenRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	current, ok := e.listens[src]
	if !ok {
		return
	}
	kept := current[:0]
	for _, rec := range current {
		if slices.Contains(records, rec) {
			continue
		}
		kept = append(kept, rec)
	}
	if len(kept) == 0 {
		delete(e.listens, src)
		return
	}
	e.listens[src] = kept
}

// ListenCount reports how many tracked registrations e holds on src for the
// named events, on src in total when no names are given, or across every
// source when src is nil.
func (e *Emitter) ListenCount(src Observable, events ...string) int {
	var names []string
	for _, ev := range events {
		names = append(names, splitNames(ev)...)
	}
	count := func(records []*listenRecord) int {
		if len(names) == 0 {
			return len(records)
		}
		n := 0
		for _, rec := range records {
			if slices.Contains(names, rec.event) {
				n++
			}
		}
		return n
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if src == nil {
		n := 0
		for _, records := range e.listens {
			n += count(records)
		}
		return n
	}
	return count(e.listens[src])
}

// listenToTag and stopListeningTag carry the method-name tag used by
// BindEntityEvents so UnbindEntityEvents can undo exactly the registrations
// it created. Reachable through embedders via the taggedBinder assertion.
func (e *Emitter) listenToTag(src Observable, events string, fn Handler, tag string) Subscription {
	return e.listenTo(src, events, fn, false, tag)
}

func (e *Emitter) stopListeningTag(src Observable, events []string, tag string) {
	e.stopListening(src, events, tag)
}

type taggedBinder interface {
	listenToTag(src Observable, events string, fn Handler, tag string) Subscription
	stopListeningTag(src Observable, events []string, tag string)
}

type emitterSub struct {
	id     string
	src    *Emitter
	events []string
	closed atomic.Bool
}

func (s *emitterSub) ID() string { return s.id }

func (s *emitterSub) Cancel() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.src.removeSub(s.events, s.id)
}

// groupSub bundles the per-event subscriptions created by a single ListenTo
// call behind one handle.
type groupSub struct {
	id       string
	subs     []Subscription
	unrecord func()
	closed   atomic.Bool
}

func (g *groupSub) ID() string { return g.id }

func (g *groupSub) Cancel() {
	if !g.closed.CompareAndSwap(false, true) {
		return
	}
	for _, sub := range g.subs {
		sub.Cancel()
	}
	if g.unrecord != nil {
		g.unrecord()
	}
}

func splitNames(events string) []string {
	return strings.Fields(events)
}

// Compile-time interface checks
var (
	_ Observable   = (*Emitter)(nil)
	_ Triggerer    = (*Emitter)(nil)
	_ Binder       = (*Emitter)(nil)
	_ Subscription = (*emitterSub)(nil)
	_ Subscription = (*groupSub)(nil)
)
