// Package rigging is an entity-eventing toolkit: named events with listener
// bookkeeping, convention-based method dispatch, declarative event bindings,
// options-precedence lookup, selector-token expansion, and a collection view
// over live lists. It supplies the substrate (Emitter) and the helpers that
// make types built on it feel declarative.
//
// Types gain the surface by embedding:
//
//	type ItemView struct {
//		rigging.Emitter
//		rigging.OptionSet
//		Tag string
//	}
//
//	func (v *ItemView) OnBeforeDestroy(args ...any) { v.StopListening(nil) }
//
// Events dispatch both to handlers and, by naming convention, to methods:
//
//	v := &ItemView{Tag: "li"}
//	v.On("render", func(args ...any) { /* ... */ })
//	rigging.TriggerMethod(v, "before:destroy") // calls v.OnBeforeDestroy, then triggers the event
//
// Bindings subscribe one object to another's events in bulk, resolving
// method names on the target, and unbind exactly what they bound:
//
//	rigging.BindEntityEvents(view, model, rigging.Bindings{
//		"change:name change:rank": "Render",
//		"destroy":                 func(args ...any) { view.Off() },
//	})
//	defer rigging.UnbindEntityEvents(view, model, sameBindings)
//
// Options resolve with map-over-field precedence, and UI hashes expand
// "@ui.<name>" placeholders:
//
//	v.SetOptions(rigging.Options{"tag": "tr"})
//	tag := rigging.GetOption(v, "tag") // "tr"; falls back to v.Tag when unset
//	events := rigging.NormalizeUIKeys(map[string]string{"click @ui.list": "pick"}, map[string]string{"list": "ul"})
//
// The subpackages carry events beyond a single process: bridge relays
// triggers through pluggable transports (membridge, redisbridge), fsentity
// turns a directory tree into an event-emitting entity, instrument counts
// and logs event flow, and record captures it for inspection or replay.
package rigging
