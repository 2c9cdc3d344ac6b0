package rigging

import (
	"reflect"
	"slices"

	"github.com/samber/lo"
)

// Collection is an iteration view over a live list. The source func is read
// on every call, so mutations to the underlying list are visible through the
// view without rebuilding it.
type Collection[T any] struct {
	source func() []T
}

// ActAsCollection gives list-holding types a collection surface without
// copying the list:
//
//	type Playlist struct {
//		tracks []Track
//	}
//
//	func (p *Playlist) Tracks() rigging.Collection[Track] {
//		return rigging.ActAsCollection(func() []Track { return p.tracks })
//	}
func ActAsCollection[T any](source func() []T) Collection[T] {
	return Collection[T]{source: source}
}

// FieldCollection adapts the named exported slice field of obj, read
// reflectively on each call. It is the untyped counterpart of
// ActAsCollection for callers holding only an any value.
func FieldCollection(obj any, field string) Collection[any] {
	name := exportedName(field)
	return ActAsCollection(func() []any {
		rv := reflect.ValueOf(obj)
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct {
			return nil
		}
		f := rv.FieldByName(name)
		if !f.IsValid() || f.Kind() != reflect.Slice || !f.CanInterface() {
			return nil
		}
		out := make([]any, f.Len())
		for i := range out {
			out[i] = f.Index(i).Interface()
		}
		return out
	})
}

func (c Collection[T]) items() []T {
	if c.source == nil {
		return nil
	}
	return c.source()
}

// Each invokes fn for every item in order.
func (c Collection[T]) Each(fn func(item T, index int)) {
	lo.ForEach(c.items(), fn)
}

// Map returns the items transformed by fn. Cross-type mapping lives in the
// package-level Transform.
func (c Collection[T]) Map(fn func(item T, index int) T) []T {
	return lo.Map(c.items(), fn)
}

// Filter returns the items pred reports true for.
func (c Collection[T]) Filter(pred func(item T, index int) bool) []T {
	return lo.Filter(c.items(), pred)
}

// Reject returns the items pred reports false for.
func (c Collection[T]) Reject(pred func(item T, index int) bool) []T {
	return lo.Reject(c.items(), pred)
}

// Find returns the first item pred reports true for.
func (c Collection[T]) Find(pred func(item T) bool) (T, bool) {
	return lo.Find(c.items(), pred)
}

// Every reports whether pred holds for all items. True when empty.
func (c Collection[T]) Every(pred func(item T) bool) bool {
	return lo.EveryBy(c.items(), pred)
}

// Some reports whether pred holds for at least one item.
func (c Collection[T]) Some(pred func(item T) bool) bool {
	return lo.SomeBy(c.items(), pred)
}

// ContainsBy reports whether pred holds for at least one item. Equality
// matching for comparable element types lives in the package-level Contains.
func (c Collection[T]) ContainsBy(pred func(item T) bool) bool {
	return lo.ContainsBy(c.items(), pred)
}

func (c Collection[T]) First() (T, bool) {
	items := c.items()
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[0], true
}

func (c Collection[T]) Last() (T, bool) {
	items := c.items()
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[len(items)-1], true
}

// Initial returns all items but the last.
func (c Collection[T]) Initial() []T {
	return lo.DropRight(c.items(), 1)
}

// Rest returns all items but the first.
func (c Collection[T]) Rest() []T {
	return lo.Drop(c.items(), 1)
}

func (c Collection[T]) IsEmpty() bool { return len(c.items()) == 0 }

func (c Collection[T]) Size() int { return len(c.items()) }

// ToSlice returns a copy of the current items.
func (c Collection[T]) ToSlice() []T {
	return slices.Clone(c.items())
}

// Pluck extracts the named field from every item. Struct items resolve the
// exported field (option-style names are capitalized); map items with string
// keys resolve the name verbatim. Items without the field yield nil.
func (c Collection[T]) Pluck(field string) []any {
	items := c.items()
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = pluckField(item, field)
	}
	return out
}

// Invoke calls the named method on every item with args and collects the
// results. Items without the method, or with a method whose signature cannot
// receive the call (see TriggerMethod), yield nil. Methods must be in the
// item type's method set, so pointer-receiver methods need pointer elements.
func (c Collection[T]) Invoke(method string, args ...any) []any {
	items := c.items()
	out := make([]any, len(items))
	for i, item := range items {
		var target any = item
		if target == nil {
			continue
		}
		info := lookupMethod(reflect.TypeOf(target), method)
		if !info.found || info.shape == shapeBad {
			continue
		}
		out[i] = callMethod(target, info, args)
	}
	return out
}

// Transform maps the collection into a slice of another type.
func Transform[T, R any](c Collection[T], fn func(item T, index int) R) []R {
	return lo.Map(c.items(), fn)
}

// Contains reports whether the collection holds v.
func Contains[T comparable](c Collection[T], v T) bool {
	return lo.Contains(c.items(), v)
}

// Without returns the items minus every value in exclude.
func Without[T comparable](c Collection[T], exclude ...T) []T {
	return lo.Without(c.items(), exclude...)
}

func pluckField(item any, field string) any {
	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if f := rv.FieldByName(exportedName(field)); f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		if v := rv.MapIndex(reflect.ValueOf(field)); v.IsValid() {
			return v.Interface()
		}
	}
	return nil
}
