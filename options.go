package rigging

import (
	"reflect"
	"unicode"
	"unicode/utf8"
)

// Options carries per-instance configuration values keyed by name. Keys are
// conventionally lowerCamel ("childView"); lookup against the owning struct
// capitalizes the first rune to reach the exported field.
type Options map[string]any

// Get reports the value stored under name and whether the key is present. A
// present nil value counts as present; key absence is the only absence
// marker.
func (o Options) Get(name string) (any, bool) {
	v, ok := o[name]
	return v, ok
}

// Optioned is implemented by types that carry an Options map.
type Optioned interface {
	Options() Options
}

// OptionSet is an embeddable Options holder implementing Optioned. Set the
// map at construction time; it is not synchronized.
type OptionSet struct {
	opts Options
}

// Options implements Optioned.
func (o *OptionSet) Options() Options { return o.opts }

// SetOptions replaces the held options map.
func (o *OptionSet) SetOptions(opts Options) { o.opts = opts }

// GetOption resolves a named value on target with options precedence: when
// target implements Optioned and its options map contains the key, that
// value wins, even when it is nil. Otherwise the target itself is consulted:
// the exported field named by capitalizing name's first rune, then a method
// of that name (returned as a func value, not invoked). Missing everywhere
// resolves to nil.
func GetOption(target any, name string) any {
	if target == nil || name == "" {
		return nil
	}
	if od, ok := target.(Optioned); ok {
		if v, ok := od.Options().Get(name); ok {
			return v
		}
	}
	return ownProperty(target, name)
}

// OptionAs is GetOption with a type assertion on the result.
func OptionAs[T any](target any, name string) (T, bool) {
	v, ok := GetOption(target, name).(T)
	return v, ok
}

func ownProperty(target any, name string) any {
	prop := exportedName(name)

	rv := reflect.ValueOf(target)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		if f := rv.FieldByName(prop); f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	}
	if m := reflect.ValueOf(target).MethodByName(prop); m.IsValid() {
		return m.Interface()
	}
	return nil
}

// exportedName upper-cases the first rune so option-style names reach
// exported identifiers.
func exportedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
