package rigging

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// MethodTriggerer lets a type take over convention dispatch for itself.
// TriggerMethod prefers a target's own TriggerMethod over the reflective
// lookup, so embedding hierarchies can centralize or filter dispatch.
type MethodTriggerer interface {
	TriggerMethod(event string, args ...any) any
}

// MethodName converts an event name to its handler method name: the event is
// split on ":", each segment's first rune is upper-cased, and the result is
// prefixed with "On". "before:destroy" becomes "OnBeforeDestroy". Results
// are memoized.
func MethodName(event string) string {
	if v, ok := methodNames.Load(event); ok {
		return v.(string)
	}
	var b strings.Builder
	b.WriteString("On")
	for _, seg := range strings.Split(event, ":") {
		if seg == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(seg)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(seg[size:])
	}
	name := b.String()
	methodNames.Store(event, name)
	return name
}

// TriggerMethod dispatches an event to target by naming convention and then,
// when target is also a Triggerer, emits the event itself. For
// "before:destroy" it calls target.OnBeforeDestroy (when such a method
// exists) followed by target.Trigger("before:destroy", args...). The method
// runs first, so it observes state before any event handlers do.
//
// Handler methods must take no parameters or a single variadic ...any, and
// may return at most one value; that value becomes TriggerMethod's result.
// A method found with any other signature is reported as a *BadHandlerError
// and not called; the event still fires. A nil target is a no-op.
//
// When target implements MethodTriggerer, dispatch is delegated to it
// entirely.
func TriggerMethod(target any, event string, args ...any) (any, error) {
	if target == nil || event == "" {
		return nil, nil
	}
	if mt, ok := target.(MethodTriggerer); ok {
		return mt.TriggerMethod(event, args...), nil
	}

	var result any
	var err error
	info := lookupMethod(reflect.TypeOf(target), MethodName(event))
	if info.found {
		if info.shape == shapeBad {
			err = &BadHandlerError{Method: MethodName(event), Sig: info.sig}
		} else {
			result = callMethod(target, info, args)
		}
	}
	if tr, ok := target.(Triggerer); ok {
		tr.Trigger(event, args...)
	}
	return result, err
}

const (
	shapeBad = iota
	shapeNiladic
	shapeVariadic
)

type methodKey struct {
	typ  reflect.Type
	name string
}

type methodInfo struct {
	found   bool
	shape   int
	results int
	index   int
	sig     string
}

var (
	methodNames sync.Map // event string -> method name string
	methodCache sync.Map // methodKey -> methodInfo

	anyType      = reflect.TypeOf((*any)(nil)).Elem()
	anySliceType = reflect.TypeOf([]any(nil))
)

// lookupMethod resolves name against the concrete type's method set, caching
// the result (including absence) per type.
func lookupMethod(typ reflect.Type, name string) methodInfo {
	key := methodKey{typ: typ, name: name}
	if v, ok := methodCache.Load(key); ok {
		return v.(methodInfo)
	}

	var info methodInfo
	if m, ok := typ.MethodByName(name); ok {
		info.found = true
		info.index = m.Index
		mt := m.Func.Type()
		// m.Func includes the receiver as the first parameter.
		in := mt.NumIn() - 1
		switch {
		case in == 0:
			info.shape = shapeNiladic
		case in == 1 && mt.IsVariadic() && mt.In(1) == anySliceType:
			info.shape = shapeVariadic
		default:
			info.shape = shapeBad
		}
		if mt.NumOut() > 1 {
			info.shape = shapeBad
		}
		info.results = mt.NumOut()
		if info.shape == shapeBad {
			info.sig = mt.String()
		}
	}
	methodCache.Store(key, info)
	return info
}

func callMethod(target any, info methodInfo, args []any) any {
	m := reflect.ValueOf(target).Method(info.index)
	var out []reflect.Value
	switch info.shape {
	case shapeNiladic:
		out = m.Call(nil)
	case shapeVariadic:
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			if a == nil {
				in[i] = reflect.Zero(anyType)
			} else {
				in[i] = reflect.ValueOf(a)
			}
		}
		out = m.Call(in)
	default:
		return nil
	}
	if info.results == 1 {
		return out[0].Interface()
	}
	return nil
}

// methodHandler resolves a method name on target into a Handler. Unlike
// TriggerMethod's convention lookup, the name is used verbatim; it is how
// string values in Bindings become callbacks.
func methodHandler(target any, name string) (Handler, error) {
	if target == nil {
		return nil, &MissingMethodError{Method: name}
	}
	info := lookupMethod(reflect.TypeOf(target), name)
	if !info.found {
		return nil, &MissingMethodError{Method: name}
	}
	if info.shape == shapeBad {
		return nil, &BadHandlerError{Method: name, Sig: info.sig}
	}
	return func(args ...any) {
		callMethod(target, info, args)
	}, nil
}
