package rigging

import (
	"maps"
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestGetOption_PrecedenceProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := &optionedView{Threshold: rapid.IntRange(-100, 100).Draw(rt, "field")}

		opts := Options{}
		hasOption := rapid.Bool().Draw(rt, "has_option")
		var optVal any
		if hasOption {
			if rapid.Bool().Draw(rt, "nil_option") {
				optVal = nil
			} else {
				optVal = rapid.IntRange(-100, 100).Draw(rt, "option")
			}
			opts["threshold"] = optVal
		}
		v.SetOptions(opts)

		got := GetOption(v, "threshold")
		if hasOption {
			if got != optVal {
				rt.Fatalf("present option must win: got %v, want %v", got, optVal)
			}
		} else if got != v.Threshold {
			rt.Fatalf("absent key must fall back to the field: got %v, want %v", got, v.Threshold)
		}
	})
}

func TestMethodName_Property(t *testing.T) {
	segment := rapid.StringMatching(`[a-z][a-z0-9]{0,6}`)
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(rt, "num_segments")
		segments := make([]string, n)
		want := "On"
		for i := range segments {
			segments[i] = segment.Draw(rt, "segment")
			want += strings.ToUpper(segments[i][:1]) + segments[i][1:]
		}
		event := strings.Join(segments, ":")

		if got := MethodName(event); got != want {
			rt.Fatalf("MethodName(%q) = %q, want %q", event, got, want)
		}
	})
}

func TestNormalizeUIString_Property(t *testing.T) {
	name := rapid.StringMatching(`[a-z][a-z0-9]{0,5}`)
	selector := rapid.StringMatching(`[a-z.#][a-z0-9.#\- ]{0,10}`)
	rapid.Check(t, func(rt *rapid.T) {
		ui := map[string]string{}
		for i, n := 0, rapid.IntRange(1, 4).Draw(rt, "num_names"); i < n; i++ {
			ui[name.Draw(rt, "ui_name")] = selector.Draw(rt, "ui_selector")
		}

		known := rapid.SampledFrom(slices.Collect(maps.Keys(ui))).Draw(rt, "known")
		prefix := rapid.SampledFrom([]string{"click ", "change ", ""}).Draw(rt, "prefix")

		got := NormalizeUIString(prefix+"@ui."+known, ui)
		if got != prefix+ui[known] {
			rt.Fatalf("known token must resolve: got %q, want %q", got, prefix+ui[known])
		}

		// A name outside the hash leaves its token in place.
		unknown := "zz" + name.Draw(rt, "unknown_suffix")
		if _, ok := ui[unknown]; !ok {
			in := prefix + "@ui." + unknown
			if got := NormalizeUIString(in, ui); got != in {
				rt.Fatalf("unknown token must stay: got %q, want %q", got, in)
			}
		}

		// Token-free strings pass through untouched.
		plain := selector.Draw(rt, "plain")
		if got := NormalizeUIString(plain, ui); got != plain {
			rt.Fatalf("plain string must pass through: got %q, want %q", got, plain)
		}
	})
}

func TestEntityEvents_BindUnbindRoundTrip(t *testing.T) {
	eventNames := []string{"add", "remove", "change", "sync", "destroy", "sort"}
	rapid.Check(t, func(rt *rapid.T) {
		view := &boundView{}
		model := &Emitter{}

		bindings := Bindings{}
		for i, n := 0, rapid.IntRange(1, 5).Draw(rt, "num_entries"); i < n; i++ {
			names := rapid.SliceOfNDistinct(rapid.SampledFrom(eventNames), 1, 3, rapid.ID[string]).Draw(rt, "events")
			key := strings.Join(names, " ")
			if rapid.Bool().Draw(rt, "use_method") {
				bindings[key] = rapid.SampledFrom([]string{"Render", "Resort", "Render Resort"}).Draw(rt, "method")
			} else {
				bindings[key] = Handler(func(args ...any) {})
			}
		}

		if err := BindEntityEvents(view, model, bindings); err != nil {
			rt.Fatalf("Failed to bind entity events: %v", err)
		}
		if view.ListenCount(model) == 0 {
			rt.Fatalf("expected tracked listens after binding %v", bindings)
		}

		if err := UnbindEntityEvents(view, model, bindings); err != nil {
			rt.Fatalf("Failed to unbind entity events: %v", err)
		}
		if n := view.ListenCount(nil); n != 0 {
			rt.Fatalf("expected zero tracked listens after unbind, got %d", n)
		}
		if n := model.HandlerCount(); n != 0 {
			rt.Fatalf("expected zero handlers on the entity after unbind, got %d", n)
		}
	})
}
