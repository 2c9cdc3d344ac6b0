package rigging

import (
	"maps"
	"testing"
)

func TestNormalizeUIString(t *testing.T) {
	ui := map[string]string{"list": "ul.items", "row": "li"}

	cases := []struct {
		in   string
		want string
	}{
		{"click @ui.list", "click ul.items"},
		{"@ui.list > @ui.row", "ul.items > li"},
		{"click .plain", "click .plain"},
		{"@ui.unknown", "@ui.unknown"},
		{"", ""},
		{"@ui.list@ui.row", "ul.itemsli"},
	}
	for _, tc := range cases {
		if got := NormalizeUIString(tc.in, ui); got != tc.want {
			t.Fatalf("NormalizeUIString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeUIKeys(t *testing.T) {
	ui := map[string]string{"list": "ul"}
	hash := map[string]string{
		"click @ui.list": "pick",
		"keydown input":  "edit",
	}
	snapshot := maps.Clone(hash)

	got := NormalizeUIKeys(hash, ui)
	if got["click ul"] != "pick" {
		t.Fatalf("Expected key normalized to selector, got %v", got)
	}
	if got["keydown input"] != "edit" {
		t.Fatalf("Expected plain key untouched, got %v", got)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if !maps.Equal(hash, snapshot) {
		t.Fatalf("Expected input hash unmodified, got %v", hash)
	}
}

func TestNormalizeUIKeys_AnyValues(t *testing.T) {
	ui := map[string]string{"save": "button.save"}
	handler := func(args ...any) {}
	got := NormalizeUIKeys(Bindings{"click @ui.save": handler}, ui)

	if _, ok := got["click button.save"]; !ok {
		t.Fatalf("Expected bindings keys to normalize, got %v", got)
	}
}

func TestNormalizeUIKeys_Nil(t *testing.T) {
	if got := NormalizeUIKeys[string](nil, map[string]string{"a": "b"}); got != nil {
		t.Fatalf("Expected nil passthrough, got %v", got)
	}
}

func TestNormalizeUIValues(t *testing.T) {
	ui := map[string]string{"checkbox": "input[type=checkbox]"}
	hash := map[string]string{
		"toggle": "@ui.checkbox",
		"label":  "span.label",
	}

	got := NormalizeUIValues(hash, ui)
	if got["toggle"] != "input[type=checkbox]" {
		t.Fatalf("Expected value normalized, got %v", got)
	}
	if got["label"] != "span.label" {
		t.Fatalf("Expected plain value untouched, got %v", got)
	}
	if hash["toggle"] != "@ui.checkbox" {
		t.Fatalf("Expected input hash unmodified, got %v", hash)
	}
}
