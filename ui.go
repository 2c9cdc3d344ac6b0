package rigging

import (
	"regexp"
	"strings"
)

// uiTokenPattern matches "@ui.<name>" placeholders inside selector strings.
var uiTokenPattern = regexp.MustCompile(`@ui\.[a-zA-Z_$0-9]*`)

// NormalizeUIString replaces each "@ui.<name>" token in s with ui[name]. A
// name missing from the hash leaves its token untouched, so partial hashes
// degrade visibly instead of silently.
func NormalizeUIString(s string, ui map[string]string) string {
	if !strings.Contains(s, "@ui.") {
		return s
	}
	return uiTokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := token[len("@ui."):]
		if sel, ok := ui[name]; ok {
			return sel
		}
		return token
	})
}

// NormalizeUIKeys returns a copy of hash with "@ui.<name>" tokens in its
// keys replaced through the ui hash. Values are carried over untouched; the
// input map is never mutated. The value type is free so events hashes,
// bindings, and attribute maps all normalize the same way:
//
//	rigging.NormalizeUIKeys(map[string]string{"click @ui.list": "pick"}, ui)
func NormalizeUIKeys[V any](hash map[string]V, ui map[string]string) map[string]V {
	if hash == nil {
		return nil
	}
	out := make(map[string]V, len(hash))
	for k, v := range hash {
		out[NormalizeUIString(k, ui)] = v
	}
	return out
}

// NormalizeUIValues returns a copy of hash with "@ui.<name>" tokens in its
// values replaced through the ui hash.
func NormalizeUIValues(hash map[string]string, ui map[string]string) map[string]string {
	if hash == nil {
		return nil
	}
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		out[k] = NormalizeUIString(v, ui)
	}
	return out
}
