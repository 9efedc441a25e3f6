package config

import (
	"reflect"
	"slices"
	"strings"
)

// sections lists the top-level YAML keys of Config.
var sections = func() []string {
	var out []string
	t := reflect.TypeOf(Config{})
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		if name != "" && name != "-" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}()

// ParseConfigPath splits a dotted key such as "bot.allowedMessagesPerInterval".
// The first segment must name a config section.
func ParseConfigPath(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	if slices.Contains(parts, "") {
		return nil, &ConfigError{Message: "config path contains empty segment"}
	}
	if !slices.Contains(sections, parts[0]) {
		return nil, &ConfigError{Message: "unknown config section " + parts[0] + " (want one of " + strings.Join(sections, ", ") + ")"}
	}
	return parts, nil
}

// GetValueAtPath returns the value at path in a decoded YAML document.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	parent := walk(root, path[:len(path)-1], false)
	if parent == nil {
		return nil, false
	}
	v, ok := parent[path[len(path)-1]]
	return v, ok
}

// SetValueAtPath stores value at path. Missing or non-map intermediates are
// replaced by empty maps.
func SetValueAtPath(root map[string]any, path []string, value any) {
	if len(path) == 0 {
		return
	}
	walk(root, path[:len(path)-1], true)[path[len(path)-1]] = value
}

// UnsetValueAtPath deletes the value at path and reports whether it existed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	if len(path) == 0 {
		return false
	}
	parent := walk(root, path[:len(path)-1], false)
	if parent == nil {
		return false
	}
	last := path[len(path)-1]
	if _, ok := parent[last]; !ok {
		return false
	}
	delete(parent, last)
	return true
}

// walk descends through nested maps along keys. Without create it returns
// nil as soon as a segment is missing or not a map.
func walk(m map[string]any, keys []string, create bool) map[string]any {
	for _, key := range keys {
		next, ok := m[key].(map[string]any)
		if !ok {
			if !create {
				return nil
			}
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	return m
}
