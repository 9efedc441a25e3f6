package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSections(t *testing.T) {
	assert.Equal(t, []string{"ai", "bot", "discord", "gateway", "linkInfo", "logging", "media", "store"}, sections)
}

func TestParseConfigPath_Table(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr string
	}{
		{"bot", []string{"bot"}, ""},
		{"ai.model", []string{"ai", "model"}, ""},
		{"gateway.auth.mode", []string{"gateway", "auth", "mode"}, ""},
		{"", nil, "empty config path"},
		{"bot..admins", nil, "empty segment"},
		{".bot", nil, "empty segment"},
		{"bot.", nil, "empty segment"},
		{"agents.defaults", nil, "unknown config section agents"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr != "" {
				var ce *ConfigError
				require.ErrorAs(t, err, &ce)
				assert.Contains(t, ce.Message, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func sampleRaw() map[string]any {
	return map[string]any{
		"bot": map[string]any{
			"allowedMessagesPerInterval": 30,
			"admins":                     []any{"1"},
		},
		"gateway": map[string]any{
			"auth": map[string]any{"mode": "token"},
		},
		"discord": "not-a-map",
	}
}

func TestGetValueAtPath(t *testing.T) {
	root := sampleRaw()

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested", []string{"bot", "allowedMessagesPerInterval"}, 30, true},
		{"deep", []string{"gateway", "auth", "mode"}, "token", true},
		{"section", []string{"discord"}, "not-a-map", true},
		{"missing", []string{"store"}, nil, false},
		{"missing nested", []string{"bot", "nope"}, nil, false},
		{"through scalar", []string{"discord", "token"}, nil, false},
		{"empty path", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := GetValueAtPath(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestSetValueAtPath(t *testing.T) {
	root := sampleRaw()

	SetValueAtPath(root, []string{"bot", "allowedMessagesPerInterval"}, 5)
	SetValueAtPath(root, []string{"store", "enabled"}, true)
	SetValueAtPath(root, []string{"discord", "token"}, "abc")

	v, _ := GetValueAtPath(root, []string{"bot", "allowedMessagesPerInterval"})
	assert.Equal(t, 5, v)
	v, _ = GetValueAtPath(root, []string{"store", "enabled"})
	assert.Equal(t, true, v)
	v, _ = GetValueAtPath(root, []string{"discord", "token"})
	assert.Equal(t, "abc", v)

	// Siblings survive.
	_, ok := GetValueAtPath(root, []string{"bot", "admins"})
	assert.True(t, ok)
}

func TestUnsetValueAtPath(t *testing.T) {
	root := sampleRaw()

	assert.True(t, UnsetValueAtPath(root, []string{"gateway", "auth", "mode"}))
	_, ok := GetValueAtPath(root, []string{"gateway", "auth", "mode"})
	assert.False(t, ok)
	_, ok = GetValueAtPath(root, []string{"gateway", "auth"})
	assert.True(t, ok)

	assert.False(t, UnsetValueAtPath(root, []string{"gateway", "auth", "mode"}))
	assert.False(t, UnsetValueAtPath(root, []string{"store", "path"}))
	assert.False(t, UnsetValueAtPath(root, []string{"discord", "token"}))
	assert.False(t, UnsetValueAtPath(root, nil))
}
