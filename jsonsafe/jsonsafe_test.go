package jsonsafe

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "nil", in: nil, want: nil},
		{name: "bool", in: true, want: true},
		{name: "string", in: "zone", want: "zone"},
		{name: "int", in: 42, want: 42},
		{name: "float", in: 1.5, want: 1.5},
		{name: "bytes become string", in: []byte("raw"), want: "raw"},
		{name: "error becomes message", in: errors.New("boom"), want: "boom"},
		{name: "duration becomes string", in: 90 * time.Second, want: "1m30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_Time(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-05-01T12:00:00Z", Sanitize(ts))
}

func TestSanitize_Containers(t *testing.T) {
	in := map[string]any{
		"names": []string{"a", "b"},
		"meta":  map[int]string{1: "one"},
	}

	got := Sanitize(in)
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, m["names"])
	assert.Equal(t, map[string]any{"1": "one"}, m["meta"])
}

func TestSanitize_Struct(t *testing.T) {
	type record struct {
		Name string `json:"name"`
		TTL  int    `json:"ttl"`
	}

	got := Sanitize(record{Name: "www", TTL: 300})
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "www", m["name"])
	assert.Equal(t, float64(300), m["ttl"])
}

func TestSanitize_FallbackForFuncs(t *testing.T) {
	got := Sanitize(func() {})
	_, ok := got.(string)
	assert.True(t, ok, "funcs should degrade to a string representation")
}

func TestSanitize_NilPointer(t *testing.T) {
	var p *int
	assert.Nil(t, Sanitize(p))
}

func TestSanitize_DepthCap(t *testing.T) {
	// Self-referencing map would recurse forever without the cap.
	m := map[string]any{}
	m["self"] = m

	got := Sanitize(m)

	// Whatever shape comes back must be marshalable.
	_, err := json.Marshal(got)
	assert.NoError(t, err)
}

func TestSanitize_OutputAlwaysMarshals(t *testing.T) {
	inputs := []any{
		map[string]any{"fn": func() {}, "ch": make(chan int)},
		[]any{complex(1, 2), errors.New("x")},
		struct{ C chan int }{C: make(chan int)},
	}

	for _, in := range inputs {
		_, err := json.Marshal(Sanitize(in))
		assert.NoError(t, err)
	}
}
