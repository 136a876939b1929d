package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamURL(t *testing.T) {
	tests := []struct {
		base, session, encoding string
		want                    string
	}{
		{"http://localhost:8765", "", "json", "ws://localhost:8765/ws?encoding=json"},
		{"https://avatar.example.com", "", "msgpack", "wss://avatar.example.com/ws?encoding=msgpack"},
		{"http://localhost:8765/", "kiosk 1", "json", "ws://localhost:8765/ws/kiosk%201?encoding=json"},
	}

	for _, tc := range tests {
		got, err := streamURL(tc.base, tc.session, tc.encoding)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}
