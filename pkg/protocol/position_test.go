package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodePosition(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    FacePosition
		wantErr error
	}{
		{
			name: "not detected",
			data: `{"detected":false}`,
			want: NotDetected(),
		},
		{
			name: "not detected with stale coordinates",
			data: `{"detected":false,"confidence":0.0,"x":0.9}`,
			want: NotDetected(),
		},
		{
			name: "detected",
			data: `{"x":0.25,"y":0.75,"z":0.4,"confidence":0.9,"detected":true}`,
			want: Detected(0.25, 0.75, 0.4, 0.9),
		},
		{
			name: "detected defaults z",
			data: `{"x":0.5,"y":0.5,"detected":true}`,
			want: Detected(0.5, 0.5, 0.5, 0),
		},
		{
			name:    "missing detected",
			data:    `{"x":0.5,"y":0.5}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "missing x",
			data:    `{"y":0.5,"detected":true}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "x out of range",
			data:    `{"x":1.5,"y":0.5,"detected":true}`,
			wantErr: ErrOutOfRange,
		},
		{
			name:    "negative confidence",
			data:    `{"x":0.5,"y":0.5,"confidence":-0.1,"detected":true}`,
			wantErr: ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePosition([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodePosition() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePosition() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodePosition() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodePosition_Malformed(t *testing.T) {
	if _, err := DecodePosition([]byte("{detected")); err == nil {
		t.Error("DecodePosition() expected error for malformed JSON")
	}
}

func TestFacePosition_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(NotDetected())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"detected":false}` {
		t.Errorf("Marshal(NotDetected) = %s", data)
	}

	p := Detected(0, 0.5, 1, 0.7)
	data, err = json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := DecodePosition(data)
	if err != nil {
		t.Fatalf("DecodePosition(%s) error = %v", data, err)
	}
	if got != p {
		t.Errorf("round trip = %+v, want %+v", got, p)
	}
}
