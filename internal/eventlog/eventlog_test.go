package eventlog

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestEventJSONShape(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  []string
		avoid []string
	}{
		{
			name:  "key press",
			event: Event{Timestamp: 1700000000.5, TRel: 1.25, Kind: KindKeyPress, Key: "ctrl"},
			want:  []string{`"type":"key_press"`, `"key":"ctrl"`, `"t_rel":1.25`},
			avoid: []string{"pos_x_norm", "button", "scroll_dx"},
		},
		{
			name:  "mouse move keeps zero coordinates",
			event: Event{TRel: 0.5, Kind: KindMouseMove, X: 0, Y: 0},
			want:  []string{`"type":"mouse_move"`, `"pos_x_norm":0`, `"pos_y_norm":0`},
			avoid: []string{"key", "button"},
		},
		{
			name:  "click press",
			event: Event{TRel: 2, Kind: KindMouseClick, X: 0.5, Y: 0.5, Button: "left", Pressed: true},
			want:  []string{`"button":"left"`, `"event":"press"`},
		},
		{
			name:  "click release",
			event: Event{TRel: 2, Kind: KindMouseClick, X: 0.5, Y: 0.5, Button: "right"},
			want:  []string{`"event":"release"`},
		},
		{
			name:  "scroll",
			event: Event{TRel: 3, Kind: KindMouseScroll, X: 0.1, Y: 0.9, ScrollDY: -2},
			want:  []string{`"scroll_dx":0`, `"scroll_dy":-2`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			s := string(data)
			for _, frag := range tt.want {
				if !strings.Contains(s, frag) {
					t.Errorf("missing %s in %s", frag, s)
				}
			}
			for _, frag := range tt.avoid {
				if strings.Contains(s, frag) {
					t.Errorf("unexpected %s in %s", frag, s)
				}
			}

			var back Event
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back != tt.event {
				t.Errorf("round trip mismatch: %+v != %+v", back, tt.event)
			}
		})
	}
}

func TestEventValidate(t *testing.T) {
	valid := Event{TRel: 1, Kind: KindMouseMove, X: 0.5, Y: 0.5}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	invalid := []Event{
		{TRel: -1, Kind: KindKeyPress, Key: "a"},
		{TRel: 0, Kind: KindKeyPress},
		{TRel: 0, Kind: KindMouseMove, X: 1.5},
		{TRel: 0, Kind: KindMouseClick, X: 0.5, Y: 0.5},
		{TRel: 0, Kind: Kind("teleport")},
	}
	for i, e := range invalid {
		if err := e.Validate(); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, e)
		}
	}
}

func TestLogSnapshotIsolation(t *testing.T) {
	log := New()
	log.Append(Event{TRel: 1, Kind: KindKeyPress, Key: "a"})

	snap := log.Snapshot()
	log.Append(Event{TRel: 2, Kind: KindKeyRelease, Key: "a"})

	if len(snap) != 1 {
		t.Errorf("snapshot grew with the log: len=%d", len(snap))
	}
	if log.Len() != 2 {
		t.Errorf("log len = %d, want 2", log.Len())
	}
}

func TestLogConcurrentAppend(t *testing.T) {
	log := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				log.Append(Event{TRel: float64(j), Kind: KindMouseMove, X: 0.5, Y: 0.5})
				_ = log.Snapshot()
			}
		}()
	}
	wg.Wait()

	if log.Len() != 800 {
		t.Errorf("lost appends: len=%d, want 800", log.Len())
	}
}
