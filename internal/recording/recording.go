// Package recording defines the persisted recording artifact: session
// geometry and encoding parameters plus the ordered event list. The JSON
// shape is a compatibility contract shared with external analysis tools,
// including recordings produced by older backends with differently
// formatted key and button names.
package recording

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"screenrec/internal/eventlog"
	"screenrec/internal/geometry"
)

// ErrMalformedRecording indicates load-time validation failure: missing or
// out-of-range geometry or event fields.
var ErrMalformedRecording = errors.New("malformed recording")

// BaseNameLayout formats the shared timestamp-derived base name of the
// video and event artifacts of one session.
const BaseNameLayout = "2006-01-02_15-04-05"

// Meta carries capture parameters alongside the events.
type Meta struct {
	Screen    geometry.Geometry `json:"screen"`
	FPS       int               `json:"fps"`
	StartedAt string            `json:"started_at"`
}

// Recording is one serialized session. Immutable once written; consumed
// by the replay engine and external tools.
type Recording struct {
	Meta   Meta             `json:"meta"`
	Events []eventlog.Event `json:"events"`
}

// Save writes the recording as indented JSON. A recording with no
// events serializes an empty array, keeping the output loadable.
func (r *Recording) Save(path string) error {
	out := *r
	if out.Events == nil {
		out.Events = []eventlog.Event{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal recording: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	return nil
}

// Duration reports the t_rel of the last event, zero when empty.
func (r *Recording) Duration() float64 {
	if len(r.Events) == 0 {
		return 0
	}
	return r.Events[len(r.Events)-1].TRel
}

// validate enforces the field contract after parsing.
func (r *Recording) validate() error {
	if err := r.Meta.Screen.Validate(); err != nil {
		return fmt.Errorf("%w: screen geometry: %v", ErrMalformedRecording, err)
	}
	if r.Meta.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", ErrMalformedRecording, r.Meta.FPS)
	}
	for i, e := range r.Events {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%w: event %d: %v", ErrMalformedRecording, i, err)
		}
	}
	return nil
}

// sortEvents defensively re-sorts by t_rel. The recorder appends in causal
// order, but nothing stops external producers from shuffling.
func (r *Recording) sortEvents() {
	sort.SliceStable(r.Events, func(i, j int) bool {
		return r.Events[i].TRel < r.Events[j].TRel
	})
}
