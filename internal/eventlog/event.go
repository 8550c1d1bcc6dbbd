// Package eventlog defines the typed input events a recording captures and
// the append-only, lock-guarded log that collects them while hooks fire.
package eventlog

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates event variants on the wire.
type Kind string

// Event kinds, part of the persisted recording format.
const (
	KindKeyPress    Kind = "key_press"
	KindKeyRelease  Kind = "key_release"
	KindMouseMove   Kind = "mouse_move"
	KindMouseClick  Kind = "mouse_click"
	KindMouseScroll Kind = "mouse_scroll"
)

// Click phases for KindMouseClick.
const (
	ClickPress   = "press"
	ClickRelease = "release"
)

// Event is one captured input sample. Timestamp is wall-clock epoch
// seconds and exists for audit and display only; TRel is seconds since
// recording start from a monotonic source and is the only field replay
// timing uses. Mouse coordinates are normalized fractions of the session
// geometry, clamped to [0,1].
type Event struct {
	Timestamp float64
	TRel      float64
	Kind      Kind

	// key_press / key_release
	Key string

	// mouse_* kinds
	X, Y float64

	// mouse_click
	Button  string
	Pressed bool

	// mouse_scroll
	ScrollDX, ScrollDY int
}

// wireEvent is the flat JSON encoding shared by all kinds; which fields
// are present depends on the type tag.
type wireEvent struct {
	Timestamp float64  `json:"timestamp"`
	TRel      float64  `json:"t_rel"`
	Type      Kind     `json:"type"`
	Key       *string  `json:"key,omitempty"`
	XNorm     *float64 `json:"pos_x_norm,omitempty"`
	YNorm     *float64 `json:"pos_y_norm,omitempty"`
	Button    *string  `json:"button,omitempty"`
	Click     *string  `json:"event,omitempty"`
	ScrollDX  *int     `json:"scroll_dx,omitempty"`
	ScrollDY  *int     `json:"scroll_dy,omitempty"`
}

// MarshalJSON emits only the fields the event kind defines.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Timestamp: e.Timestamp, TRel: e.TRel, Type: e.Kind}
	switch e.Kind {
	case KindKeyPress, KindKeyRelease:
		key := e.Key
		w.Key = &key
	case KindMouseMove:
		x, y := e.X, e.Y
		w.XNorm, w.YNorm = &x, &y
	case KindMouseClick:
		x, y := e.X, e.Y
		button := e.Button
		click := ClickRelease
		if e.Pressed {
			click = ClickPress
		}
		w.XNorm, w.YNorm = &x, &y
		w.Button = &button
		w.Click = &click
	case KindMouseScroll:
		x, y := e.X, e.Y
		dx, dy := e.ScrollDX, e.ScrollDY
		w.XNorm, w.YNorm = &x, &y
		w.ScrollDX, w.ScrollDY = &dx, &dy
	default:
		return nil, fmt.Errorf("marshal event: unknown kind %q", e.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the wire shape; validation beyond shape (ranges,
// required fields per kind) happens at recording load time.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{Timestamp: w.Timestamp, TRel: w.TRel, Kind: w.Type}
	if w.Key != nil {
		e.Key = *w.Key
	}
	if w.XNorm != nil {
		e.X = *w.XNorm
	}
	if w.YNorm != nil {
		e.Y = *w.YNorm
	}
	if w.Button != nil {
		e.Button = *w.Button
	}
	if w.Click != nil {
		e.Pressed = *w.Click == ClickPress
	}
	if w.ScrollDX != nil {
		e.ScrollDX = *w.ScrollDX
	}
	if w.ScrollDY != nil {
		e.ScrollDY = *w.ScrollDY
	}
	return nil
}

// Validate checks the per-kind field contract.
func (e Event) Validate() error {
	if e.TRel < 0 {
		return fmt.Errorf("negative t_rel %v", e.TRel)
	}
	switch e.Kind {
	case KindKeyPress, KindKeyRelease:
		if e.Key == "" {
			return fmt.Errorf("%s event without key", e.Kind)
		}
	case KindMouseMove, KindMouseScroll:
		return e.validateNorm()
	case KindMouseClick:
		if e.Button == "" {
			return fmt.Errorf("mouse_click event without button")
		}
		return e.validateNorm()
	default:
		return fmt.Errorf("unknown event type %q", e.Kind)
	}
	return nil
}

func (e Event) validateNorm() error {
	if e.X < 0 || e.X > 1 || e.Y < 0 || e.Y > 1 {
		return fmt.Errorf("%s position (%v,%v) outside [0,1]", e.Kind, e.X, e.Y)
	}
	return nil
}
