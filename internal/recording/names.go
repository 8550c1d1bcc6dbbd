package recording

import "strings"

// legacyKeyNames maps the known legacy "Key.<core>" vocabulary to
// canonical names. The table is backend-specific and deliberately small;
// unmapped cores pass through unchanged and are flagged by the loader
// rather than guessed at.
var legacyKeyNames = map[string]string{
	"ctrl_l":  "ctrl",
	"ctrl_r":  "ctrl",
	"shift_l": "shift",
	"shift_r": "shift",
	"alt_l":   "alt",
	"alt_r":   "alt",
	"alt_gr":  "alt",
	"cmd_l":   "cmd",
	"cmd_r":   "cmd",
	"escape":  "esc",
	"return":  "enter",
	// Cores that already match the canonical vocabulary.
	"space": "space", "tab": "tab", "backspace": "backspace",
	"delete": "delete", "enter": "enter", "esc": "esc",
	"up": "up", "down": "down", "left": "left", "right": "right",
	"home": "home", "end": "end", "page_up": "page_up", "page_down": "page_down",
	"caps_lock": "caps_lock", "insert": "insert",
}

// NormalizeKeyName maps a legacy "Key.*" form to its canonical name.
// Canonical names pass through untouched. The flagged result is true when
// a legacy-form name had no table entry and its core was passed through.
func NormalizeKeyName(name string) (normalized string, flagged bool) {
	if !strings.HasPrefix(name, "Key.") {
		return name, false
	}
	core := strings.SplitN(name, ".", 2)[1]
	if canonical, ok := legacyKeyNames[core]; ok {
		return canonical, false
	}
	return core, true
}

// NormalizeButtonName strips the legacy "Button.*" prefix; empty names
// default to "left".
func NormalizeButtonName(button string) string {
	if strings.HasPrefix(button, "Button.") {
		return strings.SplitN(button, ".", 2)[1]
	}
	if button == "" {
		return "left"
	}
	return button
}
