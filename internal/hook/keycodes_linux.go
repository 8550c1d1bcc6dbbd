//go:build linux

package hook

// Linux input event types and codes used by the evdev backend. Values from
// <linux/input-event-codes.h>.
const (
	evKey = 0x01
	evRel = 0x02

	relX      = 0x00
	relY      = 0x01
	relWheel  = 0x08
	relHWheel = 0x06

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112

	keyValueRelease = 0
	keyValuePress   = 1
	keyValueRepeat  = 2
)

// keyNames maps Linux keycodes to the canonical key vocabulary shared with
// the replay engine. Unlisted codes fall back to a "key_<code>" form so no
// event is silently dropped.
var keyNames = map[uint16]string{
	1: "esc", 2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7",
	9: "8", 10: "9", 11: "0", 12: "-", 13: "=", 14: "backspace", 15: "tab",
	16: "q", 17: "w", 18: "e", 19: "r", 20: "t", 21: "y", 22: "u", 23: "i",
	24: "o", 25: "p", 26: "[", 27: "]", 28: "enter", 29: "ctrl",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g", 35: "h", 36: "j", 37: "k",
	38: "l", 39: ";", 40: "'", 41: "`", 42: "shift", 43: "\\",
	44: "z", 45: "x", 46: "c", 47: "v", 48: "b", 49: "n", 50: "m",
	51: ",", 52: ".", 53: "/", 54: "shift", 55: "*", 56: "alt", 57: "space",
	58: "caps_lock",
	59: "f1", 60: "f2", 61: "f3", 62: "f4", 63: "f5", 64: "f6",
	65: "f7", 66: "f8", 67: "f9", 68: "f10", 87: "f11", 88: "f12",
	97: "ctrl", 100: "alt", 125: "cmd", 126: "cmd",
	102: "home", 103: "up", 104: "page_up", 105: "left", 106: "right",
	107: "end", 108: "down", 109: "page_down", 110: "insert", 111: "delete",
	119: "pause", 99: "print_screen",
}

// buttonNames maps evdev button codes to canonical button names.
var buttonNames = map[uint16]string{
	btnLeft:   "left",
	btnRight:  "right",
	btnMiddle: "middle",
}

// keyCodes is the inverse of keyNames; aliases (left/right modifiers)
// resolve to the lowest code.
var keyCodes = func() map[string]uint16 {
	m := make(map[string]uint16, len(keyNames))
	for code, name := range keyNames {
		if prev, ok := m[name]; !ok || code < prev {
			m[name] = code
		}
	}
	return m
}()

var buttonCodes = map[string]uint16{
	"left":   btnLeft,
	"right":  btnRight,
	"middle": btnMiddle,
}

// KeyCodeFor resolves a canonical key name to its evdev keycode. Shared
// with the input-synthesis backend so recordings replay with the same
// vocabulary they were captured with.
func KeyCodeFor(name string) (uint16, bool) {
	code, ok := keyCodes[name]
	return code, ok
}

// ButtonCodeFor resolves a canonical button name to its evdev code.
func ButtonCodeFor(name string) (uint16, bool) {
	code, ok := buttonCodes[name]
	return code, ok
}

// AllKeyCodes lists every keycode in the canonical vocabulary.
func AllKeyCodes() []uint16 {
	out := make([]uint16, 0, len(keyNames))
	for code := range keyNames {
		out = append(out, code)
	}
	return out
}
