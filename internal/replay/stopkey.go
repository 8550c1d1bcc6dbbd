package replay

import (
	"sync"
	"time"

	"screenrec/internal/hook"
)

// DefaultStopKey cancels a running replay when double-tapped.
const DefaultStopKey = "esc"

// DefaultStopWindow is how close together the two taps must land.
const DefaultStopWindow = 500 * time.Millisecond

// ArmStopKey wires a double-tap of key into the token: two presses within
// window cancel the replay. Returns the live subscription so the caller
// can detach it after the run. The hook capability is optional for
// replay; callers skip arming when no hook backend exists.
func ArmStopKey(hk hook.Hook, key string, window time.Duration, tok *Token, clock func() time.Time) (hook.Subscription, error) {
	if key == "" {
		key = DefaultStopKey
	}
	if window <= 0 {
		window = DefaultStopWindow
	}
	if clock == nil {
		clock = time.Now
	}

	var mu sync.Mutex
	var lastTap time.Time

	return hk.Subscribe(hook.Callbacks{
		OnKeyPress: func(pressed string) {
			if pressed != key {
				return
			}
			now := clock()
			mu.Lock()
			double := !lastTap.IsZero() && now.Sub(lastTap) <= window
			lastTap = now
			mu.Unlock()
			if double {
				tok.Cancel()
			}
		},
	}, hook.Options{})
}
