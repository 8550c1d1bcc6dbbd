package hook

import "sync"

// Simulated is an in-process hook backend. Tests and the --simulate
// recording path inject events directly; subscribers receive them exactly
// as they would from a platform backend.
type Simulated struct {
	mu   sync.Mutex
	subs map[*simSubscription]struct{}
}

// NewSimulated returns an empty simulated hook.
func NewSimulated() *Simulated {
	return &Simulated{subs: make(map[*simSubscription]struct{})}
}

// Available always reports true.
func (s *Simulated) Available() (bool, string) {
	return true, "simulated input hook"
}

// Subscribe registers callbacks for injected events.
func (s *Simulated) Subscribe(cb Callbacks, _ Options) (Subscription, error) {
	sub := &simSubscription{parent: s, cb: cb}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub, nil
}

func (s *Simulated) each(fn func(cb Callbacks)) {
	s.mu.Lock()
	subs := make([]*simSubscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()
	for _, sub := range subs {
		fn(sub.cb)
	}
}

// KeyPress injects a key press.
func (s *Simulated) KeyPress(key string) {
	s.each(func(cb Callbacks) {
		if cb.OnKeyPress != nil {
			cb.OnKeyPress(key)
		}
	})
}

// KeyRelease injects a key release.
func (s *Simulated) KeyRelease(key string) {
	s.each(func(cb Callbacks) {
		if cb.OnKeyRelease != nil {
			cb.OnKeyRelease(key)
		}
	})
}

// MouseMove injects pointer motion to an absolute position.
func (s *Simulated) MouseMove(x, y int) {
	s.each(func(cb Callbacks) {
		if cb.OnMouseMove != nil {
			cb.OnMouseMove(x, y)
		}
	})
}

// MouseClick injects a button press or release.
func (s *Simulated) MouseClick(x, y int, button string, pressed bool) {
	s.each(func(cb Callbacks) {
		if cb.OnMouseClick != nil {
			cb.OnMouseClick(x, y, button, pressed)
		}
	})
}

// MouseScroll injects wheel motion.
func (s *Simulated) MouseScroll(x, y, dx, dy int) {
	s.each(func(cb Callbacks) {
		if cb.OnMouseScroll != nil {
			cb.OnMouseScroll(x, y, dx, dy)
		}
	})
}

type simSubscription struct {
	parent *Simulated
	cb     Callbacks
	once   sync.Once
}

func (s *simSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.parent.mu.Lock()
		delete(s.parent.subs, s)
		s.parent.mu.Unlock()
	})
	return nil
}
