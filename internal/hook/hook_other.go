//go:build !linux

package hook

// stubHook is used on platforms without a hook backend.
type stubHook struct{}

func newPlatformHook() Hook {
	return &stubHook{}
}

// Available returns false on unsupported platforms.
func (s *stubHook) Available() (bool, string) {
	return false, "global input hooks not implemented for this platform"
}

// Subscribe always fails on unsupported platforms.
func (s *stubHook) Subscribe(Callbacks, Options) (Subscription, error) {
	return nil, ErrNotAvailable
}
