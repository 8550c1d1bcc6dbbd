//go:build !linux

package display

func newPlatformProvider() Provider {
	return nil
}
