package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenrec/internal/hook"
)

func TestStopKeyDoubleTapCancels(t *testing.T) {
	clock := newReplayClock()
	tok := NewToken()
	hk := hook.NewSimulated()

	sub, err := ArmStopKey(hk, "", 0, tok, clock.Now)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	hk.KeyPress("esc")
	assert.False(t, tok.Cancelled(), "single tap must not cancel")

	clock.Sleep(100 * time.Millisecond)
	hk.KeyPress("esc")
	assert.True(t, tok.Cancelled())
}

func TestStopKeyTapsOutsideWindow(t *testing.T) {
	clock := newReplayClock()
	tok := NewToken()
	hk := hook.NewSimulated()

	sub, err := ArmStopKey(hk, "esc", 500*time.Millisecond, tok, clock.Now)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	hk.KeyPress("esc")
	clock.Sleep(time.Second)
	hk.KeyPress("esc")
	assert.False(t, tok.Cancelled(), "taps a second apart must not cancel")

	clock.Sleep(200 * time.Millisecond)
	hk.KeyPress("esc")
	assert.True(t, tok.Cancelled(), "the third tap pairs with the second")
}

func TestStopKeyIgnoresOtherKeys(t *testing.T) {
	clock := newReplayClock()
	tok := NewToken()
	hk := hook.NewSimulated()

	sub, err := ArmStopKey(hk, "esc", 500*time.Millisecond, tok, clock.Now)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	hk.KeyPress("a")
	hk.KeyPress("a")
	hk.KeyPress("esc")
	hk.KeyPress("b")
	assert.False(t, tok.Cancelled())
}
