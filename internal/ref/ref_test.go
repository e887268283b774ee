package ref_test

import (
	"runtime"
	"testing"

	"codeberg.org/mutker/thermloop/internal/ref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stream struct {
	name   string
	frames []int
}

func TestSlotReleaseInvalidatesRefs(t *testing.T) {
	slot := ref.NewSlot(42.5)
	r := slot.Ref()

	v, ok := r.Resolve()
	require.True(t, ok)
	assert.InDelta(t, 42.5, v, 0)

	slot.Release()
	_, ok = r.Resolve()
	assert.False(t, ok)

	slot.Set(7)
	v, ok = r.Resolve()
	require.True(t, ok)
	assert.InDelta(t, 7.0, v, 0)
}

func TestZeroSlotIsEmpty(t *testing.T) {
	var slot ref.Slot[string]
	_, ok := slot.Resolve()
	assert.False(t, ok)
}

func TestWeakDoesNotKeepTargetAlive(t *testing.T) {
	s := &stream{name: "depth", frames: make([]int, 64)}
	r := ref.Weak(s)

	got, ok := r.Resolve()
	require.True(t, ok)
	assert.Equal(t, "depth", got.name)
	got = nil
	runtime.KeepAlive(s)

	s = nil
	runtime.GC()
	runtime.GC()

	_, ok = r.Resolve()
	assert.False(t, ok)
}

func TestMapFollowsSource(t *testing.T) {
	slot := ref.NewSlot(3)
	r := ref.Map[int, string](slot, func(v int) string {
		if v > 2 {
			return "big"
		}
		return "small"
	})

	v, ok := r.Resolve()
	require.True(t, ok)
	assert.Equal(t, "big", v)

	slot.Release()
	_, ok = r.Resolve()
	assert.False(t, ok)
}

func TestNone(t *testing.T) {
	_, ok := ref.None[int]().Resolve()
	assert.False(t, ok)
}
