package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocWritesSurviveGrowth(t *testing.T) {
	a := New(16)
	arr := Alloc[int64](a, 4)
	s := arr.Slice()
	for i := range s {
		s[i] = int64(i * i)
	}
	// force a chunk boundary
	_ = Alloc[int64](a, 1024)
	for i, v := range arr.Slice() {
		assert.Equal(t, int64(i*i), v)
	}
}

func TestShrinkTruncates(t *testing.T) {
	a := New(64)
	arr := Alloc[int32](a, 10)
	arr.Shrink(3)
	assert.Equal(t, 3, arr.Len())
}

func TestShrinkPanicsOnGrow(t *testing.T) {
	a := New(64)
	arr := Alloc[int32](a, 3)
	require.Panics(t, func() { arr.Shrink(10) })
}

func TestZeroLengthAlloc(t *testing.T) {
	a := New(64)
	arr := Alloc[int32](a, 0)
	assert.Equal(t, 0, arr.Len())
}

func TestAlignment(t *testing.T) {
	a := New(64)
	_ = Alloc[int8](a, 1)
	arr := Alloc[int64](a, 1)
	assert.Len(t, arr.Slice(), 1)
	assert.Equal(t, uintptr(0), uintptr(unsafe.Pointer(&arr.Slice()[0]))%unsafe.Alignof(int64(0)))
}
