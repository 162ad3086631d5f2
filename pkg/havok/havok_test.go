package havok

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayCapacity(t *testing.T) {
	t.Run("Masks", func(t *testing.T) {
		c := ArrayCapacity(0xC0000010)
		assert.Equal(t, uint32(0x10), c.Capacity())
		assert.Equal(t, uint32(0xC0000000), c.Flags())
		assert.True(t, c.DontDeallocate())
		assert.True(t, c.Locked())

		c = ArrayCapacity(0x3FFFFFFF)
		assert.Equal(t, uint32(0x3FFFFFFF), c.Capacity())
		assert.False(t, c.DontDeallocate())
		assert.False(t, c.Locked())
	})

	t.Run("New", func(t *testing.T) {
		c, err := NewArrayCapacity(100, DontDeallocate)
		require.NoError(t, err)
		assert.Equal(t, ArrayCapacity(0x80000064), c)

		_, err = NewArrayCapacity(CapacityMask+1, 0)
		assert.ErrorIs(t, err, ErrCapacityOverflow)
	})

	t.Run("WithCapacityKeepsFlags", func(t *testing.T) {
		c, err := ArrayCapacity(Locked | 5).WithCapacity(7)
		require.NoError(t, err)
		assert.True(t, c.Locked())
		assert.Equal(t, uint32(7), c.Capacity())
	})

	t.Run("FlagsKeepCapacity", func(t *testing.T) {
		c := ArrayCapacity(42).WithFlags(DontDeallocate | 0xFF)
		assert.Equal(t, uint32(42), c.Capacity())
		assert.True(t, c.DontDeallocate())

		c = c.WithoutFlags(DontDeallocate | 0xFF)
		assert.Equal(t, ArrayCapacity(42), c)
	})
}
