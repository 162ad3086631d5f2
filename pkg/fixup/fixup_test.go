package fixup

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoTools/tagcache/pkg/cache"
)

func TestApply(t *testing.T) {
	for _, width := range []int{4, 8} {
		for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
			t.Run(fmt.Sprintf("%s/%d", order, width), func(t *testing.T) {
				buf := make([]byte, 0x40)
				tr := NewTracker()
				tr.Add(0x04, 0x20)
				tr.Add(0x10, 0x30)

				require.NoError(t, tr.Apply(buf, order, width))
				assert.True(t, tr.Applied())
				assert.Equal(t, uint64(0x20), Pointer(buf[0x04:], order, width))
				assert.Equal(t, uint64(0x30), Pointer(buf[0x10:], order, width))
			})
		}
	}
}

func TestApplyOnce(t *testing.T) {
	buf := make([]byte, 0x20)
	tr := NewTracker()
	tr.Add(0, 0x10)

	require.NoError(t, tr.Apply(buf, binary.LittleEndian, 4))
	snapshot := append([]byte(nil), buf...)

	err := tr.Apply(buf, binary.LittleEndian, 4)
	assert.ErrorIs(t, err, ErrFixupsAlreadyApplied)
	assert.Equal(t, snapshot, buf)
}

func TestDuplicates(t *testing.T) {
	t.Run("Identical", func(t *testing.T) {
		tr := NewTracker()
		tr.Add(8, 0x10)
		tr.Add(8, 0x10)
		assert.Equal(t, 1, tr.Len())
		assert.Equal(t, []cache.Fixup{{WriteOffset: 8, TargetOffset: 0x10}}, tr.Fixups())
	})

	t.Run("Conflicting", func(t *testing.T) {
		buf := make([]byte, 0x20)
		tr := NewTracker()
		tr.Add(8, 0x10)
		tr.Add(8, 0x14)

		err := tr.Apply(buf, binary.LittleEndian, 4)
		assert.ErrorIs(t, err, ErrConflictingFixup)
		assert.False(t, tr.Applied())
		assert.Equal(t, make([]byte, 0x20), buf)
	})
}

func TestValidate(t *testing.T) {
	tr := NewTracker()
	tr.Add(0x1C, 0)
	assert.NoError(t, tr.Validate(0x20, 4))
	assert.ErrorIs(t, tr.Validate(0x20, 8), ErrFixupOutOfRange)
	assert.ErrorIs(t, tr.Validate(0x20, 2), ErrInvalidWidth)

	tr = NewTracker()
	tr.Add(0, 0x20)
	assert.ErrorIs(t, tr.Validate(0x20, 4), ErrFixupOutOfRange)
}
