package cache

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoTools/tagcache/pkg/tag"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		target    Target
		order     binary.ByteOrder
		pointer   int
		reference int
	}{
		{NewTarget(Halo2Vista, PlatformOriginal), binary.LittleEndian, 4, 8},
		{NewTarget(Halo3Retail, PlatformOriginal), binary.BigEndian, 4, 16},
		{NewTarget(Halo3ODST, PlatformOriginal), binary.BigEndian, 4, 16},
		{NewTarget(HaloOnline106708, PlatformOriginal), binary.LittleEndian, 4, 16},
		{NewTarget(HaloReach, PlatformOriginal), binary.BigEndian, 4, 16},
		{NewTarget(Halo3Retail, PlatformMCC), binary.LittleEndian, 8, 16},
		{NewTarget(HaloReach, PlatformMCC), binary.LittleEndian, 8, 16},
	}

	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			require.NoError(t, tt.target.Validate())
			assert.Equal(t, tt.order, tt.target.ByteOrder())
			assert.Equal(t, tt.pointer, tt.target.PointerSize())
			assert.Equal(t, tt.reference, tt.target.TagReferenceSize())
		})
	}

	t.Run("Wildcards", func(t *testing.T) {
		assert.ErrorIs(t, NewTarget(VersionUnknown, PlatformMCC).Validate(), ErrInvalidTarget)
		assert.ErrorIs(t, NewTarget(Halo3Retail, PlatformAny).Validate(), ErrInvalidTarget)
		assert.ErrorIs(t, NewTarget(Halo4+1, PlatformOriginal).Validate(), ErrInvalidTarget)
	})

	t.Run("Parse", func(t *testing.T) {
		target, err := ParseTarget("halo3odst", "MCC")
		require.NoError(t, err)
		assert.Equal(t, NewTarget(Halo3ODST, PlatformMCC), target)

		_, err = ParseTarget("Unknown", "mcc")
		assert.ErrorIs(t, err, ErrInvalidTarget)
		_, err = ParseTarget("Halo3Retail", "ps3")
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})

	t.Run("Ordering", func(t *testing.T) {
		assert.Less(t, Halo2Vista, Halo3Beta)
		assert.Less(t, Halo3ODST, HaloOnline106708)
		assert.Less(t, HaloOnline700123, HaloReach)
	})
}

func testBlob() *Blob {
	b := NewBlob(tag.New("rmop"))
	b.Data = make([]byte, 0x40)
	for i := range b.Data {
		b.Data[i] = byte(i)
	}
	b.MainStructOffset = 0
	b.Dependencies.Append(7, 2, 7, 3)
	b.PointerFixups = []Fixup{{WriteOffset: 4, TargetOffset: 0x20}}
	b.ResourcePointerOffsets = []uint32{0x10, 0x18}
	return b
}

func TestBlob(t *testing.T) {
	t.Run("MarshalUnmarshal", func(t *testing.T) {
		original := testBlob()

		data, err := original.MarshalBinary()
		require.NoError(t, err)

		decoded := &Blob{}
		require.NoError(t, decoded.UnmarshalBinary(data))

		assert.Equal(t, original.Group, decoded.Group)
		assert.Equal(t, original.MainStructOffset, decoded.MainStructOffset)
		assert.Equal(t, []int32{2, 3, 7}, decoded.SortedDependencies())
		assert.Equal(t, original.PointerFixups, decoded.PointerFixups)
		assert.Equal(t, original.ResourcePointerOffsets, decoded.ResourcePointerOffsets)
		assert.Equal(t, original.Data, decoded.Data)
	})

	t.Run("OffsetsOutsideData", func(t *testing.T) {
		b := testBlob()
		b.PointerFixups = append(b.PointerFixups, Fixup{WriteOffset: 0x40, TargetOffset: 0})
		assert.ErrorIs(t, b.Validate(), ErrInvalidBlob)

		b = testBlob()
		b.MainStructOffset = 0x40
		assert.ErrorIs(t, b.Validate(), ErrInvalidBlob)

		b = testBlob()
		b.ResourcePointerOffsets = []uint32{0x100}
		_, err := b.MarshalBinary()
		assert.ErrorIs(t, err, ErrInvalidBlob)
	})

	t.Run("Truncated", func(t *testing.T) {
		data, err := testBlob().MarshalBinary()
		require.NoError(t, err)

		err = (&Blob{}).UnmarshalBinary(data[:len(data)-1])
		assert.True(t, errors.Is(err, ErrInvalidBlob))

		err = (&Blob{}).UnmarshalBinary(data[:BlobHeaderSize-1])
		assert.True(t, errors.Is(err, ErrInvalidBlob))
	})

	t.Run("BadMagic", func(t *testing.T) {
		data, err := testBlob().MarshalBinary()
		require.NoError(t, err)
		data[0] = 'x'
		assert.ErrorIs(t, (&Blob{}).UnmarshalBinary(data), ErrInvalidBlob)
	})
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rmop.tagd")
	target := NewTarget(HaloReach, PlatformMCC)
	original := testBlob()

	require.NoError(t, WriteFile(path, original, target))

	decoded, gotTarget, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, target, gotTarget)
	assert.Equal(t, original.Data, decoded.Data)
	assert.Equal(t, original.SortedDependencies(), decoded.SortedDependencies())

	err = WriteFile(path, original, NewTarget(VersionUnknown, PlatformAny))
	assert.ErrorIs(t, err, ErrInvalidTarget)
}
