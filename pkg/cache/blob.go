package cache

import (
	"encoding/binary"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/tag"
)

// BlobMagic identifies a marshalled blob.
var BlobMagic = [4]byte{0x74, 0x61, 0x67, 0x64} // "tagd"

// BlobHeaderSize is the fixed size of a marshalled blob header.
const BlobHeaderSize = 32

// ErrInvalidBlob is returned for blobs that break their offset invariants or
// cannot be decoded.
var ErrInvalidBlob = errors.New("invalid tag blob")

// Fixup describes a pointer slot in blob data that must hold the address of
// another location in the same blob.
type Fixup struct {
	WriteOffset  uint32 // Offset of the pointer slot
	TargetOffset uint32 // Blob-relative offset the slot points at
}

// Blob is the serialized form of one structure instance.
type Blob struct {
	Group            tag.Tag
	MainStructOffset uint32
	Dependencies     mapset.Set[int32] // Indices of referenced tags
	PointerFixups    []Fixup
	// Offsets of resource reference slots, in structural order.
	ResourcePointerOffsets []uint32
	Data                   []byte
}

// NewBlob creates an empty blob for the given group.
func NewBlob(group tag.Tag) *Blob {
	return &Blob{
		Group:        group,
		Dependencies: mapset.NewThreadUnsafeSet[int32](),
	}
}

// SortedDependencies returns the dependency indices in ascending order.
func (b *Blob) SortedDependencies() []int32 {
	if b.Dependencies == nil {
		return nil
	}
	deps := b.Dependencies.ToSlice()
	slices.Sort(deps)
	return deps
}

// Validate checks that every recorded offset lies inside Data.
func (b *Blob) Validate() error {
	size := uint32(len(b.Data))
	if size == 0 {
		if b.MainStructOffset != 0 || len(b.PointerFixups) != 0 || len(b.ResourcePointerOffsets) != 0 {
			return errors.Wrap(ErrInvalidBlob, "offsets recorded for empty data")
		}
		return nil
	}
	if b.MainStructOffset >= size {
		return errors.Wrapf(ErrInvalidBlob, "main struct offset 0x%x outside data (0x%x bytes)", b.MainStructOffset, size)
	}
	for _, f := range b.PointerFixups {
		if f.WriteOffset >= size || f.TargetOffset >= size {
			return errors.Wrapf(ErrInvalidBlob, "fixup 0x%x -> 0x%x outside data (0x%x bytes)", f.WriteOffset, f.TargetOffset, size)
		}
	}
	for _, off := range b.ResourcePointerOffsets {
		if off >= size {
			return errors.Wrapf(ErrInvalidBlob, "resource pointer 0x%x outside data (0x%x bytes)", off, size)
		}
	}
	return nil
}

// MarshalBinary encodes the blob with all of its metadata.
func (b *Blob) MarshalBinary() ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	deps := b.SortedDependencies()

	size := BlobHeaderSize + 4*len(deps) + 8*len(b.PointerFixups) + 4*len(b.ResourcePointerOffsets) + len(b.Data)
	buf := make([]byte, size)

	copy(buf[0:4], BlobMagic[:])
	binary.LittleEndian.PutUint32(buf[4:8], b.Group.Value())
	binary.LittleEndian.PutUint32(buf[8:12], b.MainStructOffset)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(deps)))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(b.PointerFixups)))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(b.ResourcePointerOffsets)))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(len(b.Data)))
	// buf[28:32] reserved

	off := BlobHeaderSize
	for _, d := range deps {
		binary.LittleEndian.PutUint32(buf[off:], uint32(d))
		off += 4
	}
	for _, f := range b.PointerFixups {
		binary.LittleEndian.PutUint32(buf[off:], f.WriteOffset)
		binary.LittleEndian.PutUint32(buf[off+4:], f.TargetOffset)
		off += 8
	}
	for _, r := range b.ResourcePointerOffsets {
		binary.LittleEndian.PutUint32(buf[off:], r)
		off += 4
	}
	copy(buf[off:], b.Data)

	return buf, nil
}

// UnmarshalBinary decodes a blob produced by MarshalBinary.
func (b *Blob) UnmarshalBinary(data []byte) error {
	if len(data) < BlobHeaderSize {
		return errors.Wrapf(ErrInvalidBlob, "header too short: need %d, got %d", BlobHeaderSize, len(data))
	}
	var magic [4]byte
	copy(magic[:], data[0:4])
	if magic != BlobMagic {
		return errors.Wrapf(ErrInvalidBlob, "magic: expected %x, got %x", BlobMagic, magic)
	}

	group := tag.FromInt(binary.LittleEndian.Uint32(data[4:8]))
	mainOffset := binary.LittleEndian.Uint32(data[8:12])
	depCount := int(binary.LittleEndian.Uint32(data[12:16]))
	fixupCount := int(binary.LittleEndian.Uint32(data[16:20]))
	resourceCount := int(binary.LittleEndian.Uint32(data[20:24]))
	dataLen := int(binary.LittleEndian.Uint32(data[24:28]))

	need := uint64(BlobHeaderSize) + 4*uint64(depCount) + 8*uint64(fixupCount) + 4*uint64(resourceCount) + uint64(dataLen)
	if uint64(len(data)) < need {
		return errors.Wrapf(ErrInvalidBlob, "body too short: need %d, got %d", need, len(data))
	}

	decoded := NewBlob(group)
	decoded.MainStructOffset = mainOffset

	off := BlobHeaderSize
	for i := 0; i < depCount; i++ {
		decoded.Dependencies.Add(int32(binary.LittleEndian.Uint32(data[off:])))
		off += 4
	}
	decoded.PointerFixups = make([]Fixup, fixupCount)
	for i := range decoded.PointerFixups {
		decoded.PointerFixups[i] = Fixup{
			WriteOffset:  binary.LittleEndian.Uint32(data[off:]),
			TargetOffset: binary.LittleEndian.Uint32(data[off+4:]),
		}
		off += 8
	}
	decoded.ResourcePointerOffsets = make([]uint32, resourceCount)
	for i := range decoded.ResourcePointerOffsets {
		decoded.ResourcePointerOffsets[i] = binary.LittleEndian.Uint32(data[off:])
		off += 4
	}
	decoded.Data = make([]byte, dataLen)
	copy(decoded.Data, data[off:off+dataLen])

	if err := decoded.Validate(); err != nil {
		return err
	}
	*b = *decoded
	return nil
}
