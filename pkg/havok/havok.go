// Package havok models the packed fields of Havok runtime structures stored
// inside tags.
package havok

import "github.com/pkg/errors"

// Array capacity word layout.
const (
	CapacityMask   uint32 = 0x3FFFFFFF
	FlagMask       uint32 = 0xC0000000
	DontDeallocate uint32 = 0x80000000 // Storage is not the array's to free
	Locked         uint32 = 0x40000000 // Destructor never runs
)

// ErrCapacityOverflow is returned for capacities wider than 30 bits.
var ErrCapacityOverflow = errors.New("array capacity overflow")

// ArrayCapacity is the capacity-and-flags word of an hkArray.
type ArrayCapacity uint32

// NewArrayCapacity packs a capacity and flag bits.
func NewArrayCapacity(capacity, flags uint32) (ArrayCapacity, error) {
	return ArrayCapacity(0).WithFlags(flags).WithCapacity(capacity)
}

// Capacity returns the element capacity.
func (c ArrayCapacity) Capacity() uint32 {
	return uint32(c) & CapacityMask
}

// Flags returns the flag bits.
func (c ArrayCapacity) Flags() uint32 {
	return uint32(c) & FlagMask
}

// DontDeallocate reports whether the storage is owned elsewhere.
func (c ArrayCapacity) DontDeallocate() bool {
	return uint32(c)&DontDeallocate != 0
}

// Locked reports whether the array's destructor never runs.
func (c ArrayCapacity) Locked() bool {
	return uint32(c)&Locked != 0
}

// WithCapacity replaces the capacity, keeping the flags.
func (c ArrayCapacity) WithCapacity(n uint32) (ArrayCapacity, error) {
	if n&^CapacityMask != 0 {
		return c, errors.Wrapf(ErrCapacityOverflow, "%d", n)
	}
	return ArrayCapacity(c.Flags() | n), nil
}

// WithFlags sets flag bits. Bits outside FlagMask are ignored.
func (c ArrayCapacity) WithFlags(flags uint32) ArrayCapacity {
	return ArrayCapacity(uint32(c) | flags&FlagMask)
}

// WithoutFlags clears flag bits. Bits outside FlagMask are ignored.
func (c ArrayCapacity) WithoutFlags(flags uint32) ArrayCapacity {
	return ArrayCapacity(uint32(c) &^ (flags & FlagMask))
}
