// Package fixup records pointer slots written during serialization and
// patches them once every out-of-line region has its final offset.
package fixup

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/cache"
)

var (
	ErrFixupsAlreadyApplied = errors.New("fixups already applied")
	ErrConflictingFixup     = errors.New("conflicting fixup")
	ErrFixupOutOfRange      = errors.New("fixup out of range")
	ErrInvalidWidth         = errors.New("invalid pointer width")
)

// Tracker accumulates fixups for a single write pass. It is not safe for
// concurrent use; each serialization owns its own tracker.
type Tracker struct {
	fixups  []cache.Fixup
	targets map[uint32]uint32
	applied bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{targets: make(map[uint32]uint32)}
}

// Add records that the slot at writeOffset must point at targetOffset.
// Repeating an identical entry has no effect.
func (t *Tracker) Add(writeOffset, targetOffset uint32) {
	if prev, ok := t.targets[writeOffset]; ok && prev == targetOffset {
		return
	} else if !ok {
		t.targets[writeOffset] = targetOffset
	}
	t.fixups = append(t.fixups, cache.Fixup{WriteOffset: writeOffset, TargetOffset: targetOffset})
}

// Len returns the number of recorded entries.
func (t *Tracker) Len() int {
	return len(t.fixups)
}

// Fixups returns a copy of the entries in the order they were recorded.
func (t *Tracker) Fixups() []cache.Fixup {
	out := make([]cache.Fixup, len(t.fixups))
	copy(out, t.fixups)
	return out
}

// Applied reports whether Apply has completed.
func (t *Tracker) Applied() bool {
	return t.applied
}

// Validate checks the entries against a buffer of size bytes and a pointer
// width without modifying anything.
func (t *Tracker) Validate(size, width int) error {
	if width != 4 && width != 8 {
		return errors.Wrapf(ErrInvalidWidth, "%d", width)
	}
	for _, f := range t.fixups {
		if target := t.targets[f.WriteOffset]; target != f.TargetOffset {
			return errors.Wrapf(ErrConflictingFixup, "slot 0x%x points at 0x%x and 0x%x", f.WriteOffset, target, f.TargetOffset)
		}
		if int64(f.WriteOffset)+int64(width) > int64(size) {
			return errors.Wrapf(ErrFixupOutOfRange, "slot 0x%x in 0x%x bytes", f.WriteOffset, size)
		}
		if int64(f.TargetOffset) >= int64(size) {
			return errors.Wrapf(ErrFixupOutOfRange, "target 0x%x in 0x%x bytes", f.TargetOffset, size)
		}
	}
	return nil
}

// Apply writes every target offset into its slot. It validates first and
// leaves buf untouched on error. A tracker can be applied only once.
func (t *Tracker) Apply(buf []byte, order binary.ByteOrder, width int) error {
	if t.applied {
		return ErrFixupsAlreadyApplied
	}
	if err := t.Validate(len(buf), width); err != nil {
		return err
	}
	for _, f := range t.fixups {
		PutPointer(buf[f.WriteOffset:], order, width, uint64(f.TargetOffset))
	}
	t.applied = true
	return nil
}

// PutPointer writes a pointer of the given width.
func PutPointer(b []byte, order binary.ByteOrder, width int, v uint64) {
	if width == 8 {
		order.PutUint64(b, v)
		return
	}
	order.PutUint32(b, uint32(v))
}

// Pointer reads a pointer of the given width.
func Pointer(b []byte, order binary.ByteOrder, width int) uint64 {
	if width == 8 {
		return order.Uint64(b)
	}
	return uint64(order.Uint32(b))
}
