package serializer

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/collect"
	"github.com/EchoTools/tagcache/pkg/fixup"
	"github.com/EchoTools/tagcache/pkg/layout"
	"github.com/EchoTools/tagcache/pkg/tag"
	"github.com/EchoTools/tagcache/pkg/tagdata"
)

type writer struct {
	registry *layout.Registry
	target   cache.Target
	order    binary.ByteOrder
	ptr      int
	buf      []byte
	fixups   *fixup.Tracker
	collect  *collect.Collector
	active   []*tagdata.Struct // structures being written, root first
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// reserve appends a zeroed region and returns its offset. w.buf may be
// reallocated, so callers must not hold slices of it across calls.
func (w *writer) reserve(size, align int) int {
	off := alignUp(len(w.buf), align)
	if grow := off + size - len(w.buf); grow > 0 {
		w.buf = append(w.buf, make([]byte, grow)...)
	}
	return off
}

func typeError(s *layout.Slot, v any) error {
	return errors.Wrapf(ErrFieldType, "expected %s, got %T", s.Kind, v)
}

func (w *writer) writeStruct(l *layout.Layout, s *tagdata.Struct, base int) error {
	if s == nil {
		s = l.New()
	}
	if s.Type != "" && s.Type != l.Name {
		return errors.Wrapf(ErrFieldType, "expected %s, got %s", l.Name, s.Type)
	}
	for _, a := range w.active {
		if a == s {
			return errors.Wrapf(ErrCyclicGraph, "%s", l.Name)
		}
	}
	if len(w.active) >= MaxDepth {
		return errors.Wrapf(ErrTooDeep, "%s at 0x%x", l.Name, base)
	}
	w.active = append(w.active, s)
	defer func() { w.active = w.active[:len(w.active)-1] }()

	for i := range l.Fields {
		slot := &l.Fields[i]
		if slot.Kind == layout.KindPadding {
			continue
		}
		v, ok := s.Fields[slot.Name]
		if !ok {
			v = slot.Zero()
		}
		if err := w.writeValue(slot, base+slot.Offset, v); err != nil {
			return errors.Wrapf(err, "%s.%s", l.Name, slot.Name)
		}
	}
	return nil
}

func (w *writer) writeValue(s *layout.Slot, off int, v any) error {
	b := w.buf[off : off+s.Size]

	switch s.Kind {
	case layout.KindInt8:
		x, ok := v.(int8)
		if !ok {
			return typeError(s, v)
		}
		b[0] = byte(x)
	case layout.KindUint8:
		x, ok := v.(uint8)
		if !ok {
			return typeError(s, v)
		}
		b[0] = x
	case layout.KindInt16:
		x, ok := v.(int16)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint16(b, uint16(x))
	case layout.KindUint16:
		x, ok := v.(uint16)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint16(b, x)
	case layout.KindInt32:
		x, ok := v.(int32)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint32(b, uint32(x))
	case layout.KindUint32:
		x, ok := v.(uint32)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint32(b, x)
	case layout.KindInt64:
		x, ok := v.(int64)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint64(b, uint64(x))
	case layout.KindUint64:
		x, ok := v.(uint64)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint64(b, x)
	case layout.KindFloat32:
		x, ok := v.(float32)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint32(b, math.Float32bits(x))
	case layout.KindFloat64:
		x, ok := v.(float64)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint64(b, math.Float64bits(x))

	case layout.KindTag:
		x, ok := v.(tag.Tag)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint32(b, x.Value())
	case layout.KindCharTag:
		x, ok := v.(tag.Tag)
		if !ok {
			return typeError(s, v)
		}
		// NUL reads back as a space, so it is never written.
		raw := x.Bytes()
		chars := tag.FromChars(raw[:]).Bytes()
		copy(b, chars[:])
	case layout.KindString:
		x, ok := v.(string)
		if !ok {
			return typeError(s, v)
		}
		if len(x) > s.Length {
			return errors.Wrapf(ErrValueTooLarge, "string of %d bytes in %d", len(x), s.Length)
		}
		copy(b, x)
	case layout.KindFlags:
		x, ok := v.(uint32)
		if !ok {
			return typeError(s, v)
		}
		if x&^s.Mask != 0 {
			return errors.Wrapf(ErrInvalidFlags, "0x%x, mask 0x%x", x, s.Mask)
		}
		switch s.Width {
		case 1:
			b[0] = byte(x)
		case 2:
			w.order.PutUint16(b, uint16(x))
		default:
			w.order.PutUint32(b, x)
		}

	case layout.KindStruct:
		x, ok := v.(*tagdata.Struct)
		if !ok {
			return typeError(s, v)
		}
		return w.writeStruct(s.Struct, x, off)
	case layout.KindArray:
		x, ok := v.([]any)
		if !ok {
			return typeError(s, v)
		}
		if len(x) > s.Length {
			return errors.Wrapf(ErrValueTooLarge, "%d elements in array of %d", len(x), s.Length)
		}
		for i := 0; i < s.Length; i++ {
			var elem any
			if i < len(x) {
				elem = x[i]
			} else {
				elem = s.Elem.Zero()
			}
			if err := w.writeValue(s.Elem, off+i*s.Elem.Size, elem); err != nil {
				return errors.Wrapf(err, "[%d]", i)
			}
		}
	case layout.KindBlock:
		x, ok := v.([]any)
		if !ok {
			return typeError(s, v)
		}
		return w.writeBlock(s, off, x)
	case layout.KindData:
		x, ok := v.([]byte)
		if !ok {
			return typeError(s, v)
		}
		if uint64(len(x)) > math.MaxUint32 {
			return errors.Wrapf(ErrValueTooLarge, "%d bytes of data", len(x))
		}
		w.order.PutUint32(b, uint32(len(x)))
		if len(x) == 0 {
			return nil
		}
		region := w.reserve(len(x), layout.DefaultAlign)
		copy(w.buf[region:], x)
		w.fixups.Add(uint32(off+layout.DataAddressOffset), uint32(region))
	case layout.KindPointer:
		x, ok := v.(*tagdata.Struct)
		if !ok {
			return typeError(s, v)
		}
		if x == nil {
			return nil
		}
		l, err := w.registry.Resolve(s.Type, w.target)
		if err != nil {
			return err
		}
		// A zero-sized target still needs a distinct non-null address.
		region := w.reserve(max(l.Size, 1), l.Align)
		w.fixups.Add(uint32(off), uint32(region))
		return w.writeStruct(l, x, region)

	case layout.KindAddress:
		x, ok := v.(uint64)
		if !ok {
			return typeError(s, v)
		}
		if w.ptr == 4 && x > math.MaxUint32 {
			return errors.Wrapf(ErrValueTooLarge, "address 0x%x", x)
		}
		fixup.PutPointer(b, w.order, w.ptr, x)
	case layout.KindTagReference:
		x, ok := v.(tagdata.TagRef)
		if !ok {
			return typeError(s, v)
		}
		w.order.PutUint32(b, x.Group.Value())
		w.order.PutUint32(b[s.Size-4:], uint32(x.Index))
		if !x.IsNull() {
			w.collect.AddDependency(x.Index)
		}
	case layout.KindResource:
		x, ok := v.(tagdata.ResourceRef)
		if !ok {
			return typeError(s, v)
		}
		if w.ptr == 4 && x.Handle > math.MaxUint32 {
			return errors.Wrapf(ErrValueTooLarge, "resource handle 0x%x", x.Handle)
		}
		fixup.PutPointer(b, w.order, w.ptr, x.Handle)
		w.collect.AddResourceOffset(uint32(off))

	default:
		return errors.Wrapf(ErrFieldType, "cannot write %s", s.Kind)
	}
	return nil
}

// writeBlock writes the count at off and the elements to a new trailing
// region, contiguously.
func (w *writer) writeBlock(s *layout.Slot, off int, elems []any) error {
	if uint64(len(elems)) > math.MaxInt32 {
		return errors.Wrapf(ErrValueTooLarge, "%d block elements", len(elems))
	}
	w.order.PutUint32(w.buf[off:], uint32(len(elems)))
	if len(elems) == 0 {
		return nil
	}

	elem := s.Elem
	align := layout.DefaultAlign
	if elem.Kind == layout.KindStruct {
		l, err := w.registry.StructOf(elem, w.target)
		if err != nil {
			return err
		}
		resolved := *elem
		resolved.Struct = l
		resolved.Size = l.Size
		elem = &resolved
		align = l.Align
	}

	size := len(elems) * elem.Size
	if size == 0 {
		return nil
	}
	region := w.reserve(size, align)
	w.fixups.Add(uint32(off+layout.BlockAddressOffset), uint32(region))

	for i, e := range elems {
		if err := w.writeValue(elem, region+i*elem.Size, e); err != nil {
			return errors.Wrapf(err, "[%d]", i)
		}
	}
	return nil
}
