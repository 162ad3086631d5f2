package serializer

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/fixup"
	"github.com/EchoTools/tagcache/pkg/layout"
	"github.com/EchoTools/tagcache/pkg/tag"
	"github.com/EchoTools/tagcache/pkg/tagdata"
)

type reader struct {
	registry *layout.Registry
	target   cache.Target
	order    binary.ByteOrder
	ptr      int
	data     []byte
	fixups   map[uint32]uint32
	depth    int
}

func (r *reader) need(off, size int) error {
	if off < 0 || size < 0 || int64(off)+int64(size) > int64(len(r.data)) {
		return errors.Wrapf(ErrTruncatedBuffer, "0x%x bytes at 0x%x in 0x%x", size, off, len(r.data))
	}
	return nil
}

// address resolves the pointer slot at site. Recorded fixups win over the
// stored value, so blobs whose data was relocated by a store still read.
// ok is false for a null pointer.
func (r *reader) address(site int) (addr int, ok bool, err error) {
	if target, found := r.fixups[uint32(site)]; found {
		return int(target), true, nil
	}
	raw := fixup.Pointer(r.data[site:], r.order, r.ptr)
	if raw == 0 {
		return 0, false, nil
	}
	if raw >= uint64(len(r.data)) {
		return 0, false, errors.Wrapf(ErrTruncatedBuffer, "pointer 0x%x at 0x%x", raw, site)
	}
	return int(raw), true, nil
}

func (r *reader) readStruct(l *layout.Layout, base int) (*tagdata.Struct, error) {
	r.depth++
	defer func() { r.depth-- }()
	if r.depth > MaxDepth {
		return nil, errors.Wrapf(ErrTooDeep, "%s at 0x%x", l.Name, base)
	}
	if err := r.need(base, l.Size); err != nil {
		return nil, errors.Wrap(err, l.Name)
	}

	s := tagdata.NewStruct(l.Name)
	for i := range l.Fields {
		slot := &l.Fields[i]
		if slot.Kind == layout.KindPadding {
			continue
		}
		v, err := r.readValue(slot, base+slot.Offset)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", l.Name, slot.Name)
		}
		s.Fields[slot.Name] = v
	}
	return s, nil
}

func (r *reader) readValue(s *layout.Slot, off int) (any, error) {
	if err := r.need(off, s.Size); err != nil {
		return nil, err
	}
	b := r.data[off : off+s.Size]

	switch s.Kind {
	case layout.KindInt8:
		return int8(b[0]), nil
	case layout.KindUint8:
		return b[0], nil
	case layout.KindInt16:
		return int16(r.order.Uint16(b)), nil
	case layout.KindUint16:
		return r.order.Uint16(b), nil
	case layout.KindInt32:
		return int32(r.order.Uint32(b)), nil
	case layout.KindUint32:
		return r.order.Uint32(b), nil
	case layout.KindInt64:
		return int64(r.order.Uint64(b)), nil
	case layout.KindUint64:
		return r.order.Uint64(b), nil
	case layout.KindFloat32:
		return math.Float32frombits(r.order.Uint32(b)), nil
	case layout.KindFloat64:
		return math.Float64frombits(r.order.Uint64(b)), nil

	case layout.KindTag:
		return tag.FromInt(r.order.Uint32(b)), nil
	case layout.KindCharTag:
		return tag.FromChars(b), nil
	case layout.KindString:
		if i := bytes.IndexByte(b, 0); i >= 0 {
			b = b[:i]
		}
		return string(b), nil
	case layout.KindFlags:
		switch s.Width {
		case 1:
			return uint32(b[0]), nil
		case 2:
			return uint32(r.order.Uint16(b)), nil
		default:
			return r.order.Uint32(b), nil
		}

	case layout.KindStruct:
		return r.readStruct(s.Struct, off)
	case layout.KindArray:
		elems := make([]any, s.Length)
		for i := range elems {
			v, err := r.readValue(s.Elem, off+i*s.Elem.Size)
			if err != nil {
				return nil, errors.Wrapf(err, "[%d]", i)
			}
			elems[i] = v
		}
		return elems, nil
	case layout.KindBlock:
		return r.readBlock(s, off)
	case layout.KindData:
		size := int(r.order.Uint32(b))
		if size == 0 {
			return []byte{}, nil
		}
		addr, ok, err := r.address(off + layout.DataAddressOffset)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Wrapf(ErrTruncatedBuffer, "null address for 0x%x bytes of data", size)
		}
		if err := r.need(addr, size); err != nil {
			return nil, err
		}
		out := make([]byte, size)
		copy(out, r.data[addr:])
		return out, nil
	case layout.KindPointer:
		addr, ok, err := r.address(off)
		if err != nil {
			return nil, err
		}
		if !ok {
			return (*tagdata.Struct)(nil), nil
		}
		l, err := r.registry.Resolve(s.Type, r.target)
		if err != nil {
			return nil, err
		}
		return r.readStruct(l, addr)

	case layout.KindAddress:
		return fixup.Pointer(b, r.order, r.ptr), nil
	case layout.KindTagReference:
		return tagdata.TagRef{
			Group: tag.FromInt(r.order.Uint32(b)),
			Index: int32(r.order.Uint32(b[s.Size-4:])),
		}, nil
	case layout.KindResource:
		return tagdata.ResourceRef{Handle: fixup.Pointer(b, r.order, r.ptr)}, nil
	}
	return nil, errors.Wrapf(ErrFieldType, "cannot read %s", s.Kind)
}

func (r *reader) readBlock(s *layout.Slot, off int) (any, error) {
	count := int32(r.order.Uint32(r.data[off:]))
	if count < 0 {
		return nil, errors.Wrapf(ErrTruncatedBuffer, "negative block count %d", count)
	}
	if count == 0 {
		return []any{}, nil
	}

	elem := s.Elem
	if elem.Kind == layout.KindStruct {
		l, err := r.registry.StructOf(elem, r.target)
		if err != nil {
			return nil, err
		}
		resolved := *elem
		resolved.Struct = l
		resolved.Size = l.Size
		elem = &resolved
	}

	addr, ok, err := r.address(off + layout.BlockAddressOffset)
	if err != nil {
		return nil, err
	}
	// Zero-size elements occupy no bytes, so the buffer length bounds them.
	if elem.Size == 0 && int64(count) > int64(len(r.data)) {
		return nil, errors.Wrapf(ErrTruncatedBuffer, "%d empty block elements in 0x%x bytes", count, len(r.data))
	}
	if !ok && elem.Size > 0 {
		return nil, errors.Wrapf(ErrTruncatedBuffer, "null address for %d block elements", count)
	}
	if err := r.need(addr, int(count)*elem.Size); err != nil {
		return nil, errors.Wrapf(err, "%d block elements", count)
	}

	elems := make([]any, count)
	for i := range elems {
		v, err := r.readValue(elem, addr+i*elem.Size)
		if err != nil {
			return nil, errors.Wrapf(err, "[%d]", i)
		}
		elems[i] = v
	}
	return elems, nil
}
