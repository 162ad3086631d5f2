package layout

import (
	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/tag"
	"github.com/EchoTools/tagcache/pkg/tagdata"
)

// Layout is a definition resolved for one target: the active fields with
// their final offsets and sizes.
type Layout struct {
	Name   string
	Group  tag.Tag
	Target cache.Target
	Size   int
	Align  int
	Fields []Slot
}

// Slot is a resolved field.
type Slot struct {
	Name   string
	Kind   Kind
	Offset int
	Size   int
	Length int
	Width  int
	Mask   uint32
	Type   string
	// Struct is the nested layout of inline structures. Block elements and
	// pointers leave it nil and are resolved on use.
	Struct *Layout
	Elem   *Slot
}

// Field looks up a resolved field by name.
func (l *Layout) Field(name string) (*Slot, bool) {
	for i := range l.Fields {
		if l.Fields[i].Name == name {
			return &l.Fields[i], true
		}
	}
	return nil, false
}

// New returns an instance with every active field set to its zero value.
func (l *Layout) New() *tagdata.Struct {
	s := tagdata.NewStruct(l.Name)
	for i := range l.Fields {
		slot := &l.Fields[i]
		if slot.Kind == KindPadding {
			continue
		}
		s.Fields[slot.Name] = slot.Zero()
	}
	return s
}

// Zero returns the value a missing field is written as.
func (s *Slot) Zero() any {
	switch s.Kind {
	case KindInt8:
		return int8(0)
	case KindUint8:
		return uint8(0)
	case KindInt16:
		return int16(0)
	case KindUint16:
		return uint16(0)
	case KindInt32:
		return int32(0)
	case KindUint32:
		return uint32(0)
	case KindInt64:
		return int64(0)
	case KindUint64:
		return uint64(0)
	case KindFloat32:
		return float32(0)
	case KindFloat64:
		return float64(0)
	case KindTag, KindCharTag:
		return tag.Null
	case KindString:
		return ""
	case KindFlags:
		return uint32(0)
	case KindStruct:
		if s.Struct == nil {
			return (*tagdata.Struct)(nil)
		}
		return s.Struct.New()
	case KindArray:
		elems := make([]any, s.Length)
		for i := range elems {
			elems[i] = s.Elem.Zero()
		}
		return elems
	case KindBlock:
		return []any{}
	case KindData:
		return []byte{}
	case KindPointer:
		return (*tagdata.Struct)(nil)
	case KindAddress:
		return uint64(0)
	case KindTagReference:
		return tagdata.NullTagRef
	case KindResource:
		return tagdata.ResourceRef{}
	}
	return nil
}
