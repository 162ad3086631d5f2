package layout

import "github.com/EchoTools/tagcache/pkg/cache"

// Field describes one field of a structure variant. Fields are built with
// the constructors below and narrowed with the chaining methods:
//
//	layout.Int16("sort_layer").Since(cache.HaloOnline106708)
//	layout.Block("options", layout.Of("render_method_option_block"))
//	layout.Padding(4).Only(cache.PlatformMCC)
type Field struct {
	Name   string
	Kind   Kind
	Type   string // Structure type for Struct, Pointer and struct elements
	Length int    // Count for Array, byte length for String and Padding
	Width  int    // Byte width for Flags
	Mask   uint32 // Valid bits for Flags, zero means all
	Elem   *Field // Element of Array and Block
	When   Predicate
	Offset int // Pinned offset from the start of the structure, -1 if packed
}

func newField(name string, kind Kind) *Field {
	return &Field{Name: name, Kind: kind, Offset: -1}
}

// Since limits the field to version v and later.
func (f *Field) Since(v cache.Version) *Field {
	f.When.Min = v
	return f
}

// Until limits the field to version v and earlier.
func (f *Field) Until(v cache.Version) *Field {
	f.When.Max = v
	return f
}

// Only limits the field to one platform.
func (f *Field) Only(p cache.Platform) *Field {
	f.When.Platform = p
	return f
}

// On replaces the field's predicate.
func (f *Field) On(p Predicate) *Field {
	f.When = p
	return f
}

// At pins the field at offset from the start of the structure.
func (f *Field) At(offset int) *Field {
	f.Offset = offset
	return f
}

func Int8(name string) *Field    { return newField(name, KindInt8) }
func Uint8(name string) *Field   { return newField(name, KindUint8) }
func Int16(name string) *Field   { return newField(name, KindInt16) }
func Uint16(name string) *Field  { return newField(name, KindUint16) }
func Int32(name string) *Field   { return newField(name, KindInt32) }
func Uint32(name string) *Field  { return newField(name, KindUint32) }
func Int64(name string) *Field   { return newField(name, KindInt64) }
func Uint64(name string) *Field  { return newField(name, KindUint64) }
func Float32(name string) *Field { return newField(name, KindFloat32) }
func Float64(name string) *Field { return newField(name, KindFloat64) }

// Tag is a 4-byte identifier stored as an integer in target byte order.
func Tag(name string) *Field { return newField(name, KindTag) }

// CharTag is a 4-byte identifier stored as four characters.
func CharTag(name string) *Field { return newField(name, KindCharTag) }

// String is a fixed-length NUL padded string.
func String(name string, length int) *Field {
	f := newField(name, KindString)
	f.Length = length
	return f
}

// Flags is a flag set of width 1, 2 or 4 bytes. A non-zero mask restricts
// the bits a value may carry.
func Flags(name string, width int, mask uint32) *Field {
	f := newField(name, KindFlags)
	f.Width = width
	f.Mask = mask
	return f
}

// Padding reserves n zero bytes.
func Padding(n int) *Field {
	f := newField("", KindPadding)
	f.Length = n
	return f
}

// Struct embeds a structure of the named type inline.
func Struct(name, typ string) *Field {
	f := newField(name, KindStruct)
	f.Type = typ
	return f
}

// Of is an unnamed struct element for arrays and blocks.
func Of(typ string) *Field {
	return Struct("", typ)
}

// Array is a fixed number of inline elements.
func Array(name string, count int, elem *Field) *Field {
	f := newField(name, KindArray)
	f.Length = count
	f.Elem = elem
	return f
}

// Block is a count-prefixed list of elements stored after the structure.
func Block(name string, elem *Field) *Field {
	f := newField(name, KindBlock)
	f.Elem = elem
	return f
}

// Data is a size-prefixed byte buffer stored after the structure.
func Data(name string) *Field { return newField(name, KindData) }

// Pointer is a nullable pointer to one structure stored after the owner.
func Pointer(name, typ string) *Field {
	f := newField(name, KindPointer)
	f.Type = typ
	return f
}

// Address is a runtime address. It is stored as-is and never fixed up.
func Address(name string) *Field { return newField(name, KindAddress) }

// TagReference references another tag.
func TagReference(name string) *Field { return newField(name, KindTagReference) }

// Resource holds the handle of an external resource page.
func Resource(name string) *Field { return newField(name, KindResource) }
