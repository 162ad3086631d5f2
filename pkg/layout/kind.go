package layout

import "fmt"

// Kind is the semantic type of a field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindTag          // 4-byte identifier stored as an integer
	KindCharTag      // 4-byte identifier stored as characters
	KindString       // fixed-length NUL padded ASCII
	KindFlags        // 1, 2 or 4 byte flag set
	KindPadding      // zero bytes, never read back
	KindStruct       // inline nested structure
	KindArray        // fixed count of inline elements
	KindBlock        // count-prefixed out-of-line elements
	KindData         // size-prefixed out-of-line bytes
	KindPointer      // nullable pointer to one out-of-line structure
	KindAddress      // runtime address, stored verbatim
	KindTagReference // reference to another tag
	KindResource     // handle of an external resource page
)

var kindNames = [...]string{
	KindInvalid:      "invalid",
	KindInt8:         "int8",
	KindUint8:        "uint8",
	KindInt16:        "int16",
	KindUint16:       "uint16",
	KindInt32:        "int32",
	KindUint32:       "uint32",
	KindInt64:        "int64",
	KindUint64:       "uint64",
	KindFloat32:      "float32",
	KindFloat64:      "float64",
	KindTag:          "tag",
	KindCharTag:      "chartag",
	KindString:       "string",
	KindFlags:        "flags",
	KindPadding:      "padding",
	KindStruct:       "struct",
	KindArray:        "array",
	KindBlock:        "block",
	KindData:         "data",
	KindPointer:      "pointer",
	KindAddress:      "address",
	KindTagReference: "tagref",
	KindResource:     "resource",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// primitiveSize is the byte width of kinds whose size does not depend on the
// target or on nested layouts.
func (k Kind) primitiveSize() int {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32, KindTag, KindCharTag:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	}
	return 0
}

// Out-of-line slot sizes, excluding the platform-width address.
const (
	blockHeaderSize = 4 + 4 // count, reserved
	dataHeaderSize  = 12 + 4
	// DataAddressOffset is the offset of the address inside a data slot:
	// size, flags and stream index precede it.
	DataAddressOffset = 12
	// BlockAddressOffset is the offset of the address inside a block slot.
	BlockAddressOffset = 4
)
