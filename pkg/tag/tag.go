// Package tag provides the four-character magic identifiers used to name
// tag groups and other structure kinds in cache files.
//
// A Tag is the big-endian packing of four ASCII characters into a 32-bit
// integer, so "bitm" is 0x6269746d. Equality, ordering and hashing all work
// on the packed integer.
package tag

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// Tag is a packed four-character identifier.
type Tag uint32

// Null is the reserved "no tag" identifier (all bits set).
const Null Tag = 0xFFFFFFFF

// ErrInvalidTag is returned when a string cannot be packed into a Tag.
var ErrInvalidTag = errors.New("invalid tag")

// New packs up to four characters of s into a Tag. Strings shorter than four
// characters are right-padded with spaces; the empty string is Null.
func New(s string) Tag {
	if s == "" {
		return Null
	}
	var b [4]byte
	for i := range b {
		if i < len(s) {
			b[i] = s[i]
		} else {
			b[i] = ' '
		}
	}
	return Tag(binary.BigEndian.Uint32(b[:]))
}

// FromInt wraps a raw packed value.
func FromInt(v uint32) Tag {
	return Tag(v)
}

// FromInt32 wraps a signed packed value; -1 maps to Null.
func FromInt32(v int32) Tag {
	return Tag(uint32(v))
}

// FromChars packs a character array read from a cache file. Embedded NUL
// characters become spaces so the identifier stays printable, and arrays
// shorter than four characters are padded with spaces.
func FromChars(chars []byte) Tag {
	b := [4]byte{' ', ' ', ' ', ' '}
	for i := 0; i < len(chars) && i < 4; i++ {
		if chars[i] != 0 {
			b[i] = chars[i]
		}
	}
	return Tag(binary.BigEndian.Uint32(b[:]))
}

// Parse converts a user-supplied group name into a Tag. "null", "none",
// "****" and "" all mean Null.
func Parse(s string) (Tag, error) {
	switch s {
	case "", "null", "none", "****":
		return Null, nil
	}
	if len(s) > 4 {
		return Null, errors.Wrapf(ErrInvalidTag, "%q is longer than 4 characters", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return Null, errors.Wrapf(ErrInvalidTag, "%q contains non-ASCII characters", s)
		}
	}
	return New(s), nil
}

// Value returns the packed integer.
func (t Tag) Value() uint32 {
	return uint32(t)
}

// Bytes returns the four characters in order.
func (t Tag) Bytes() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(t))
	return b
}

// IsNull reports whether t is the null identifier.
func (t Tag) IsNull() bool {
	return t == Null
}

// Compare orders tags by their packed value, which is lexicographic order of
// the four characters.
func (t Tag) Compare(other Tag) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

// String returns the characters the tag was packed from. Leading zero bytes
// are dropped and Null is the empty string.
func (t Tag) String() string {
	if t.IsNull() {
		return ""
	}
	b := t.Bytes()
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return string(b[i:])
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	if t.IsNull() {
		return []byte("null"), nil
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(text []byte) error {
	parsed, err := Parse(strings.TrimRight(string(text), "\x00"))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
