// Package archive provides the ZSTD compressed container used to store
// serialized tag blobs on disk.
package archive

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Magic bytes identifying a tag blob archive header.
var Magic = [4]byte{0x54, 0x42, 0x4c, 0x5a} // "TBLZ"

// HeaderSize is the fixed binary size of an archive header.
const HeaderSize = 28 // 4 + 4 + 2 + 2 + 8 + 8 bytes

// headerLength is the byte count following the magic and length fields.
const headerLength = HeaderSize - 8

// ErrInvalidHeader is returned for headers that fail validation.
var ErrInvalidHeader = errors.New("invalid archive header")

// Header represents the header of a compressed archive file.
type Header struct {
	Magic            [4]byte
	HeaderLength     uint32
	Version          uint16 // Cache version the payload was serialized for
	Platform         uint16 // Cache platform the payload was serialized for
	Length           uint64 // Uncompressed size
	CompressedLength uint64 // Compressed size
}

// Size returns the binary size of the header.
func (h *Header) Size() int {
	return HeaderSize
}

// Validate checks the header for validity.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return errors.Wrapf(ErrInvalidHeader, "magic: expected %x, got %x", Magic, h.Magic)
	}
	if h.HeaderLength != headerLength {
		return errors.Wrapf(ErrInvalidHeader, "header length: expected %d, got %d", headerLength, h.HeaderLength)
	}
	if h.Length == 0 {
		return errors.Wrap(ErrInvalidHeader, "uncompressed size is zero")
	}
	if h.CompressedLength == 0 {
		return errors.Wrap(ErrInvalidHeader, "compressed size is zero")
	}
	return nil
}

// MarshalBinary encodes the header to binary format.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the header to the given buffer.
// The buffer must be at least HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.HeaderLength)
	binary.LittleEndian.PutUint16(buf[8:10], h.Version)
	binary.LittleEndian.PutUint16(buf[10:12], h.Platform)
	binary.LittleEndian.PutUint64(buf[12:20], h.Length)
	binary.LittleEndian.PutUint64(buf[20:28], h.CompressedLength)
}

// UnmarshalBinary decodes and validates the header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return errors.Wrapf(ErrInvalidHeader, "header data too short: need %d, got %d", HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	return h.Validate()
}

// DecodeFrom reads the header from the given buffer.
// Does not validate - use UnmarshalBinary for validation.
func (h *Header) DecodeFrom(data []byte) {
	copy(h.Magic[:], data[0:4])
	h.HeaderLength = binary.LittleEndian.Uint32(data[4:8])
	h.Version = binary.LittleEndian.Uint16(data[8:10])
	h.Platform = binary.LittleEndian.Uint16(data[10:12])
	h.Length = binary.LittleEndian.Uint64(data[12:20])
	h.CompressedLength = binary.LittleEndian.Uint64(data[20:28])
}

// NewHeader creates a new archive header with the given sizes.
func NewHeader(uncompressedSize, compressedSize uint64) *Header {
	return &Header{
		Magic:            Magic,
		HeaderLength:     headerLength,
		Length:           uncompressedSize,
		CompressedLength: compressedSize,
	}
}
