package archive

import (
	"io"

	"github.com/DataDog/zstd"
	"github.com/pkg/errors"
)

const (
	// DefaultCompressionLevel is the default compression level for encoding.
	DefaultCompressionLevel = zstd.BestSpeed
)

// Reader wraps an io.Reader to provide decompression of archive data.
type Reader struct {
	header    *Header
	zReader   io.ReadCloser
	headerBuf [HeaderSize]byte
}

// NewReader reads and validates the header, then returns a reader for the
// decompressed content.
func NewReader(r io.Reader) (*Reader, error) {
	reader := &Reader{
		header: &Header{},
	}

	if _, err := io.ReadFull(r, reader.headerBuf[:]); err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	if err := reader.header.UnmarshalBinary(reader.headerBuf[:]); err != nil {
		return nil, errors.Wrap(err, "parse header")
	}

	reader.zReader = zstd.NewReader(r)
	return reader, nil
}

// Header returns the archive header.
func (r *Reader) Header() *Header {
	return r.header
}

// Read reads decompressed data into p.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.zReader.Read(p)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.zReader.Close()
}

// Length returns the uncompressed data length.
func (r *Reader) Length() int {
	return int(r.header.Length)
}

// ReadAll reads the entire decompressed content from an archive along with
// its header.
func ReadAll(r io.Reader) ([]byte, *Header, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	data := make([]byte, reader.Length())
	n, err := io.ReadFull(reader, data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read content")
	}
	if n != reader.Length() {
		return nil, nil, errors.Errorf("incomplete read: expected %d, got %d", reader.Length(), n)
	}

	return data, reader.Header(), nil
}
