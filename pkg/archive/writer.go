package archive

import (
	"io"

	"github.com/DataDog/zstd"
	"github.com/pkg/errors"
)

// Writer wraps an io.WriteSeeker to provide compression of archive data.
type Writer struct {
	dst     io.WriteSeeker
	zWriter *zstd.Writer
	header  *Header
	level   int
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the compression level for the writer.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// WithTarget records the cache version and platform of the payload.
func WithTarget(version, platform uint16) WriterOption {
	return func(w *Writer) {
		w.header.Version = version
		w.header.Platform = platform
	}
}

// NewWriter creates a new archive writer that writes to dst.
// The uncompressedSize is the expected size of the uncompressed data.
func NewWriter(dst io.WriteSeeker, uncompressedSize uint64, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dst:    dst,
		level:  DefaultCompressionLevel,
		header: NewHeader(uncompressedSize, 0),
	}

	for _, opt := range opts {
		opt(w)
	}

	// Placeholder header, rewritten on Close once the compressed size is known.
	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "marshal header")
	}
	if _, err := dst.Write(headerBytes); err != nil {
		return nil, errors.Wrap(err, "write header")
	}

	w.zWriter = zstd.NewWriterLevel(dst, w.level)
	return w, nil
}

// Write writes compressed data.
func (w *Writer) Write(p []byte) (n int, err error) {
	return w.zWriter.Write(p)
}

// Close finalizes the archive by updating the header with the compressed size.
func (w *Writer) Close() error {
	if err := w.zWriter.Close(); err != nil {
		return errors.Wrap(err, "close compressor")
	}

	pos, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "get position")
	}

	w.header.CompressedLength = uint64(pos) - uint64(w.header.Size())

	if _, err := w.dst.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek to start")
	}

	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "marshal header")
	}

	if _, err := w.dst.Write(headerBytes); err != nil {
		return errors.Wrap(err, "write header")
	}

	if _, err := w.dst.Seek(pos, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek to end")
	}

	return nil
}

// Encode compresses data and writes it as an archive to dst.
func Encode(dst io.WriteSeeker, data []byte, opts ...WriterOption) error {
	w, err := NewWriter(dst, uint64(len(data)), opts...)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "write data")
	}

	return w.Close()
}
