package resource

import (
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/DataDog/zstd"
	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/archive"
)

const (
	// DefaultCompressionLevel is the compression level used for new pages.
	DefaultCompressionLevel = zstd.BestSpeed

	// MaxFileSize is the maximum size of a single location file.
	MaxFileSize = math.MaxUint32

	// TableFileName is the name of the page table inside a store directory.
	TableFileName = "pages.tbl"
)

var (
	ErrInvalidHandle    = errors.New("invalid page handle")
	ErrChecksumMismatch = errors.New("page checksum mismatch")
	ErrFileFull         = errors.New("location file full")
)

// Handle identifies a page in a store's table.
type Handle uint32

// StoreOption configures a PageStore.
type StoreOption func(*PageStore)

// WithCompressionLevel sets the zstd level for new pages.
func WithCompressionLevel(level int) StoreOption {
	return func(s *PageStore) {
		s.level = level
	}
}

// WithoutCompression stores new pages uncompressed.
func WithoutCompression() StoreOption {
	return func(s *PageStore) {
		s.codec = CodecNone
	}
}

// PageStore appends resource pages to one file per location and records them
// in a page table. It is not safe for concurrent use.
type PageStore struct {
	dir   string
	level int
	codec int8
	table *Table
	files map[Location]*os.File

	// Decompression cache
	lastHandle Handle
	lastData   []byte
}

// OpenPageStore opens the store in dir, loading its page table if present.
func OpenPageStore(dir string, opts ...StoreOption) (*PageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create store dir")
	}

	s := &PageStore{
		dir:        dir,
		level:      DefaultCompressionLevel,
		codec:      CodecZstd,
		table:      NewTable(),
		files:      make(map[Location]*os.File),
		lastHandle: ^Handle(0),
	}
	for _, opt := range opts {
		opt(s)
	}

	path := filepath.Join(dir, TableFileName)
	if _, err := os.Stat(path); err == nil {
		table, err := ReadTable(path)
		if err != nil {
			return nil, err
		}
		s.table = table
	}
	return s, nil
}

// Table returns the store's page table.
func (s *PageStore) Table() *Table {
	return s.table
}

func (s *PageStore) file(loc Location) (*os.File, error) {
	if f, ok := s.files[loc]; ok {
		return f, nil
	}
	f, err := os.OpenFile(filepath.Join(s.dir, loc.FileName()), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", loc.FileName())
	}
	s.files[loc] = f
	return f, nil
}

// Add stores data in the file for loc and returns the new page's handle.
func (s *PageStore) Add(loc Location, data []byte, checksum bool) (Handle, error) {
	page := Page{CodecIndex: s.codec, UncompressedSize: uint32(len(data))}
	if err := page.SetLocation(loc); err != nil {
		return 0, err
	}
	if checksum {
		page.LegacyFlags |= LegacyUseChecksum
		page.CurrentFlags |= CurrentUseChecksum
		page.Checksum = crc32.ChecksumIEEE(data)
	}

	stored := data
	if s.codec == CodecZstd {
		compressed, err := zstd.CompressLevel(nil, data, s.level)
		if err != nil {
			return 0, errors.Wrapf(err, "compress page for %s", loc)
		}
		stored = compressed
	}

	f, err := s.file(loc)
	if err != nil {
		return 0, err
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.Wrapf(err, "seek %s", loc.FileName())
	}
	if end+int64(len(stored)) > MaxFileSize {
		return 0, errors.Wrapf(ErrFileFull, "%s", loc.FileName())
	}
	if _, err := f.Write(stored); err != nil {
		return 0, errors.Wrapf(err, "write %s", loc.FileName())
	}

	page.Offset = uint32(end)
	page.CompressedSize = uint32(len(stored))
	page.Index = s.countIn(loc)

	s.table.Pages = append(s.table.Pages, page)
	return Handle(len(s.table.Pages) - 1), nil
}

func (s *PageStore) countIn(loc Location) uint32 {
	var n uint32
	for i := range s.table.Pages {
		if l, err := s.table.Pages[i].Location(); err == nil && l == loc {
			n++
		}
	}
	return n
}

// ReadPage returns the uncompressed bytes of a page. The returned slice is
// shared with the store's cache and must not be modified.
func (s *PageStore) ReadPage(h Handle) ([]byte, error) {
	if s.lastData != nil && s.lastHandle == h {
		return s.lastData, nil
	}

	page, err := s.table.Page(h)
	if err != nil {
		return nil, err
	}
	loc, err := page.Location()
	if err != nil {
		return nil, errors.Wrapf(err, "page %d", h)
	}
	if page.UncompressedSize == 0 {
		return []byte{}, nil
	}

	f, err := s.file(loc)
	if err != nil {
		return nil, err
	}
	stored := make([]byte, page.CompressedSize)
	if _, err := f.ReadAt(stored, int64(page.Offset)); err != nil {
		return nil, errors.Wrapf(err, "read page %d", h)
	}

	data := stored
	switch page.CodecIndex {
	case CodecNone:
	case CodecZstd:
		data, err = zstd.Decompress(nil, stored)
		if err != nil {
			return nil, errors.Wrapf(err, "decompress page %d", h)
		}
	default:
		return nil, errors.Errorf("page %d: unknown codec %d", h, page.CodecIndex)
	}

	if uint32(len(data)) != page.UncompressedSize {
		return nil, errors.Errorf("page %d: got %d bytes, want %d", h, len(data), page.UncompressedSize)
	}
	if page.ChecksumEnabled() && crc32.ChecksumIEEE(data) != page.Checksum {
		return nil, errors.Wrapf(ErrChecksumMismatch, "page %d", h)
	}

	s.lastHandle = h
	s.lastData = data
	return data, nil
}

// Flush writes the page table.
func (s *PageStore) Flush(opts ...archive.WriterOption) error {
	for loc, f := range s.files {
		if err := f.Sync(); err != nil {
			return errors.Wrapf(err, "sync %s", loc.FileName())
		}
	}
	return WriteTable(filepath.Join(s.dir, TableFileName), s.table, opts...)
}

// Close flushes the table and closes all location files.
func (s *PageStore) Close() error {
	err := s.Flush()
	for _, f := range s.files {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.files = nil
	s.lastData = nil
	return err
}
