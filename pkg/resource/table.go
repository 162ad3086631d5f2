package resource

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/archive"
)

// Page codecs.
const (
	CodecNone int8 = -1
	CodecZstd int8 = 0
)

// PageSize is the encoded size of a Page.
const PageSize = 24

// Page is one entry of the page table.
type Page struct {
	LegacyFlags      LegacyFlags
	CurrentFlags     CurrentFlags
	CodecIndex       int8
	_                uint8
	Index            uint32 // Page index within its location file
	Offset           uint32 // Byte offset of the stored page
	CompressedSize   uint32
	UncompressedSize uint32
	Checksum         uint32 // CRC-32 of the uncompressed page
}

// Location decodes the page's location.
func (p *Page) Location() (Location, error) {
	return Decode(p.LegacyFlags, p.CurrentFlags)
}

// SetLocation moves the page to loc in both flag encodings.
func (p *Page) SetLocation(loc Location) error {
	legacy, current, err := Encode(loc, p.LegacyFlags, p.CurrentFlags)
	if err != nil {
		return err
	}
	p.LegacyFlags, p.CurrentFlags = legacy, current
	return nil
}

// DisableChecksum stops readers from verifying the page checksum.
func (p *Page) DisableChecksum() {
	p.LegacyFlags, p.CurrentFlags = DisableChecksum(p.LegacyFlags, p.CurrentFlags)
}

// ChecksumEnabled reports whether the page checksum should be verified.
func (p *Page) ChecksumEnabled() bool {
	return ChecksumEnabled(p.LegacyFlags, p.CurrentFlags)
}

// TableMagic identifies a page table.
var TableMagic = [4]byte{0x70, 0x61, 0x67, 0x65} // "page"

// TableHeader precedes the pages of a table.
type TableHeader struct {
	Magic     [4]byte
	PageCount uint32
	PageSize  uint32
	_         uint32
}

// Table is the list of every stored page.
type Table struct {
	Header TableHeader
	Pages  []Page
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{Header: TableHeader{Magic: TableMagic, PageSize: PageSize}}
}

// Page returns the page for a handle.
func (t *Table) Page(h Handle) (*Page, error) {
	if int(h) >= len(t.Pages) {
		return nil, errors.Wrapf(ErrInvalidHandle, "%d of %d pages", h, len(t.Pages))
	}
	return &t.Pages[h], nil
}

// MarshalBinary encodes the table.
func (t *Table) MarshalBinary() ([]byte, error) {
	t.Header.Magic = TableMagic
	t.Header.PageCount = uint32(len(t.Pages))
	t.Header.PageSize = PageSize

	buf := bytes.NewBuffer(nil)
	for _, section := range []any{t.Header, t.Pages} {
		if err := binary.Write(buf, binary.LittleEndian, section); err != nil {
			return nil, errors.Wrap(err, "write section")
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a table.
func (t *Table) UnmarshalBinary(data []byte) error {
	reader := bytes.NewReader(data)

	if err := binary.Read(reader, binary.LittleEndian, &t.Header); err != nil {
		return errors.Wrap(err, "read header")
	}
	if t.Header.Magic != TableMagic {
		return errors.Errorf("invalid page table magic %x", t.Header.Magic)
	}
	if t.Header.PageSize != PageSize {
		return errors.Errorf("unsupported page entry size %d", t.Header.PageSize)
	}

	t.Pages = make([]Page, t.Header.PageCount)
	if err := binary.Read(reader, binary.LittleEndian, &t.Pages); err != nil {
		return errors.Wrap(err, "read pages")
	}
	return nil
}

// ReadTable reads a table from an archive file.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open page table")
	}
	defer f.Close()

	data, _, err := archive.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "read archive")
	}

	t := &Table{}
	if err := t.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap(err, "parse page table")
	}
	return t, nil
}

// WriteTable writes a table as an archive file.
func WriteTable(path string, t *Table, opts ...archive.WriterOption) error {
	data, err := t.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "marshal page table")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	defer f.Close()

	if err := archive.Encode(f, data, opts...); err != nil {
		return errors.Wrap(err, "encode archive")
	}
	return nil
}
