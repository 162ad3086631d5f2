// Package store holds the collaborators the serializer leans on: a cache
// store that places blobs at absolute addresses and a persistent tag index.
package store

import (
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/fixup"
)

// BlobAlign is the alignment of every placed blob.
const BlobAlign = 16

var (
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrAddressOverflow   = errors.New("address does not fit the target pointer width")
)

// Translate returns a copy of the blob's data with every pointer site
// holding base plus its blob-relative target.
func Translate(b *cache.Blob, base uint64, t cache.Target) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	width := t.PointerSize()
	order := t.ByteOrder()
	limit := uint64(math.MaxUint64)
	if width == 4 {
		limit = math.MaxUint32
	}
	if size := uint64(len(b.Data)); size > 0 && (base > limit || size-1 > limit-base) {
		return nil, errors.Wrapf(ErrAddressOverflow, "0x%x+0x%x, %d-byte pointers", base, size, width)
	}

	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	for _, f := range b.PointerFixups {
		if int(f.WriteOffset)+width > len(out) {
			return nil, errors.Wrapf(fixup.ErrFixupOutOfRange, "write 0x%x", f.WriteOffset)
		}
		fixup.PutPointer(out[f.WriteOffset:], order, width, base+uint64(f.TargetOffset))
	}
	return out, nil
}

// Memory is an in-memory cache store. Blobs are laid out back to back at
// BlobAlign boundaries starting from a base address.
type Memory struct {
	mu     sync.RWMutex
	target cache.Target
	base   uint64
	buf    []byte
}

// NewMemory returns an empty store for the target whose first blob lands
// at base, rounded up to BlobAlign.
func NewMemory(base uint64, t cache.Target) *Memory {
	return &Memory{
		target: t,
		base:   alignUp(base, BlobAlign),
	}
}

// Target returns the target the store translates pointers for.
func (m *Memory) Target() cache.Target {
	return m.target
}

// Base returns the address of the first byte of the store.
func (m *Memory) Base() uint64 {
	return m.base
}

// Size returns the number of bytes used, padding included.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.buf)
}

// Place stores a translated copy of the blob and returns its address.
func (m *Memory) Place(b *cache.Blob) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	off := alignUp(uint64(len(m.buf)), BlobAlign)
	addr := m.base + off
	data, err := Translate(b, addr, m.target)
	if err != nil {
		return 0, err
	}
	if pad := int(off) - len(m.buf); pad > 0 {
		m.buf = append(m.buf, make([]byte, pad)...)
	}
	m.buf = append(m.buf, data...)
	return addr, nil
}

// Read returns a copy of size bytes at addr.
func (m *Memory) Read(addr uint64, size int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if size < 0 || addr < m.base || addr-m.base+uint64(size) > uint64(len(m.buf)) {
		return nil, errors.Wrapf(ErrAddressOutOfRange, "0x%x+0x%x, store holds 0x%x-0x%x", addr, size, m.base, m.base+uint64(len(m.buf)))
	}
	off := addr - m.base
	out := make([]byte, size)
	copy(out, m.buf[off:off+uint64(size)])
	return out, nil
}

// Load reads a placed blob back. The returned blob keeps the original's
// metadata and carries the absolute pointers as stored.
func (m *Memory) Load(addr uint64, like *cache.Blob) (*cache.Blob, error) {
	data, err := m.Read(addr, len(like.Data))
	if err != nil {
		return nil, err
	}
	out := *like
	out.Data = data
	return &out, nil
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
