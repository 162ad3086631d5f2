package cache

import (
	"bytes"
	"os"

	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/archive"
)

// ReadFile reads a blob archive and returns the blob with the target it was
// serialized for.
func ReadFile(path string) (*Blob, Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Target{}, errors.Wrap(err, "open blob")
	}
	return Decode(data)
}

// Decode parses an in-memory blob archive.
func Decode(data []byte) (*Blob, Target, error) {
	payload, header, err := archive.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, Target{}, errors.Wrap(err, "read archive")
	}

	target := NewTarget(Version(header.Version), Platform(header.Platform))
	if err := target.Validate(); err != nil {
		return nil, Target{}, err
	}

	blob := &Blob{}
	if err := blob.UnmarshalBinary(payload); err != nil {
		return nil, Target{}, errors.Wrap(err, "parse blob")
	}
	return blob, target, nil
}

// WriteFile writes a blob archive recording the target it was serialized for.
func WriteFile(path string, b *Blob, target Target, opts ...archive.WriterOption) error {
	if err := target.Validate(); err != nil {
		return err
	}
	data, err := b.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "marshal blob")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	defer f.Close()

	opts = append(opts, archive.WithTarget(uint16(target.Version), uint16(target.Platform)))
	if err := archive.Encode(f, data, opts...); err != nil {
		return errors.Wrap(err, "encode archive")
	}

	return f.Close()
}
