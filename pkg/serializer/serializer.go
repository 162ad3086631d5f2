// Package serializer converts structure instances to and from tag blobs for a
// cache target.
//
// Serialization lays the root structure out at offset 0 and appends every
// out-of-line region (block elements, data buffers, pointed-to structures)
// after it. Slots that address those regions are recorded as fixups and
// patched with blob-relative offsets once the walk completes.
package serializer

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/collect"
	"github.com/EchoTools/tagcache/pkg/fixup"
	"github.com/EchoTools/tagcache/pkg/layout"
	"github.com/EchoTools/tagcache/pkg/metrics"
	"github.com/EchoTools/tagcache/pkg/tagdata"
)

// MaxDepth bounds structure nesting on both write and read.
const MaxDepth = 64

// TagIndex validates dependency indices.
type TagIndex interface {
	HasTag(index int32) (bool, error)
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithTagIndex makes Serialize reject references to tags the index does not
// contain.
func WithTagIndex(index TagIndex) Option {
	return func(s *Serializer) {
		s.index = index
	}
}

// WithLogger sets the logger used for batch failures.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Serializer) {
		s.log = log
	}
}

// Serializer is safe for concurrent use. Each call owns its buffer, fixup
// tracker and collector.
type Serializer struct {
	registry *layout.Registry
	index    TagIndex
	log      *logrus.Entry
}

// New creates a serializer over the definitions in registry.
func New(registry *layout.Registry, opts ...Option) *Serializer {
	s := &Serializer{
		registry: registry,
		log:      logrus.WithField("component", "serializer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the definitions the serializer resolves against.
func (s *Serializer) Registry() *layout.Registry {
	return s.registry
}

// Serialize writes obj as a blob for the target.
func (s *Serializer) Serialize(obj *tagdata.Struct, target cache.Target) (blob *cache.Blob, err error) {
	defer func() {
		size := 0
		if blob != nil {
			size = len(blob.Data)
		}
		metrics.Observe(metrics.OpSerialize, size, err)
	}()

	if obj == nil {
		return nil, ErrNilObject
	}
	l, err := s.registry.Resolve(obj.Type, target)
	if err != nil {
		return nil, err
	}

	w := &writer{
		registry: s.registry,
		target:   target,
		order:    target.ByteOrder(),
		ptr:      target.PointerSize(),
		buf:      make([]byte, l.Size),
		fixups:   fixup.NewTracker(),
		collect:  collect.New(),
	}
	if err := w.writeStruct(l, obj, 0); err != nil {
		return nil, err
	}
	if err := s.checkDependencies(w.collect); err != nil {
		return nil, err
	}
	if err := w.fixups.Apply(w.buf, w.order, w.ptr); err != nil {
		return nil, errors.Wrap(err, l.Name)
	}

	return &cache.Blob{
		Group:                  l.Group,
		MainStructOffset:       0,
		Dependencies:           w.collect.Dependencies(),
		PointerFixups:          w.fixups.Fixups(),
		ResourcePointerOffsets: w.collect.ResourceOffsets(),
		Data:                   w.buf,
	}, nil
}

func (s *Serializer) checkDependencies(c *collect.Collector) error {
	if s.index == nil {
		return nil
	}
	for _, index := range c.Dependencies().ToSlice() {
		ok, err := s.index.HasTag(index)
		if err != nil {
			return errors.Wrapf(err, "look up tag 0x%04x", index)
		}
		if !ok {
			return errors.Wrapf(ErrUnknownDependency, "tag 0x%04x", index)
		}
	}
	return nil
}

// Deserialize reads a blob whose root type is registered for the blob's group.
func (s *Serializer) Deserialize(blob *cache.Blob, target cache.Target) (*tagdata.Struct, error) {
	if blob == nil {
		return nil, ErrNilObject
	}
	name, ok := s.registry.TypeForGroup(blob.Group)
	if !ok {
		err := errors.Wrapf(ErrUnknownGroup, "%s", blob.Group)
		metrics.Observe(metrics.OpDeserialize, 0, err)
		return nil, err
	}
	return s.DeserializeAs(blob, name, target)
}

// DeserializeAs reads a blob whose root is of the named type.
func (s *Serializer) DeserializeAs(blob *cache.Blob, typeName string, target cache.Target) (obj *tagdata.Struct, err error) {
	defer func() {
		size := 0
		if blob != nil && err == nil {
			size = len(blob.Data)
		}
		metrics.Observe(metrics.OpDeserialize, size, err)
	}()

	if blob == nil {
		return nil, ErrNilObject
	}
	if err := blob.Validate(); err != nil {
		return nil, err
	}
	l, err := s.registry.Resolve(typeName, target)
	if err != nil {
		return nil, err
	}

	r := &reader{
		registry: s.registry,
		target:   target,
		order:    target.ByteOrder(),
		ptr:      target.PointerSize(),
		data:     blob.Data,
		fixups:   make(map[uint32]uint32, len(blob.PointerFixups)),
	}
	for _, f := range blob.PointerFixups {
		r.fixups[f.WriteOffset] = f.TargetOffset
	}
	return r.readStruct(l, int(blob.MainStructOffset))
}

// Port re-targets a blob: it is read with the layouts of one target and
// written with the layouts of another.
func (s *Serializer) Port(blob *cache.Blob, from, to cache.Target) (*cache.Blob, error) {
	obj, err := s.Deserialize(blob, from)
	if err != nil {
		return nil, errors.Wrapf(err, "read for %s", from)
	}
	out, err := s.Serialize(obj, to)
	if err != nil {
		return nil, errors.Wrapf(err, "write for %s", to)
	}
	return out, nil
}
