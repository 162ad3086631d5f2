// Package tagdata holds the in-memory object graph that the serializer reads
// from and writes to.
//
// A structure instance is a Struct: a type name plus field values keyed by
// field name. Field values use these Go types:
//
//	integers, floats      int8 .. uint64, float32, float64
//	tag, char tag         tag.Tag
//	string                string
//	flags                 uint32
//	struct                *Struct
//	array, block          []any (elements use the element kind's type)
//	data                  []byte
//	pointer               *Struct (nil for a null pointer)
//	address               uint64
//	tag reference         TagRef
//	resource reference    ResourceRef
package tagdata

import (
	"fmt"
	"sort"

	"github.com/EchoTools/tagcache/pkg/tag"
)

// Struct is one structure instance.
type Struct struct {
	Type   string
	Fields map[string]any
}

// NewStruct creates an empty instance of the named type.
func NewStruct(typ string) *Struct {
	return &Struct{Type: typ, Fields: make(map[string]any)}
}

// Get returns a field value.
func (s *Struct) Get(name string) (any, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// Set assigns a field value and returns the struct for chaining.
func (s *Struct) Set(name string, value any) *Struct {
	if s.Fields == nil {
		s.Fields = make(map[string]any)
	}
	s.Fields[name] = value
	return s
}

// Names returns the assigned field names in sorted order.
func (s *Struct) Names() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Struct) String() string {
	return fmt.Sprintf("%s{%d fields}", s.Type, len(s.Fields))
}

// TagRef references another tag by group and index.
type TagRef struct {
	Group tag.Tag
	Index int32
}

// NullTagRef is the reference that points at nothing.
var NullTagRef = TagRef{Group: tag.Null, Index: -1}

// IsNull reports whether the reference has no target.
func (r TagRef) IsNull() bool {
	return r.Index < 0
}

func (r TagRef) String() string {
	if r.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%s:0x%04x", r.Group, r.Index)
}

// ResourceRef is the handle of an externally paged resource.
type ResourceRef struct {
	Handle uint64
}
