package layout

import (
	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/tag"
)

// DefaultAlign is the alignment of out-of-line data when a variant does not
// declare one.
const DefaultAlign = 4

// Variant is one candidate layout of a definition.
type Variant struct {
	When Predicate
	// Size of the variant's own fields, excluding Base. Zero means the
	// packed size; a larger value adds trailing padding.
	Size int
	// Base names a definition whose fields, resolved for the same target,
	// precede this variant's fields.
	Base string
	// Align of out-of-line copies of this structure, zero means DefaultAlign.
	Align  int
	Fields []*Field
}

// Definition is a logical structure with its candidate layouts.
type Definition struct {
	Name     string
	Group    tag.Tag // Group of tags rooted at this structure, zero for none
	Variants []Variant
}

// Single builds a definition with one variant that applies to every target.
func Single(name string, group tag.Tag, size int, fields ...*Field) *Definition {
	return &Definition{
		Name:     name,
		Group:    group,
		Variants: []Variant{{Size: size, Fields: fields}},
	}
}

// HasGroup reports whether tags of the definition carry a group.
func (d *Definition) HasGroup() bool {
	return d.Group != 0 && !d.Group.IsNull()
}

// Select returns the single variant of def that matches the target.
func Select(def *Definition, t cache.Target) (*Variant, error) {
	var match *Variant
	for i := range def.Variants {
		v := &def.Variants[i]
		if !v.When.Matches(t) {
			continue
		}
		if match != nil {
			return nil, errors.Wrapf(ErrAmbiguousLayout, "%s for %s: %s and %s", def.Name, t, match.When, v.When)
		}
		match = v
	}
	if match == nil {
		return nil, errors.Wrapf(ErrNoMatchingLayout, "%s for %s", def.Name, t)
	}
	return match, nil
}
