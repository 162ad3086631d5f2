package layout

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/tag"
)

type cacheKey struct {
	name   string
	target cache.Target
}

// Registry holds structure definitions and caches their resolved layouts.
// Definitions must be registered before concurrent use; resolution is safe
// for concurrent callers.
type Registry struct {
	mu       sync.RWMutex
	defs     map[string]*Definition
	groups   map[tag.Tag]string
	resolved map[cacheKey]*Layout
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:     make(map[string]*Definition),
		groups:   make(map[tag.Tag]string),
		resolved: make(map[cacheKey]*Layout),
	}
}

// Register adds definitions. Names and groups must be unique.
func (r *Registry) Register(defs ...*Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, def := range defs {
		if def == nil || def.Name == "" {
			return errors.Wrap(ErrInvalidDefinition, "missing name")
		}
		if len(def.Variants) == 0 {
			return errors.Wrapf(ErrInvalidDefinition, "%s: no variants", def.Name)
		}
		if _, ok := r.defs[def.Name]; ok {
			return errors.Wrapf(ErrDuplicateDefinition, "%s", def.Name)
		}
		if def.HasGroup() {
			if other, ok := r.groups[def.Group]; ok {
				return errors.Wrapf(ErrDuplicateDefinition, "group %s used by %s and %s", def.Group, other, def.Name)
			}
			r.groups[def.Group] = def.Name
		}
		r.defs[def.Name] = def
	}

	// Bases and nested types may have changed meaning.
	r.resolved = make(map[cacheKey]*Layout)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(defs ...*Definition) {
	if err := r.Register(defs...); err != nil {
		panic(err)
	}
}

// Definition returns a registered definition.
func (r *Registry) Definition(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// TypeForGroup returns the name of the definition registered for a group.
func (r *Registry) TypeForGroup(group tag.Tag) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.groups[group]
	return name, ok
}

// Names returns the registered definition names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the layout of the named structure for a concrete target.
// Results are cached; the same inputs always yield the same *Layout.
func (r *Registry) Resolve(name string, t cache.Target) (*Layout, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	l, ok := r.resolved[cacheKey{name, t}]
	r.mu.RUnlock()
	if ok {
		return l, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(name, t, nil)
}

// StructOf returns the layout of a struct slot, resolving block elements and
// pointers that were left unresolved.
func (r *Registry) StructOf(s *Slot, t cache.Target) (*Layout, error) {
	if s.Struct != nil {
		return s.Struct, nil
	}
	return r.Resolve(s.Type, t)
}

func (r *Registry) resolveLocked(name string, t cache.Target, stack []string) (*Layout, error) {
	key := cacheKey{name, t}
	if l, ok := r.resolved[key]; ok {
		return l, nil
	}
	for _, s := range stack {
		if s == name {
			return nil, errors.Wrapf(ErrRecursiveLayout, "%s -> %s", strings.Join(stack, " -> "), name)
		}
	}

	def, ok := r.defs[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%q", name)
	}
	v, err := Select(def, t)
	if err != nil {
		return nil, err
	}

	l, err := r.build(def, v, t, append(stack, name))
	if err != nil {
		return nil, err
	}
	r.resolved[key] = l
	return l, nil
}

func (r *Registry) build(def *Definition, v *Variant, t cache.Target, stack []string) (*Layout, error) {
	l := &Layout{
		Name:   def.Name,
		Group:  tag.Null,
		Target: t,
		Align:  v.Align,
	}
	if def.HasGroup() {
		l.Group = def.Group
	}
	if l.Align <= 0 {
		l.Align = DefaultAlign
	}

	names := make(map[string]bool)
	cursor := 0
	if v.Base != "" {
		base, err := r.resolveLocked(v.Base, t, stack)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: base", def.Name)
		}
		l.Fields = append(l.Fields, base.Fields...)
		for _, s := range base.Fields {
			names[s.Name] = true
		}
		cursor = base.Size
	}
	baseSize := cursor

	for _, f := range v.Fields {
		if !f.When.Matches(t) {
			continue
		}
		s, err := r.slot(f, t, stack)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", def.Name, f.Name)
		}
		if f.Offset >= 0 {
			if f.Offset < cursor {
				return nil, errors.Wrapf(ErrOverlappingField, "%s.%s at 0x%x, previous field ends at 0x%x", def.Name, f.Name, f.Offset, cursor)
			}
			cursor = f.Offset
		}
		if f.Kind != KindPadding {
			if names[f.Name] {
				return nil, errors.Wrapf(ErrDuplicateField, "%s.%s", def.Name, f.Name)
			}
			names[f.Name] = true
		}
		s.Offset = cursor
		cursor += s.Size
		l.Fields = append(l.Fields, s)
	}

	if v.Size > 0 {
		if own := cursor - baseSize; v.Size < own {
			return nil, errors.Wrapf(ErrSizeMismatch, "%s for %s: declared 0x%x, fields need 0x%x", def.Name, t, v.Size, own)
		}
		cursor = baseSize + v.Size
	}
	l.Size = cursor
	return l, nil
}

func (r *Registry) slot(f *Field, t cache.Target, stack []string) (Slot, error) {
	s := Slot{
		Name:   f.Name,
		Kind:   f.Kind,
		Length: f.Length,
		Width:  f.Width,
		Mask:   f.Mask,
		Type:   f.Type,
	}
	switch f.Kind {
	case KindInt8, KindUint8, KindInt16, KindUint16, KindInt32, KindUint32,
		KindInt64, KindUint64, KindFloat32, KindFloat64, KindTag, KindCharTag:
		s.Size = f.Kind.primitiveSize()
	case KindString, KindPadding:
		if f.Length <= 0 {
			return s, errors.Wrapf(ErrInvalidField, "%s length %d", f.Kind, f.Length)
		}
		s.Size = f.Length
	case KindFlags:
		switch f.Width {
		case 1, 2:
			full := uint32(1)<<(8*f.Width) - 1
			if s.Mask == 0 {
				s.Mask = full
			}
			s.Mask &= full
		case 4:
			if s.Mask == 0 {
				s.Mask = 0xFFFFFFFF
			}
		default:
			return s, errors.Wrapf(ErrInvalidField, "flags width %d", f.Width)
		}
		s.Size = f.Width
	case KindStruct:
		if f.Type == "" {
			return s, errors.Wrap(ErrInvalidField, "struct without type")
		}
		nested, err := r.resolveLocked(f.Type, t, stack)
		if err != nil {
			return s, err
		}
		s.Struct = nested
		s.Size = nested.Size
	case KindArray:
		if f.Length <= 0 || f.Elem == nil {
			return s, errors.Wrapf(ErrInvalidField, "array needs a count and element, got %d", f.Length)
		}
		elem, err := r.elem(f.Elem, t, stack, true)
		if err != nil {
			return s, err
		}
		s.Elem = &elem
		s.Size = f.Length * elem.Size
	case KindBlock:
		if f.Elem == nil {
			return s, errors.Wrap(ErrInvalidField, "block without element")
		}
		elem, err := r.elem(f.Elem, t, stack, false)
		if err != nil {
			return s, err
		}
		s.Elem = &elem
		s.Size = blockHeaderSize + t.PointerSize()
	case KindData:
		s.Size = dataHeaderSize + t.PointerSize()
	case KindPointer:
		if f.Type == "" {
			return s, errors.Wrap(ErrInvalidField, "pointer without type")
		}
		if _, ok := r.defs[f.Type]; !ok {
			return s, errors.Wrapf(ErrUnknownType, "%q", f.Type)
		}
		s.Size = t.PointerSize()
	case KindAddress, KindResource:
		s.Size = t.PointerSize()
	case KindTagReference:
		s.Size = t.TagReferenceSize()
	default:
		return s, errors.Wrapf(ErrInvalidField, "kind %s", f.Kind)
	}
	return s, nil
}

// elem resolves an array or block element. Struct elements of blocks are
// resolved lazily so blocks may contain their own type.
func (r *Registry) elem(f *Field, t cache.Target, stack []string, inline bool) (Slot, error) {
	if f.Kind == KindPadding {
		return Slot{}, errors.Wrap(ErrInvalidField, "padding element")
	}
	if !inline && f.Kind == KindStruct {
		if _, ok := r.defs[f.Type]; !ok {
			return Slot{}, errors.Wrapf(ErrUnknownType, "%q", f.Type)
		}
		return Slot{Kind: KindStruct, Type: f.Type}, nil
	}
	return r.slot(f, t, stack)
}
