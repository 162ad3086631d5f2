package definitions

import (
	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/havok"
	"github.com/EchoTools/tagcache/pkg/layout"
	"github.com/EchoTools/tagcache/pkg/tagdata"
)

const (
	HkpReferencedObject = "hkp_referenced_object"
	HkpShape            = "hkp_shape"
	HkArrayBase         = "hk_array_base"
	HkpMoppCodeInfo     = "hkp_mopp_code_info"
	HkpMoppCode         = "hkp_mopp_code"
	TagHkpMoppCode      = "tag_hkp_mopp_code"
)

// DefaultReferenceCount is the reference count of objects embedded in tags.
const DefaultReferenceCount uint16 = 128

func havokTypes() []*layout.Definition {
	shape := func() []*layout.Field {
		return []*layout.Field{
			layout.Address("vtable"),
			layout.Struct("referenced_object", HkpReferencedObject),
			layout.Padding(4).Only(cache.PlatformMCC),
			layout.Address("user_data"),
			layout.Uint32("type").Since(cache.Halo3Retail),
			layout.Padding(4).Only(cache.PlatformMCC),
			layout.Array("unknown", 8, layout.Float32("")).Since(cache.HaloReach),
		}
	}

	return []*layout.Definition{
		layout.Single(HkpReferencedObject, 0, 0x4,
			layout.Uint16("size_and_flags"),
			layout.Uint16("reference_count"),
		),
		{
			Name: HkpShape,
			Variants: []layout.Variant{
				{When: layout.Until(cache.Halo2Vista), Fields: shape()},
				{When: layout.Since(cache.Halo3Retail), Fields: shape()},
			},
		},
		layout.Single(HkArrayBase, 0, 0xC,
			layout.Uint32("data_address"),
			layout.Uint32("size"),
			layout.Uint32("capacity_and_flags"),
		),
		layout.Single(HkpMoppCodeInfo, 0, 0x10,
			layout.Array("offset", 4, layout.Float32("")),
		),
		layout.Single(HkpMoppCode, 0, 0x30,
			layout.Uint32("vtable"),
			layout.Struct("referenced_object", HkpReferencedObject),
			layout.Padding(8),
			layout.Struct("code_info", HkpMoppCodeInfo),
			layout.Struct("array_base", HkArrayBase),
			layout.Padding(4),
		),
		{
			Name: TagHkpMoppCode,
			Variants: []layout.Variant{{
				Base: HkpMoppCode,
				Fields: []*layout.Field{
					layout.Block("data", layout.Uint8("")),
					layout.Padding(4),
				},
			}},
		},
	}
}

// NewMoppCode builds a tag_hkp_mopp_code instance for the target holding
// code. The array never owns its storage, which lives in the tag.
func NewMoppCode(r *layout.Registry, t cache.Target, code []byte) (*tagdata.Struct, error) {
	l, err := r.Resolve(TagHkpMoppCode, t)
	if err != nil {
		return nil, err
	}
	capacity, err := havok.NewArrayCapacity(uint32(len(code)), havok.DontDeallocate)
	if err != nil {
		return nil, errors.Wrapf(err, "%d bytes of mopp code", len(code))
	}

	s := l.New()
	ref, _ := s.Get("referenced_object")
	ref.(*tagdata.Struct).Set("reference_count", DefaultReferenceCount)
	arr, _ := s.Get("array_base")
	arr.(*tagdata.Struct).
		Set("size", uint32(len(code))).
		Set("capacity_and_flags", uint32(capacity))

	data := make([]any, len(code))
	for i, b := range code {
		data[i] = b
	}
	s.Set("data", data)
	return s, nil
}

// MoppCapacity returns the packed capacity word of a mopp code instance.
func MoppCapacity(s *tagdata.Struct) (havok.ArrayCapacity, error) {
	v, ok := s.Get("array_base")
	arr, isStruct := v.(*tagdata.Struct)
	if !ok || !isStruct || arr == nil {
		return 0, errors.Errorf("%s has no array_base", s.Type)
	}
	raw, ok := arr.Get("capacity_and_flags")
	c, isWord := raw.(uint32)
	if !ok || !isWord {
		return 0, errors.Errorf("%s.array_base has no capacity_and_flags", s.Type)
	}
	return havok.ArrayCapacity(c), nil
}
