package definitions

import (
	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/layout"
)

const (
	MultilingualStringList      = "multilingual_unicode_string_list"
	MultilingualStringReference = "multilingual_unicode_string_reference"
)

// Languages in the order of a string reference's offsets.
var Languages = []string{
	"english", "japanese", "german", "french", "spanish",
	"italian", "korean", "chinese", "portuguese",
}

func stringLists() []*layout.Definition {
	ref := []*layout.Field{layout.Uint32("string_id")}
	for _, lang := range Languages {
		ref = append(ref, layout.Int32(lang+"_offset"))
	}

	list := func() []*layout.Field {
		return []*layout.Field{
			layout.Block("string_references", layout.Of(MultilingualStringReference)),
			layout.Data("string_data_utf8"),
			layout.Padding(36),
		}
	}

	return []*layout.Definition{
		{
			Name:  MultilingualStringList,
			Group: GroupMultilingualStringList,
			Variants: []layout.Variant{
				{When: layout.Always.On(cache.PlatformOriginal), Size: 0x44, Fields: list()},
				{When: layout.Always.On(cache.PlatformMCC), Fields: list()},
			},
		},
		layout.Single(MultilingualStringReference, 0, 0x28, ref...),
	}
}
