package definitions

import (
	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/layout"
)

const (
	RenderMethodOption      = "render_method_option"
	RenderMethodOptionBlock = "render_method_option_block"
)

func optionFields() []*layout.Field {
	return []*layout.Field{
		layout.Uint32("type"), // string id
		layout.Uint32("unknown"),
		layout.Uint32("unknown2"),
		layout.TagReference("bitmap"),
		layout.Float32("unknown3"),
		layout.Uint32("unknown4"),
		layout.Uint32("unknown5"),
		layout.Int16("unknown6"),
		layout.Int16("unknown7"),
		layout.Int16("unknown8"),
		layout.Int16("unknown9"),
		layout.Float32("unknown10"),
		layout.Uint32("unknown11"),
		layout.Uint32("unknown12"),
		layout.Uint32("unknown13"),
		layout.Uint32("unknown14"),
		layout.Uint32("unknown15"),
		layout.Uint32("unknown16").On(layout.Range(cache.Halo3ODST, cache.Halo3ODST)),
		layout.Uint32("unknown17").On(layout.Range(cache.Halo3ODST, cache.Halo3ODST)),
		layout.Uint32("unknown18").On(layout.Range(cache.Halo3ODST, cache.Halo3ODST)),
	}
}

func shaders() []*layout.Definition {
	return []*layout.Definition{
		{
			Name:  RenderMethodOption,
			Group: GroupRenderMethodOption,
			Variants: []layout.Variant{
				{
					When: layout.Until(cache.Halo3ODST).On(cache.PlatformOriginal),
					Size: 0xC,
					Fields: []*layout.Field{
						layout.Block("options", layout.Of(RenderMethodOptionBlock)),
					},
				},
				{
					When: layout.Since(cache.HaloOnline106708).On(cache.PlatformOriginal),
					Size: 0x18,
					Fields: []*layout.Field{
						layout.Block("options", layout.Of(RenderMethodOptionBlock)),
						layout.Padding(12),
					},
				},
			},
		},
		{
			Name: RenderMethodOptionBlock,
			Variants: []layout.Variant{
				{When: layout.Until(cache.Halo3Retail), Size: 0x48, Fields: optionFields()},
				{When: layout.Range(cache.Halo3ODST, cache.Halo3ODST), Size: 0x54, Fields: optionFields()},
				{When: layout.Since(cache.HaloOnline106708), Size: 0x48, Fields: optionFields()},
			},
		},
	}
}
