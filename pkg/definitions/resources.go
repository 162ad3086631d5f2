package definitions

import (
	"github.com/pkg/errors"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/layout"
	"github.com/EchoTools/tagcache/pkg/resource"
	"github.com/EchoTools/tagcache/pkg/tagdata"
)

const (
	ResourceLayoutTable = "cache_file_resource_layout_table"
	CodecDefinition     = "cache_file_codec_definition"
	SharedFile          = "cache_file_shared_file"
	ResourcePage        = "cache_file_resource_page"
	SubpageTable        = "cache_file_resource_subpage_table"
	Subpage             = "cache_file_resource_subpage"
	ResourceSection     = "cache_file_resource_section"
)

// ErrNotAPage is returned when page helpers get a struct of another type.
var ErrNotAPage = errors.New("not a resource page")

func resources() []*layout.Definition {
	table := func() []*layout.Field {
		return []*layout.Field{
			layout.Block("codec_definitions", layout.Of(CodecDefinition)),
			layout.Block("shared_files", layout.Of(SharedFile)),
			layout.Block("pages", layout.Of(ResourcePage)),
			layout.Block("subpage_tables", layout.Of(SubpageTable)),
			layout.Block("sections", layout.Of(ResourceSection)),
		}
	}

	hash := func(name string) *layout.Field {
		return layout.Array(name, 20, layout.Uint8(""))
	}

	return []*layout.Definition{
		{
			Name:  ResourceLayoutTable,
			Group: GroupResourceLayoutTable,
			Variants: []layout.Variant{
				{When: layout.Until(cache.HaloReach).On(cache.PlatformOriginal), Size: 0x3C, Fields: table()},
				{When: layout.Since(cache.HaloReach).On(cache.PlatformMCC), Fields: table()},
			},
		},
		layout.Single(CodecDefinition, 0, 0x10,
			layout.Array("guid", 16, layout.Uint8("")),
		),
		layout.Single(SharedFile, 0, 0x108,
			layout.String("path", 256),
			layout.Int16("flags"),
			layout.Int16("unknown"),
			layout.Int32("block_offset"),
		),
		layout.Single(ResourcePage, 0, 0x58,
			layout.Int16("salt"),
			layout.Flags("old_flags", 1, uint32(resource.LegacyLocationMask|resource.LegacyChecksumMask)),
			layout.Int8("codec_index"),
			layout.Int16("shared_cache_index"),
			layout.Int16("unknown").Until(cache.Halo3ODST),
			layout.Flags("new_flags", 1, 0xFF).Since(cache.HaloOnline106708),
			layout.Padding(1).Since(cache.HaloOnline106708),
			layout.Uint32("block_offset"),
			layout.Uint32("compressed_block_size"),
			layout.Uint32("uncompressed_block_size"),
			layout.Uint32("crc_checksum"),
			hash("entire_buffer_hash"),
			hash("first_chunk_hash"),
			hash("last_chunk_hash"),
			layout.Int16("block_asset_count"),
			layout.Int16("unknown2"),
		),
		layout.Single(SubpageTable, 0, 0,
			layout.Int32("total_size"),
			layout.Block("subpages", layout.Of(Subpage)),
		),
		layout.Single(Subpage, 0, 0x8,
			layout.Int32("offset"),
			layout.Int32("size"),
		),
		layout.Single(ResourceSection, 0, 0xC,
			layout.Int16("required_page_index"),
			layout.Int16("optional_page_index"),
			layout.Int32("required_segment_offset"),
			layout.Int32("optional_segment_offset"),
		),
	}
}

func pageFlags(page *tagdata.Struct) (legacy resource.LegacyFlags, current resource.CurrentFlags, hasCurrent bool, err error) {
	if page == nil || page.Type != ResourcePage {
		return 0, 0, false, ErrNotAPage
	}
	if v, ok := page.Get("old_flags"); ok {
		x, ok := v.(uint32)
		if !ok {
			return 0, 0, false, errors.Wrapf(ErrNotAPage, "old_flags is %T", v)
		}
		legacy = resource.LegacyFlags(x)
	}
	if v, ok := page.Get("new_flags"); ok {
		x, ok := v.(uint32)
		if !ok {
			return 0, 0, false, errors.Wrapf(ErrNotAPage, "new_flags is %T", v)
		}
		current, hasCurrent = resource.CurrentFlags(x), true
	}
	return legacy, current, hasCurrent, nil
}

// PageLocation decodes the external file of a resource page.
func PageLocation(page *tagdata.Struct) (resource.Location, error) {
	legacy, current, _, err := pageFlags(page)
	if err != nil {
		return 0, err
	}
	return resource.Decode(legacy, current)
}

// SetPageLocation rewrites the location bits of a resource page. Pages
// without new_flags can only hold legacy locations.
func SetPageLocation(page *tagdata.Struct, loc resource.Location) error {
	legacy, current, hasCurrent, err := pageFlags(page)
	if err != nil {
		return err
	}
	if !hasCurrent {
		legacy, err = resource.EncodeLegacy(loc, legacy)
		if err != nil {
			return err
		}
		page.Set("old_flags", uint32(legacy))
		return nil
	}
	legacy, current, err = resource.Encode(loc, legacy, current)
	if err != nil {
		return err
	}
	page.Set("old_flags", uint32(legacy)).Set("new_flags", uint32(current))
	return nil
}

// DisablePageChecksum clears the checksum bits of a resource page.
func DisablePageChecksum(page *tagdata.Struct) error {
	legacy, current, hasCurrent, err := pageFlags(page)
	if err != nil {
		return err
	}
	legacy, current = resource.DisableChecksum(legacy, current)
	page.Set("old_flags", uint32(legacy))
	if hasCurrent {
		page.Set("new_flags", uint32(current))
	}
	return nil
}
