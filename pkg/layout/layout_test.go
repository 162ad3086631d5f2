package layout

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/tag"
	"github.com/EchoTools/tagcache/pkg/tagdata"
)

var (
	h3       = cache.NewTarget(cache.Halo3Retail, cache.PlatformOriginal)
	odst     = cache.NewTarget(cache.Halo3ODST, cache.PlatformOriginal)
	ho       = cache.NewTarget(cache.HaloOnline106708, cache.PlatformOriginal)
	reach    = cache.NewTarget(cache.HaloReach, cache.PlatformOriginal)
	reachMCC = cache.NewTarget(cache.HaloReach, cache.PlatformMCC)
	h2       = cache.NewTarget(cache.Halo2Vista, cache.PlatformOriginal)
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(
		Single("point", 0, 0, Int16("x"), Int16("y")),
		&Definition{
			Name:  "option",
			Group: tag.New("rmop"),
			Variants: []Variant{
				{When: Until(cache.Halo3ODST), Size: 0xC, Fields: []*Field{
					Block("options", Of("point")),
				}},
				{When: Since(cache.HaloOnline106708), Size: 0x18, Fields: []*Field{
					Block("options", Of("point")),
					Int16("sort_layer").Since(cache.HaloOnline106708),
					Padding(2),
				}},
			},
		},
		&Definition{
			Name: "referenced",
			Variants: []Variant{
				{Fields: []*Field{Address("vtable"), Int16("size"), Int16("count")}},
			},
		},
		&Definition{
			Name: "shape",
			Variants: []Variant{
				{Base: "referenced", Fields: []*Field{
					Padding(4).Only(cache.PlatformMCC),
					Uint32("user_data"),
					Int32("type").Since(cache.HaloReach),
				}},
			},
		},
	))
	return r
}

func TestPredicate(t *testing.T) {
	tests := []struct {
		name   string
		pred   Predicate
		target cache.Target
		want   bool
	}{
		{"Unbounded", Always, h3, true},
		{"InclusiveMin", Since(cache.Halo3Retail), h3, true},
		{"BelowMin", Since(cache.Halo3ODST), h3, false},
		{"InclusiveMax", Until(cache.Halo3ODST), odst, true},
		{"AboveMax", Until(cache.Halo3ODST), ho, false},
		{"Range", Range(cache.Halo3Retail, cache.Halo3ODST), odst, true},
		{"PlatformMatch", Always.On(cache.PlatformMCC), reachMCC, true},
		{"PlatformMismatch", Always.On(cache.PlatformMCC), reach, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred.Matches(tt.target))
		})
	}
}

func TestSelect(t *testing.T) {
	def := &Definition{
		Name: "page",
		Variants: []Variant{
			{When: Until(cache.Halo3ODST)},
			{When: Range(cache.HaloOnline106708, cache.HaloOnline700123)},
		},
	}

	t.Run("Match", func(t *testing.T) {
		v, err := Select(def, h3)
		require.NoError(t, err)
		assert.Same(t, &def.Variants[0], v)

		v, err = Select(def, ho)
		require.NoError(t, err)
		assert.Same(t, &def.Variants[1], v)
	})

	t.Run("NoMatchingLayout", func(t *testing.T) {
		_, err := Select(def, reach)
		assert.ErrorIs(t, err, ErrNoMatchingLayout)
	})

	t.Run("AmbiguousLayout", func(t *testing.T) {
		overlap := &Definition{Name: "overlap", Variants: []Variant{
			{When: Until(cache.Halo3ODST)},
			{When: Since(cache.Halo3ODST)},
		}}
		_, err := Select(overlap, odst)
		assert.ErrorIs(t, err, ErrAmbiguousLayout)

		v, err := Select(overlap, h3)
		require.NoError(t, err)
		assert.Same(t, &overlap.Variants[0], v)
	})
}

func TestResolve(t *testing.T) {
	r := testRegistry(t)

	t.Run("VersionVariants", func(t *testing.T) {
		l, err := r.Resolve("option", h3)
		require.NoError(t, err)
		assert.Equal(t, 0xC, l.Size)
		assert.Equal(t, tag.New("rmop"), l.Group)
		require.Len(t, l.Fields, 1)
		assert.Equal(t, KindBlock, l.Fields[0].Kind)

		l, err = r.Resolve("option", ho)
		require.NoError(t, err)
		assert.Equal(t, 0x18, l.Size)
		sort, ok := l.Field("sort_layer")
		require.True(t, ok)
		assert.Equal(t, 0xC, sort.Offset)
	})

	t.Run("PointerWidth", func(t *testing.T) {
		l, err := r.Resolve("option", reachMCC)
		require.NoError(t, err)
		assert.Equal(t, 4+8+4, l.Fields[0].Size)
	})

	t.Run("FlattenedBase", func(t *testing.T) {
		l, err := r.Resolve("shape", h3)
		require.NoError(t, err)
		assert.Equal(t, 0xC, l.Size)
		names := make([]string, 0, len(l.Fields))
		for _, s := range l.Fields {
			names = append(names, s.Name)
		}
		assert.Equal(t, []string{"vtable", "size", "count", "user_data"}, names)

		l, err = r.Resolve("shape", reachMCC)
		require.NoError(t, err)
		// 8-byte vtable, two int16, MCC padding, user data, type
		assert.Equal(t, 8+4+4+4+4, l.Size)
		typ, ok := l.Field("type")
		require.True(t, ok)
		assert.Equal(t, 0x14, typ.Offset)
	})

	t.Run("NoMatchingLayout", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(&Definition{Name: "odst_only", Variants: []Variant{
			{When: Range(cache.Halo3ODST, cache.Halo3ODST)},
		}}))
		_, err := r.Resolve("odst_only", h3)
		assert.ErrorIs(t, err, ErrNoMatchingLayout)
		_, err = r.Resolve("odst_only", ho)
		assert.ErrorIs(t, err, ErrNoMatchingLayout)
	})

	t.Run("WildcardTarget", func(t *testing.T) {
		_, err := r.Resolve("point", cache.NewTarget(cache.VersionUnknown, cache.PlatformOriginal))
		assert.ErrorIs(t, err, cache.ErrInvalidTarget)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := r.Resolve("missing", h3)
		assert.ErrorIs(t, err, ErrUnknownType)
	})
}

func TestResolveDeterministic(t *testing.T) {
	r := testRegistry(t)

	first, err := r.Resolve("shape", reach)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Layout, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := r.Resolve("shape", reach)
			if err == nil {
				results[i] = l
			}
		}(i)
	}
	wg.Wait()

	for _, l := range results {
		assert.Same(t, first, l)
	}
}

func TestResolveErrors(t *testing.T) {
	t.Run("Overlap", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Single("bad", 0, 0, Int32("a"), Int32("b").At(2))))
		_, err := r.Resolve("bad", h3)
		assert.ErrorIs(t, err, ErrOverlappingField)
	})

	t.Run("PinnedGap", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Single("gap", 0, 0, Int32("a"), Int32("b").At(8))))
		l, err := r.Resolve("gap", h3)
		require.NoError(t, err)
		assert.Equal(t, 12, l.Size)
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Single("small", 0, 4, Int32("a"), Int32("b"))))
		_, err := r.Resolve("small", h3)
		assert.ErrorIs(t, err, ErrSizeMismatch)
	})

	t.Run("RecursiveInline", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(
			Single("a", 0, 0, Struct("b", "b")),
			Single("b", 0, 0, Array("a", 2, Of("a"))),
		))
		_, err := r.Resolve("a", h3)
		assert.ErrorIs(t, err, ErrRecursiveLayout)
	})

	t.Run("RecursiveBlock", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(
			Single("node", 0, 0, Int32("value"), Block("children", Of("node")), Pointer("parent", "node")),
		))
		l, err := r.Resolve("node", h3)
		require.NoError(t, err)
		assert.Equal(t, 4+12+4, l.Size)
	})

	t.Run("DuplicateField", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Single("dup", 0, 0, Int32("a"), Int16("a"))))
		_, err := r.Resolve("dup", h3)
		assert.ErrorIs(t, err, ErrDuplicateField)
	})

	t.Run("InvalidFlags", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Single("flags", 0, 0, Flags("f", 3, 0))))
		_, err := r.Resolve("flags", h3)
		assert.ErrorIs(t, err, ErrInvalidField)
	})
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Single("a", tag.New("aaaa"), 0, Int32("x"))))

	assert.ErrorIs(t, r.Register(Single("a", 0, 0)), ErrDuplicateDefinition)
	assert.ErrorIs(t, r.Register(Single("b", tag.New("aaaa"), 0)), ErrDuplicateDefinition)
	assert.ErrorIs(t, r.Register(&Definition{Name: "c"}), ErrInvalidDefinition)

	name, ok := r.TypeForGroup(tag.New("aaaa"))
	assert.True(t, ok)
	assert.Equal(t, "a", name)
	assert.Equal(t, []string{"a"}, r.Names())
}

func TestNew(t *testing.T) {
	r := testRegistry(t)
	require.NoError(t, r.Register(Single("all", 0, 0,
		Int8("i8"), Float32("f"), CharTag("ct"), String("s", 8), Flags("fl", 2, 0),
		Struct("p", "point"), Array("pts", 2, Of("point")), Block("blk", Uint8("")),
		Data("d"), Pointer("ptr", "point"), TagReference("ref"), Resource("res"),
		Padding(4),
	)))

	l, err := r.Resolve("all", h2)
	require.NoError(t, err)

	s := l.New()
	assert.Equal(t, "all", s.Type)
	assert.Len(t, s.Fields, 12)
	assert.Equal(t, int8(0), s.Fields["i8"])
	assert.Equal(t, tag.Null, s.Fields["ct"])
	assert.Equal(t, tagdata.NullTagRef, s.Fields["ref"])
	assert.Equal(t, (*tagdata.Struct)(nil), s.Fields["ptr"])

	pts := s.Fields["pts"].([]any)
	require.Len(t, pts, 2)
	assert.Equal(t, int16(0), pts[1].(*tagdata.Struct).Fields["y"])

	ref, ok := l.Field("ref")
	require.True(t, ok)
	assert.Equal(t, 8, ref.Size)
}
