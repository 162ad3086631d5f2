package tagdata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EchoTools/tagcache/pkg/tag"
)

func TestStruct(t *testing.T) {
	s := NewStruct("point").Set("y", int32(2)).Set("x", int32(1))
	assert.Equal(t, []string{"x", "y"}, s.Names())
	assert.Equal(t, "point{2 fields}", s.String())

	v, ok := s.Get("x")
	assert.True(t, ok)
	assert.Equal(t, int32(1), v)
	_, ok = s.Get("z")
	assert.False(t, ok)

	var zero Struct
	zero.Set("a", uint8(1))
	assert.Len(t, zero.Fields, 1)
}

func TestTagRef(t *testing.T) {
	assert.True(t, NullTagRef.IsNull())
	assert.Equal(t, "null", NullTagRef.String())
	assert.True(t, TagRef{Group: tag.New("bitm"), Index: -5}.IsNull())

	r := TagRef{Group: tag.New("bitm"), Index: 0x2a}
	assert.False(t, r.IsNull())
	assert.Equal(t, "bitm:0x002a", r.String())
}
