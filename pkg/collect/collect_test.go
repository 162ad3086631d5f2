package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := New()
	for _, d := range []int32{5, 1, 5, 3, 1} {
		c.AddDependency(d)
	}
	c.AddResourceOffset(0x30)
	c.AddResourceOffset(0x10)
	c.AddResourceOffset(0x30)

	assert.Equal(t, 3, c.Dependencies().Cardinality())
	assert.True(t, c.Dependencies().Contains(1, 3, 5))
	assert.Equal(t, []uint32{0x30, 0x10, 0x30}, c.ResourceOffsets())
}
