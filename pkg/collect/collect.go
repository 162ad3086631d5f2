// Package collect gathers the tag dependencies and resource slots found while
// serializing one blob.
package collect

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Collector is append-only. Dependencies have set semantics; resource
// offsets keep the order they were found in.
type Collector struct {
	deps      mapset.Set[int32]
	resources []uint32
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{deps: mapset.NewThreadUnsafeSet[int32]()}
}

// AddDependency records a referenced tag index.
func (c *Collector) AddDependency(index int32) {
	c.deps.Add(index)
}

// AddResourceOffset records the offset of a resource slot.
func (c *Collector) AddResourceOffset(offset uint32) {
	c.resources = append(c.resources, offset)
}

// Dependencies returns the collected dependency set.
func (c *Collector) Dependencies() mapset.Set[int32] {
	return c.deps
}

// ResourceOffsets returns the collected resource offsets.
func (c *Collector) ResourceOffsets() []uint32 {
	return c.resources
}
