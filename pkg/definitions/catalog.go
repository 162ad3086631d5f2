// Package definitions is the catalog of structure layouts known to tagcache.
package definitions

import (
	"github.com/EchoTools/tagcache/pkg/layout"
	"github.com/EchoTools/tagcache/pkg/tag"
)

// Groups of the tags rooted at catalog structures.
var (
	GroupRenderMethodOption     = tag.New("rmop")
	GroupMultilingualStringList = tag.New("unic")
	GroupResourceLayoutTable    = tag.New("play")
)

// All returns every catalog definition.
func All() []*layout.Definition {
	var defs []*layout.Definition
	defs = append(defs, shaders()...)
	defs = append(defs, stringLists()...)
	defs = append(defs, resources()...)
	defs = append(defs, havokTypes()...)
	return defs
}

// NewRegistry returns a registry holding the whole catalog.
func NewRegistry() *layout.Registry {
	r := layout.NewRegistry()
	r.MustRegister(All()...)
	return r
}
