package layout

import (
	"fmt"

	"github.com/EchoTools/tagcache/pkg/cache"
)

// Predicate restricts a variant or field to a version range and platform.
// Both bounds are inclusive; VersionUnknown leaves a side unbounded and
// PlatformAny matches every platform.
type Predicate struct {
	Min      cache.Version
	Max      cache.Version
	Platform cache.Platform
}

// Always matches every target.
var Always = Predicate{}

// Range matches versions from..to inclusive on any platform.
func Range(from, to cache.Version) Predicate {
	return Predicate{Min: from, Max: to}
}

// Since matches v and every later version.
func Since(v cache.Version) Predicate {
	return Predicate{Min: v}
}

// Until matches v and every earlier version.
func Until(v cache.Version) Predicate {
	return Predicate{Max: v}
}

// On returns a copy of the predicate restricted to platform p.
func (p Predicate) On(platform cache.Platform) Predicate {
	p.Platform = platform
	return p
}

// Matches reports whether the target satisfies the predicate.
func (p Predicate) Matches(t cache.Target) bool {
	if p.Min != cache.VersionUnknown && t.Version < p.Min {
		return false
	}
	if p.Max != cache.VersionUnknown && t.Version > p.Max {
		return false
	}
	return p.Platform == cache.PlatformAny || p.Platform == t.Platform
}

func (p Predicate) String() string {
	lo, hi := "*", "*"
	if p.Min != cache.VersionUnknown {
		lo = p.Min.String()
	}
	if p.Max != cache.VersionUnknown {
		hi = p.Max.String()
	}
	platform := "*"
	if p.Platform != cache.PlatformAny {
		platform = p.Platform.String()
	}
	return fmt.Sprintf("[%s..%s]/%s", lo, hi, platform)
}
