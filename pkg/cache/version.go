// Package cache defines the cache file targets (version and platform) that
// structure layouts are resolved against, and the serialized tag blob that
// the serializer produces for a target.
package cache

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Version identifies a game build whose cache format differs from its
// neighbours. Versions are ordered chronologically.
type Version uint16

const (
	// VersionUnknown is the unbounded sentinel used by layout predicates.
	VersionUnknown Version = iota
	Halo2Xbox
	Halo2Vista
	Halo3Beta
	Halo3Retail
	Halo3ODST
	HaloOnline106708
	HaloOnline235640
	HaloOnline700123
	HaloReach
	Halo4
)

var versionNames = map[Version]string{
	VersionUnknown:   "Unknown",
	Halo2Xbox:        "Halo2Xbox",
	Halo2Vista:       "Halo2Vista",
	Halo3Beta:        "Halo3Beta",
	Halo3Retail:      "Halo3Retail",
	Halo3ODST:        "Halo3ODST",
	HaloOnline106708: "HaloOnline106708",
	HaloOnline235640: "HaloOnline235640",
	HaloOnline700123: "HaloOnline700123",
	HaloReach:        "HaloReach",
	Halo4:            "Halo4",
}

func (v Version) String() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Version(%d)", uint16(v))
}

// Platform identifies the release platform of a cache.
type Platform uint16

const (
	// PlatformAny is the "all platforms" sentinel used by layout predicates.
	PlatformAny Platform = iota
	PlatformOriginal
	PlatformMCC
)

func (p Platform) String() string {
	switch p {
	case PlatformAny:
		return "Any"
	case PlatformOriginal:
		return "Original"
	case PlatformMCC:
		return "MCC"
	default:
		return fmt.Sprintf("Platform(%d)", uint16(p))
	}
}

// ErrInvalidTarget is returned for targets that are not a concrete
// version/platform pair.
var ErrInvalidTarget = errors.New("invalid cache target")

// ParseVersion converts a version name, case-insensitively.
func ParseVersion(s string) (Version, error) {
	for v, name := range versionNames {
		if v != VersionUnknown && strings.EqualFold(name, s) {
			return v, nil
		}
	}
	return VersionUnknown, errors.Wrapf(ErrInvalidTarget, "unknown version %q", s)
}

// ParsePlatform converts a platform name, case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(s) {
	case "original":
		return PlatformOriginal, nil
	case "mcc":
		return PlatformMCC, nil
	}
	return PlatformAny, errors.Wrapf(ErrInvalidTarget, "unknown platform %q", s)
}

// Target is a concrete version/platform pair.
type Target struct {
	Version  Version
	Platform Platform
}

// NewTarget builds a target.
func NewTarget(v Version, p Platform) Target {
	return Target{Version: v, Platform: p}
}

// ParseTarget builds a target from version and platform names.
func ParseTarget(version, platform string) (Target, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return Target{}, err
	}
	p, err := ParsePlatform(platform)
	if err != nil {
		return Target{}, err
	}
	return NewTarget(v, p), nil
}

// Validate rejects wildcard or out-of-range targets.
func (t Target) Validate() error {
	if t.Version == VersionUnknown || t.Version > Halo4 {
		return errors.Wrapf(ErrInvalidTarget, "version %s", t.Version)
	}
	if t.Platform != PlatformOriginal && t.Platform != PlatformMCC {
		return errors.Wrapf(ErrInvalidTarget, "platform %s", t.Platform)
	}
	return nil
}

// BigEndian reports whether structures for this target are stored big-endian.
// The Xbox 360 releases are; PC and MCC builds are not.
func (t Target) BigEndian() bool {
	if t.Platform != PlatformOriginal {
		return false
	}
	switch {
	case t.Version >= Halo3Beta && t.Version <= Halo3ODST:
		return true
	case t.Version >= HaloReach:
		return true
	}
	return false
}

// ByteOrder returns the byte order of the target.
func (t Target) ByteOrder() binary.ByteOrder {
	if t.BigEndian() {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// PointerSize returns the width of pointer and address slots.
func (t Target) PointerSize() int {
	if t.Platform == PlatformMCC {
		return 8
	}
	return 4
}

// TagReferenceSize returns the size of a reference to another tag.
func (t Target) TagReferenceSize() int {
	if t.Version < Halo3Beta {
		return 8 // group, index
	}
	return 16 // group, name address, name length, index
}

func (t Target) String() string {
	return t.Version.String() + "/" + t.Platform.String()
}
