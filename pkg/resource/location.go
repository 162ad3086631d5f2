// Package resource handles externally paged resources: the location codec
// shared by the two historical page flag encodings, the page table, and a
// page store that writes pages to per-location .dat files.
package resource

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Location is the external file a resource page lives in.
type Location uint8

const (
	LocationResources Location = iota
	LocationTextures
	LocationTexturesB
	LocationAudio
	LocationResourcesB
	LocationRenderModels
	LocationLightmaps
)

// Locations lists every location in declaration order.
var Locations = []Location{
	LocationResources,
	LocationTextures,
	LocationTexturesB,
	LocationAudio,
	LocationResourcesB,
	LocationRenderModels,
	LocationLightmaps,
}

var locationNames = [...]string{"resources", "textures", "textures_b", "audio", "resources_b", "render_models", "lightmaps"}

func (l Location) String() string {
	if int(l) < len(locationNames) {
		return locationNames[l]
	}
	return fmt.Sprintf("Location(%d)", uint8(l))
}

// FileName returns the name of the .dat file holding the location's pages.
func (l Location) FileName() string {
	return l.String() + ".dat"
}

// ParseLocation converts a location name such as "textures_b".
func ParseLocation(s string) (Location, error) {
	for i, name := range locationNames {
		if strings.EqualFold(name, s) {
			return Location(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedLocation, "%q", s)
}

var (
	ErrNoLocationSet       = errors.New("resource has no location flag set")
	ErrUnsupportedLocation = errors.New("unsupported resource location")
)

// LegacyFlags is the page flag byte used before the render model and
// lightmap files existed.
type LegacyFlags uint8

const (
	LegacyUseChecksum  LegacyFlags = 1 << 1
	LegacyResources    LegacyFlags = 1 << 2
	LegacyTextures     LegacyFlags = 1 << 3
	LegacyTexturesB    LegacyFlags = 1 << 4
	LegacyAudio        LegacyFlags = 1 << 5
	LegacyResourcesB   LegacyFlags = 1 << 6
	LegacyUseChecksum2 LegacyFlags = 1 << 7

	LegacyLocationMask = LegacyResources | LegacyTextures | LegacyTexturesB | LegacyAudio | LegacyResourcesB
	LegacyChecksumMask = LegacyUseChecksum | LegacyUseChecksum2
)

// CurrentFlags is the page flag byte of later builds.
type CurrentFlags uint8

const (
	CurrentUseChecksum  CurrentFlags = 1 << 0
	CurrentResources    CurrentFlags = 1 << 1
	CurrentTextures     CurrentFlags = 1 << 2
	CurrentTexturesB    CurrentFlags = 1 << 3
	CurrentAudio        CurrentFlags = 1 << 4
	CurrentResourcesB   CurrentFlags = 1 << 5
	CurrentRenderModels CurrentFlags = 1 << 6
	CurrentLightmaps    CurrentFlags = 1 << 7

	CurrentLocationMask = CurrentResources | CurrentTextures | CurrentTexturesB | CurrentAudio |
		CurrentResourcesB | CurrentRenderModels | CurrentLightmaps
)

// Bits in decode priority order.
var (
	legacyBits = []struct {
		bit LegacyFlags
		loc Location
	}{
		{LegacyResources, LocationResources},
		{LegacyTextures, LocationTextures},
		{LegacyTexturesB, LocationTexturesB},
		{LegacyAudio, LocationAudio},
		{LegacyResourcesB, LocationResourcesB},
	}
	currentBits = []struct {
		bit CurrentFlags
		loc Location
	}{
		{CurrentResources, LocationResources},
		{CurrentTextures, LocationTextures},
		{CurrentTexturesB, LocationTexturesB},
		{CurrentAudio, LocationAudio},
		{CurrentResourcesB, LocationResourcesB},
		{CurrentRenderModels, LocationRenderModels},
		{CurrentLightmaps, LocationLightmaps},
	}
)

func decodeLegacy(f LegacyFlags) (Location, bool) {
	for _, b := range legacyBits {
		if f&b.bit != 0 {
			return b.loc, true
		}
	}
	return 0, false
}

func decodeCurrent(f CurrentFlags) (Location, bool) {
	for _, b := range currentBits {
		if f&b.bit != 0 {
			return b.loc, true
		}
	}
	return 0, false
}

// Decode returns the location encoded by a page's flag bytes. The legacy
// encoding wins when both carry a location; a disagreement is logged.
func Decode(legacy LegacyFlags, current CurrentFlags) (Location, error) {
	if loc, ok := decodeLegacy(legacy); ok {
		if Conflicting(legacy, current) {
			other, _ := decodeCurrent(current)
			logrus.WithFields(logrus.Fields{
				"legacy":  loc,
				"current": other,
			}).Warn("resource location flags disagree, using legacy")
		}
		return loc, nil
	}
	if loc, ok := decodeCurrent(current); ok {
		return loc, nil
	}
	return 0, errors.Wrapf(ErrNoLocationSet, "legacy 0x%02x, current 0x%02x", uint8(legacy), uint8(current))
}

// Conflicting reports whether both encodings carry a location and the
// locations differ.
func Conflicting(legacy LegacyFlags, current CurrentFlags) bool {
	a, okA := decodeLegacy(legacy)
	b, okB := decodeCurrent(current)
	return okA && okB && a != b
}

// Encode replaces the location bits of both flag bytes, keeping the
// encodings in sync. Locations without a legacy bit only set current flags.
func Encode(loc Location, legacy LegacyFlags, current CurrentFlags) (LegacyFlags, CurrentFlags, error) {
	cur, ok := currentBit(loc)
	if !ok {
		return legacy, current, errors.Wrapf(ErrUnsupportedLocation, "%s", loc)
	}
	legacy &^= LegacyLocationMask
	current &^= CurrentLocationMask
	if bit, ok := legacyBit(loc); ok {
		legacy |= bit
	}
	return legacy, current | cur, nil
}

// EncodeLegacy replaces the location bits of a legacy flag byte.
func EncodeLegacy(loc Location, legacy LegacyFlags) (LegacyFlags, error) {
	bit, ok := legacyBit(loc)
	if !ok {
		return legacy, errors.Wrapf(ErrUnsupportedLocation, "%s has no legacy flag", loc)
	}
	return legacy&^LegacyLocationMask | bit, nil
}

// DisableChecksum clears the checksum bits of both encodings.
func DisableChecksum(legacy LegacyFlags, current CurrentFlags) (LegacyFlags, CurrentFlags) {
	return legacy &^ LegacyChecksumMask, current &^ CurrentUseChecksum
}

// ChecksumEnabled reports whether the active encoding requests a checksum.
func ChecksumEnabled(legacy LegacyFlags, current CurrentFlags) bool {
	if _, ok := decodeLegacy(legacy); ok {
		return legacy&LegacyChecksumMask != 0
	}
	return current&CurrentUseChecksum != 0
}

func legacyBit(loc Location) (LegacyFlags, bool) {
	for _, b := range legacyBits {
		if b.loc == loc {
			return b.bit, true
		}
	}
	return 0, false
}

func currentBit(loc Location) (CurrentFlags, bool) {
	for _, b := range currentBits {
		if b.loc == loc {
			return b.bit, true
		}
	}
	return 0, false
}
