// Copyright 2018, RadiantBlue Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"fmt"
	"strings"
)

// Band identifies one Sentinel-2 MSI spectral band
type Band int

// The MSI band set, in instrument order
const (
	B1 Band = iota
	B2
	B3
	B4
	B5
	B6
	B7
	B8
	B8A
	B9
	B10
	B11
	B12
)

type bandInfo struct {
	name       string
	id         string
	wavelength float64
	resolution int
}

var bandTable = [...]bandInfo{
	B1:  {"B1", "1", 443, 60},
	B2:  {"B2", "2", 492, 10},
	B3:  {"B3", "3", 560, 10},
	B4:  {"B4", "4", 665, 10},
	B5:  {"B5", "5", 704, 20},
	B6:  {"B6", "6", 740, 20},
	B7:  {"B7", "7", 783, 20},
	B8:  {"B8", "8", 833, 10},
	B8A: {"B8A", "8A", 865, 20},
	B9:  {"B9", "9", 945, 60},
	B10: {"B10", "10", 1374, 60},
	B11: {"B11", "11", 1614, 20},
	B12: {"B12", "12", 2202, 20},
}

// AllBands is the full band set in instrument order
var AllBands = []Band{B1, B2, B3, B4, B5, B6, B7, B8, B8A, B9, B10, B11, B12}

// GlintReferenceBands are the SWIR bands used as the observed glint proxy
var GlintReferenceBands = [2]Band{B11, B12}

// BandByResolution maps a target ground sampling distance to the band whose
// grid all other bands are resampled onto
var BandByResolution = map[int]Band{
	10: B2,
	20: B5,
	60: B1,
}

// ReferenceBandForResolution returns the resampling reference for a
// resolution, falling back to B2
func ReferenceBandForResolution(resolution int) Band {
	if band, ok := BandByResolution[resolution]; ok {
		return band
	}
	return B2
}

// Valid reports whether b is a member of the band set
func (b Band) Valid() bool {
	return b >= B1 && b <= B12
}

// String returns the image band name, e.g. "B8A"
func (b Band) String() string {
	if !b.Valid() {
		return fmt.Sprintf("Band(%d)", int(b))
	}
	return bandTable[b].name
}

// ID returns the spectral response / lookup table band id, e.g. "8A"
func (b Band) ID() string {
	if !b.Valid() {
		return ""
	}
	return bandTable[b].id
}

// Wavelength returns the nominal center wavelength in nm
func (b Band) Wavelength() float64 {
	if !b.Valid() {
		return 0
	}
	return bandTable[b].wavelength
}

// Resolution returns the native ground sampling distance in meters
func (b Band) Resolution() int {
	if !b.Valid() {
		return 0
	}
	return bandTable[b].resolution
}

// Rhot is the name of the top-of-atmosphere reflectance band in corrected output
func (b Band) Rhot() string { return "rhot_" + b.String() }

// Rhos is the name of the surface reflectance band in corrected output
func (b Band) Rhos() string { return "rhos_" + b.String() }

// Rrs is the name of the remote sensing reflectance band
func (b Band) Rrs() string { return "Rrs_" + b.String() }

// ParseBand accepts either an image band name ("B8A", "b8a") or a band id ("8A")
func ParseBand(name string) (Band, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, band := range AllBands {
		if upper == bandTable[band].name || upper == bandTable[band].id {
			return band, nil
		}
	}
	return -1, fmt.Errorf("Unknown band: %q", name)
}

// ParseBands parses a list of band names or ids
func ParseBands(names []string) ([]Band, error) {
	bands := make([]Band, 0, len(names))
	for _, name := range names {
		band, err := ParseBand(name)
		if err != nil {
			return nil, err
		}
		bands = append(bands, band)
	}
	return bands, nil
}

// BandSet is a set of bands
type BandSet map[Band]bool

// NewBandSet builds a set from a list
func NewBandSet(bands ...Band) BandSet {
	set := BandSet{}
	for _, band := range bands {
		set[band] = true
	}
	return set
}

// Contains reports membership
func (s BandSet) Contains(band Band) bool {
	return s[band]
}
