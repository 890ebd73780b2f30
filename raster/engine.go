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

// Package raster defines the raster algebra the correction runs against.
//
// An Image is an opaque handle owned by an Engine. Operations build new
// images and never modify their inputs, so one image may be shared by
// concurrent scene pipelines. Masked pixels are represented as NaN.
package raster

import (
	"context"
	"fmt"
)

// Image is a handle to a multi-band raster
type Image interface {
	BandNames() []string
	HasBand(name string) bool
}

// PixelFunc computes one output pixel from the values of the input bands at
// that pixel, in the order the inputs were named. Masked inputs arrive as
// NaN; returning NaN masks the output pixel.
type PixelFunc func(values []float64) float64

// Layer is a materialized single band
type Layer struct {
	Width  int
	Height int
	Values []float64
}

// NewLayer allocates a layer with every pixel masked
func NewLayer(width, height int) *Layer {
	values := make([]float64, width*height)
	for i := range values {
		values[i] = nan
	}
	return &Layer{Width: width, Height: height, Values: values}
}

// At returns the value of the pixel at column x, row y
func (l *Layer) At(x, y int) float64 {
	return l.Values[y*l.Width+x]
}

// Engine is the raster compute surface used by the correction
type Engine interface {
	// Select returns an image holding only the named bands.
	Select(img Image, bands ...string) (Image, error)
	// Rename returns img with band from renamed to to.
	Rename(img Image, from string, to string) (Image, error)
	// AddBands returns dst with the bands of src appended; existing
	// bands are replaced only when overwrite is set.
	AddBands(dst Image, src Image, overwrite bool) (Image, error)
	// MaskNonPositive masks every pixel that is not strictly positive.
	MaskNonPositive(img Image) Image
	// Map evaluates fn per pixel over inputs into a single band named out.
	Map(img Image, out string, inputs []string, fn PixelFunc) (Image, error)
	// Resample brings every band onto the grid of the reference band.
	Resample(img Image, reference string) (Image, error)

	// Percentile reduces a band over all valid pixels. ok is false when
	// the band holds no valid pixels.
	Percentile(ctx context.Context, img Image, band string, percentile float64) (value float64, ok bool, err error)
	// SortedValues returns the valid pixels of a band in ascending order,
	// truncated to limit values when limit is positive.
	SortedValues(ctx context.Context, img Image, band string, limit int) ([]float64, error)
	// Materialize computes a band into memory.
	Materialize(ctx context.Context, img Image, band string) (*Layer, error)
	// Sample reads the value of a single pixel.
	Sample(ctx context.Context, img Image, band string, x, y int) (float64, error)
}

// MissingBandError reports a request for a band an image does not carry
type MissingBandError struct {
	Band string
}

func (err MissingBandError) Error() string {
	return fmt.Sprintf("Image has no band named %q", err.Band)
}
