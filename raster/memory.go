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

package raster

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

var nan = math.NaN()

// Memory is an Engine evaluating eagerly over in-memory float grids
type Memory struct{}

// NewMemory returns an in-memory engine
func NewMemory() *Memory {
	return &Memory{}
}

type memoryImage struct {
	names  []string
	layers map[string]*Layer
}

func (img *memoryImage) BandNames() []string {
	names := make([]string, len(img.names))
	copy(names, img.names)
	return names
}

func (img *memoryImage) HasBand(name string) bool {
	_, ok := img.layers[name]
	return ok
}

func (img *memoryImage) layer(name string) (*Layer, error) {
	layer, ok := img.layers[name]
	if !ok {
		return nil, MissingBandError{Band: name}
	}
	return layer, nil
}

func (img *memoryImage) clone() *memoryImage {
	out := &memoryImage{names: make([]string, len(img.names)), layers: make(map[string]*Layer, len(img.layers))}
	copy(out.names, img.names)
	for name, layer := range img.layers {
		out.layers[name] = layer
	}
	return out
}

func (img *memoryImage) set(name string, layer *Layer) {
	if _, ok := img.layers[name]; !ok {
		img.names = append(img.names, name)
	}
	img.layers[name] = layer
}

// NewImage builds an image from named layers; the layers are owned by the
// image afterwards and must not be modified
func (m *Memory) NewImage(names []string, layers []*Layer) (Image, error) {
	if len(names) != len(layers) {
		return nil, fmt.Errorf("Got %d band names for %d layers", len(names), len(layers))
	}
	img := &memoryImage{layers: map[string]*Layer{}}
	for i, name := range names {
		layer := layers[i]
		if layer == nil || len(layer.Values) != layer.Width*layer.Height {
			return nil, fmt.Errorf("Band %s has inconsistent dimensions", name)
		}
		if img.HasBand(name) {
			return nil, fmt.Errorf("Duplicate band %s", name)
		}
		img.set(name, layer)
	}
	return img, nil
}

func (m *Memory) cast(img Image) (*memoryImage, error) {
	mem, ok := img.(*memoryImage)
	if !ok || mem == nil {
		return nil, fmt.Errorf("Image of type %T was not created by the in-memory engine", img)
	}
	return mem, nil
}

// Select implements Engine
func (m *Memory) Select(img Image, bands ...string) (Image, error) {
	src, err := m.cast(img)
	if err != nil {
		return nil, err
	}
	out := &memoryImage{layers: map[string]*Layer{}}
	for _, band := range bands {
		layer, err := src.layer(band)
		if err != nil {
			return nil, err
		}
		out.set(band, layer)
	}
	return out, nil
}

// Rename implements Engine
func (m *Memory) Rename(img Image, from string, to string) (Image, error) {
	src, err := m.cast(img)
	if err != nil {
		return nil, err
	}
	layer, err := src.layer(from)
	if err != nil {
		return nil, err
	}
	if from == to {
		return src, nil
	}
	if src.HasBand(to) {
		return nil, fmt.Errorf("Cannot rename %s to existing band %s", from, to)
	}
	out := &memoryImage{layers: map[string]*Layer{}}
	for _, name := range src.names {
		if name == from {
			out.set(to, layer)
		} else {
			out.set(name, src.layers[name])
		}
	}
	return out, nil
}

// AddBands implements Engine
func (m *Memory) AddBands(dst Image, src Image, overwrite bool) (Image, error) {
	base, err := m.cast(dst)
	if err != nil {
		return nil, err
	}
	extra, err := m.cast(src)
	if err != nil {
		return nil, err
	}
	out := base.clone()
	for _, name := range extra.names {
		if out.HasBand(name) && !overwrite {
			return nil, fmt.Errorf("Band %s already exists", name)
		}
		out.set(name, extra.layers[name])
	}
	return out, nil
}

// MaskNonPositive implements Engine
func (m *Memory) MaskNonPositive(img Image) Image {
	src, err := m.cast(img)
	if err != nil {
		return img
	}
	out := &memoryImage{layers: map[string]*Layer{}}
	for _, name := range src.names {
		layer := src.layers[name]
		masked := &Layer{Width: layer.Width, Height: layer.Height, Values: make([]float64, len(layer.Values))}
		for i, v := range layer.Values {
			if v > 0 {
				masked.Values[i] = v
			} else {
				masked.Values[i] = nan
			}
		}
		out.set(name, masked)
	}
	return out
}

// Map implements Engine
func (m *Memory) Map(img Image, out string, inputs []string, fn PixelFunc) (Image, error) {
	src, err := m.cast(img)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, errors.New("Map requires at least one input band")
	}
	layers := make([]*Layer, len(inputs))
	for i, name := range inputs {
		if layers[i], err = src.layer(name); err != nil {
			return nil, err
		}
		if layers[i].Width != layers[0].Width || layers[i].Height != layers[0].Height {
			return nil, fmt.Errorf("Band %s is %dx%d but %s is %dx%d; resample first",
				name, layers[i].Width, layers[i].Height, inputs[0], layers[0].Width, layers[0].Height)
		}
	}

	result := &Layer{Width: layers[0].Width, Height: layers[0].Height, Values: make([]float64, len(layers[0].Values))}
	pixel := make([]float64, len(layers))
	for i := range result.Values {
		for j, layer := range layers {
			pixel[j] = layer.Values[i]
		}
		result.Values[i] = fn(pixel)
	}
	return &memoryImage{names: []string{out}, layers: map[string]*Layer{out: result}}, nil
}

// Resample implements Engine with NaN-aware bilinear interpolation
func (m *Memory) Resample(img Image, reference string) (Image, error) {
	src, err := m.cast(img)
	if err != nil {
		return nil, err
	}
	ref, err := src.layer(reference)
	if err != nil {
		return nil, err
	}
	out := &memoryImage{layers: map[string]*Layer{}}
	for _, name := range src.names {
		layer := src.layers[name]
		if layer.Width == ref.Width && layer.Height == ref.Height {
			out.set(name, layer)
			continue
		}
		out.set(name, bilinear(layer, ref.Width, ref.Height))
	}
	return out, nil
}

func bilinear(src *Layer, width, height int) *Layer {
	dst := &Layer{Width: width, Height: height, Values: make([]float64, width*height)}
	sx := float64(src.Width) / float64(width)
	sy := float64(src.Height) / float64(height)
	for y := 0; y < height; y++ {
		fy := (float64(y)+0.5)*sy - 0.5
		y0 := clampIndex(int(math.Floor(fy)), src.Height)
		y1 := clampIndex(y0+1, src.Height)
		wy := math.Min(math.Max(fy-float64(y0), 0), 1)
		for x := 0; x < width; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			x0 := clampIndex(int(math.Floor(fx)), src.Width)
			x1 := clampIndex(x0+1, src.Width)
			wx := math.Min(math.Max(fx-float64(x0), 0), 1)

			var sum, weight float64
			for _, c := range [4]struct {
				x, y int
				w    float64
			}{
				{x0, y0, (1 - wx) * (1 - wy)},
				{x1, y0, wx * (1 - wy)},
				{x0, y1, (1 - wx) * wy},
				{x1, y1, wx * wy},
			} {
				v := src.At(c.x, c.y)
				if math.IsNaN(v) || c.w == 0 {
					continue
				}
				sum += v * c.w
				weight += c.w
			}
			if weight == 0 {
				dst.Values[y*width+x] = nan
			} else {
				dst.Values[y*width+x] = sum / weight
			}
		}
	}
	return dst
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m *Memory) validValues(ctx context.Context, img Image, band string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := m.cast(img)
	if err != nil {
		return nil, err
	}
	layer, err := src.layer(band)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(layer.Values))
	for _, v := range layer.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	sort.Float64s(values)
	return values, nil
}

// Percentile implements Engine
func (m *Memory) Percentile(ctx context.Context, img Image, band string, percentile float64) (float64, bool, error) {
	if percentile < 0 || percentile > 100 {
		return 0, false, fmt.Errorf("Percentile %v is outside [0, 100]", percentile)
	}
	values, err := m.validValues(ctx, img, band)
	if err != nil {
		return 0, false, err
	}
	if len(values) == 0 {
		return 0, false, nil
	}
	return stat.Quantile(percentile/100, stat.Empirical, values, nil), true, nil
}

// SortedValues implements Engine
func (m *Memory) SortedValues(ctx context.Context, img Image, band string, limit int) ([]float64, error) {
	values, err := m.validValues(ctx, img, band)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	return values, nil
}

// Materialize implements Engine
func (m *Memory) Materialize(ctx context.Context, img Image, band string) (*Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := m.cast(img)
	if err != nil {
		return nil, err
	}
	layer, err := src.layer(band)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(layer.Values))
	copy(values, layer.Values)
	return &Layer{Width: layer.Width, Height: layer.Height, Values: values}, nil
}

// Sample implements Engine
func (m *Memory) Sample(ctx context.Context, img Image, band string, x, y int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	src, err := m.cast(img)
	if err != nil {
		return 0, err
	}
	layer, err := src.layer(band)
	if err != nil {
		return 0, err
	}
	if x < 0 || y < 0 || x >= layer.Width || y >= layer.Height {
		return 0, fmt.Errorf("Pixel (%d, %d) is outside the %dx%d band %s", x, y, layer.Width, layer.Height, band)
	}
	return layer.At(x, y), nil
}
