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

package lut

import (
	"fmt"
	"sort"

	"github.com/ctessum/sparse"
	"github.com/venicegeo/bf-atmcorr/model"
)

// grid is a set of per-band hypercubes sharing one regular, strictly
// increasing set of axes
type grid struct {
	axes  [][]float64
	order []model.Band
	bands map[model.Band]*sparse.DenseArray
}

func newGrid(names []string, axes ...[]float64) (*grid, error) {
	for i, axis := range axes {
		if len(axis) == 0 {
			return nil, fmt.Errorf("Axis %s is empty", names[i])
		}
		for j := 1; j < len(axis); j++ {
			if !(axis[j] > axis[j-1]) {
				return nil, fmt.Errorf("Axis %s is not strictly increasing at index %d", names[i], j)
			}
		}
	}
	return &grid{axes: axes, bands: map[model.Band]*sparse.DenseArray{}}, nil
}

func (g *grid) shape() []int {
	shape := make([]int, len(g.axes))
	for i, axis := range g.axes {
		shape[i] = len(axis)
	}
	return shape
}

func (g *grid) setBand(band model.Band, data *sparse.DenseArray) error {
	if !band.Valid() {
		return fmt.Errorf("Invalid band %v", band)
	}
	shape := g.shape()
	if len(data.Shape) != len(shape) {
		return fmt.Errorf("Band %s has %d dimensions, expected %d", band, len(data.Shape), len(shape))
	}
	for i := range shape {
		if data.Shape[i] != shape[i] {
			return fmt.Errorf("Band %s has shape %v, expected %v", band, data.Shape, shape)
		}
	}
	if _, ok := g.bands[band]; !ok {
		g.order = append(g.order, band)
	}
	g.bands[band] = data
	return nil
}

// Bands lists the bands carried by the table, in the order they were added
func (g *grid) Bands() []model.Band {
	bands := make([]model.Band, len(g.order))
	copy(bands, g.order)
	return bands
}

// HasBand reports whether the table carries band
func (g *grid) HasBand(band model.Band) bool {
	_, ok := g.bands[band]
	return ok
}

func (g *grid) interpolate(band model.Band, point ...float64) (float64, error) {
	data, ok := g.bands[band]
	if !ok {
		return 0, fmt.Errorf("No table for band %s", band)
	}
	return multilinear(data, g.axes, point), nil
}

// multilinear interpolates data at point over a regular grid. Points outside
// the grid are linearly extrapolated from the edge cell.
func multilinear(data *sparse.DenseArray, axes [][]float64, point []float64) float64 {
	d := len(axes)
	lo := make([]int, d)
	frac := make([]float64, d)
	for i, axis := range axes {
		lo[i], frac[i] = locate(axis, point[i])
	}

	index := make([]int, d)
	var sum float64
	for corner := 0; corner < 1<<uint(d); corner++ {
		weight := 1.0
		for i := 0; i < d && weight != 0; i++ {
			if corner&(1<<uint(i)) != 0 {
				if len(axes[i]) == 1 {
					weight = 0
					break
				}
				index[i] = lo[i] + 1
				weight *= frac[i]
			} else {
				index[i] = lo[i]
				weight *= 1 - frac[i]
			}
		}
		if weight == 0 {
			continue
		}
		sum += weight * data.Get(index...)
	}
	return sum
}

// locate finds the cell [axis[i], axis[i+1]] bracketing x, or the edge cell
// when x is out of range, and the fractional position of x within it
func locate(axis []float64, x float64) (int, float64) {
	n := len(axis)
	if n == 1 {
		return 0, 0
	}
	i := sort.SearchFloat64s(axis, x) - 1
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}
	return i, (x - axis[i]) / (axis[i+1] - axis[i])
}
