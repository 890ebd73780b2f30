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

// Package waterquality derives water-quality products from corrected
// surface reflectance, masked to water pixels
package waterquality

import (
	"fmt"
	"math"

	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Output is one band computed per pixel from surface reflectance bands
type Output struct {
	Name   string
	Unit   string
	Inputs []model.Band
	fn     func(rhos []float64) float64
}

// Product is a named group of outputs
type Product struct {
	Name string
	// outputs builds the product's bands for the bands available in a scene
	outputs func(available model.BandSet) []Output
}

// RrsProduct expands to one remote sensing reflectance band per corrected band
const RrsProduct = "Rrs_*"

func nechad(name string, unit string, band model.Band, a, c float64) Product {
	output := Output{Name: name, Unit: unit, Inputs: []model.Band{band}, fn: func(v []float64) float64 {
		return a * v[0] / (1 - v[0]/c)
	}}
	return fixed(name, output)
}

func fixed(name string, outputs ...Output) Product {
	return Product{Name: name, outputs: func(model.BandSet) []Output { return outputs }}
}

func ocx(a, b, c, d, e float64) func(ratio float64) float64 {
	return func(ratio float64) float64 {
		x := math.Log(ratio)
		return math.Pow(10, a+b*x+c*x*x+d*x*x*x+e*x*x*x*x)
	}
}

func normalizedDifference(a, b float64) float64 {
	return (a - b) / (a + b)
}

func rrs(rhos float64) float64 {
	return rhos / math.Pi
}

func pSDB(blue, other float64) float64 {
	const n = 1000
	return math.Log(n*math.Pi*rrs(blue)) / math.Log(n*math.Pi*rrs(other))
}

var oc2 = ocx(0.1977, -1.8117, 1.9743, -2.5635, -0.7218)
var oc3 = ocx(0.2412, -2.0546, 1.1776, -0.5538, -0.4570)

var registry = map[string]Product{
	"spm_nechad2016":     nechad("SPM_Nechad2016_665", "g m-3", model.B4, 342.10, 0.19563),
	"spm_nechad2016_704": nechad("SPM_Nechad2016_704", "g m-3", model.B5, 444.36, 0.18753),
	"spm_nechad2016_740": nechad("SPM_Nechad2016_739", "g m-3", model.B6, 1517.00, 0.19736),
	"tur_nechad2016":     nechad("TUR_Nechad2016_665", "FNU", model.B4, 366.14, 0.19563),
	"tur_nechad2016_704": nechad("TUR_Nechad2016_704", "FNU", model.B5, 439.09, 0.18753),
	"tur_nechad2016_740": nechad("TUR_Nechad2016_739", "FNU", model.B6, 1590.66, 0.19736),
	"chl_oc2": fixed("chl_oc2", Output{Name: "chl_oc2", Unit: "mg m-3", Inputs: []model.Band{model.B2, model.B3},
		fn: func(v []float64) float64 { return oc2(v[0] / v[1]) }}),
	"chl_oc3": fixed("chl_oc3", Output{Name: "chl_oc3", Unit: "mg m-3", Inputs: []model.Band{model.B1, model.B2, model.B3},
		fn: func(v []float64) float64 { return oc3(math.Max(v[0], v[1]) / v[2]) }}),
	"chl_re_mishra": fixed("chl_re_mishra", Output{Name: "chl_re_mishra", Unit: "mg m-3", Inputs: []model.Band{model.B5, model.B4},
		fn: func(v []float64) float64 {
			ndci := normalizedDifference(v[0], v[1])
			return 14.039 + 86.11*ndci + 194.325*ndci*ndci
		}}),
	"ndwi": fixed("ndwi", Output{Name: "ndwi", Unit: "1", Inputs: []model.Band{model.B3, model.B8},
		fn: func(v []float64) float64 { return normalizedDifference(rrs(v[0]), rrs(v[1])) }}),
	"pSDB_red": fixed("pSDB_red", Output{Name: "pSDB_red", Unit: "1", Inputs: []model.Band{model.B2, model.B4},
		fn: func(v []float64) float64 { return pSDB(v[0], v[1]) }}),
	"pSDB_green": fixed("pSDB_green", Output{Name: "pSDB_green", Unit: "1", Inputs: []model.Band{model.B2, model.B3},
		fn: func(v []float64) float64 { return pSDB(v[0], v[1]) }}),
	RrsProduct: {Name: RrsProduct, outputs: func(available model.BandSet) []Output {
		var outputs []Output
		for _, band := range model.AllBands {
			if available.Contains(band) {
				outputs = append(outputs, Output{Name: band.Rrs(), Unit: "sr-1", Inputs: []model.Band{band},
					fn: func(v []float64) float64 { return rrs(v[0]) }})
			}
		}
		return outputs
	}},
}

// IsProduct reports whether name is a known product
func IsProduct(name string) bool {
	_, ok := registry[name]
	return ok
}

// ProductNames lists every known product in lexical order
func ProductNames() []string {
	names := maps.Keys(registry)
	slices.Sort(names)
	return names
}

// MaskThresholds configure the water mask. A pixel is water when rhot_B11
// is below Water, rhot_B10 is below Cirrus and every rhot band is below
// HighTOA.
type MaskThresholds struct {
	Water   float64
	Cirrus  float64
	HighTOA float64
}

// Computer evaluates a fixed list of products over corrected scenes
type Computer struct {
	engine  raster.Engine
	outputs []Output
	bands   []model.Band
	mask    MaskThresholds
}

const maskBand = "l2w_mask"

// NewComputer validates that every product is known and that its inputs,
// plus the mask bands, are among the corrected bands
func NewComputer(engine raster.Engine, products []string, corrected []model.Band, mask MaskThresholds) (*Computer, error) {
	available := model.NewBandSet(corrected...)
	for _, band := range []model.Band{model.B10, model.B11} {
		if !available.Contains(band) {
			return nil, fmt.Errorf("Water mask requires corrected band %s", band)
		}
	}
	c := &Computer{engine: engine, bands: corrected, mask: mask}
	seen := map[string]bool{}
	for _, name := range products {
		product, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("Unknown water quality product %q", name)
		}
		for _, output := range product.outputs(available) {
			for _, band := range output.Inputs {
				if !available.Contains(band) {
					return nil, fmt.Errorf("Product %s requires corrected band %s", name, band)
				}
			}
			if seen[output.Name] {
				continue
			}
			seen[output.Name] = true
			c.outputs = append(c.outputs, output)
		}
	}
	return c, nil
}

// Outputs lists the bands Compute adds
func (c *Computer) Outputs() []Output {
	return append([]Output{}, c.outputs...)
}

// Mask computes the water mask band (1 water, NaN otherwise) from the rhot
// bands of img
func (c *Computer) Mask(img raster.Image) (raster.Image, error) {
	inputs := []string{model.B11.Rhot(), model.B10.Rhot()}
	for _, band := range c.bands {
		inputs = append(inputs, band.Rhot())
	}
	return c.engine.Map(img, maskBand, inputs, func(v []float64) float64 {
		if !(v[0] < c.mask.Water) || !(v[1] < c.mask.Cirrus) {
			return math.NaN()
		}
		for _, rhot := range v[2:] {
			if !(rhot < c.mask.HighTOA) {
				return math.NaN()
			}
		}
		return 1
	})
}

// Compute adds every configured output band to img, masked to water
func (c *Computer) Compute(img raster.Image) (raster.Image, error) {
	mask, err := c.Mask(img)
	if err != nil {
		return nil, err
	}
	withMask, err := c.engine.AddBands(img, mask, true)
	if err != nil {
		return nil, err
	}

	out := img
	for _, output := range c.outputs {
		output := output
		inputs := make([]string, 0, len(output.Inputs)+1)
		for _, band := range output.Inputs {
			inputs = append(inputs, band.Rhos())
		}
		inputs = append(inputs, maskBand)
		band, err := c.engine.Map(withMask, output.Name, inputs, func(v []float64) float64 {
			n := len(v) - 1
			if math.IsNaN(v[n]) {
				return math.NaN()
			}
			value := output.fn(v[:n])
			if math.IsInf(value, 0) {
				return math.NaN()
			}
			return value
		})
		if err != nil {
			return nil, fmt.Errorf("Computing %s: %v", output.Name, err)
		}
		if out, err = c.engine.AddBands(out, band, true); err != nil {
			return nil, err
		}
	}
	return out, nil
}
