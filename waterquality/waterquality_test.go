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

package waterquality

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
)

var thresholds = MaskThresholds{Water: 0.05, Cirrus: 0.005, HighTOA: 0.3}

var corrected = []model.Band{model.B2, model.B3, model.B4, model.B10, model.B11}

// two pixels: the first is water, the second has a bright SWIR
func mockScene(t *testing.T, engine *raster.Memory) raster.Image {
	var names []string
	var layers []*raster.Layer
	rhot := map[model.Band][2]float64{model.B2: {0.1, 0.1}, model.B3: {0.08, 0.08}, model.B4: {0.05, 0.05}, model.B10: {0.001, 0.001}, model.B11: {0.01, 0.2}}
	rhos := map[model.Band][2]float64{model.B2: {0.04, 0.04}, model.B3: {0.03, 0.03}, model.B4: {0.02, 0.02}, model.B10: {0.001, 0.001}, model.B11: {0.001, 0.1}}
	for _, band := range corrected {
		toa, surface := rhot[band], rhos[band]
		names = append(names, band.Rhot(), band.Rhos())
		layers = append(layers,
			&raster.Layer{Width: 2, Height: 1, Values: toa[:]},
			&raster.Layer{Width: 2, Height: 1, Values: surface[:]})
	}
	img, err := engine.NewImage(names, layers)
	assert.Nil(t, err)
	return img
}

func TestComputer_Compute(t *testing.T) {
	// Mock
	engine := raster.NewMemory()
	img := mockScene(t, engine)
	computer, err := NewComputer(engine, []string{"spm_nechad2016", "chl_oc2", "pSDB_green", RrsProduct}, corrected, thresholds)
	assert.Nil(t, err)

	// Tested code
	out, errCompute := computer.Compute(img)

	// Asserts
	assert.Nil(t, errCompute)
	spm, _ := engine.Materialize(context.Background(), out, "SPM_Nechad2016_665")
	assert.InDelta(t, 342.10*0.02/(1-0.02/0.19563), spm.Values[0], 1e-9)
	assert.True(t, math.IsNaN(spm.Values[1]), "bright SWIR pixel is not water")

	chl, _ := engine.Materialize(context.Background(), out, "chl_oc2")
	x := math.Log(0.04 / 0.03)
	assert.InDelta(t, math.Pow(10, 0.1977-1.8117*x+1.9743*x*x-2.5635*x*x*x-0.7218*x*x*x*x), chl.Values[0], 1e-9)

	sdb, _ := engine.Materialize(context.Background(), out, "pSDB_green")
	assert.InDelta(t, math.Log(40)/math.Log(30), sdb.Values[0], 1e-9)

	rrs, _ := engine.Materialize(context.Background(), out, model.B3.Rrs())
	assert.InDelta(t, 0.03/math.Pi, rrs.Values[0], 1e-12)
	assert.True(t, out.HasBand(model.B11.Rrs()))
	assert.False(t, out.HasBand(model.B8.Rrs()))
	assert.False(t, out.HasBand(maskBand))
}

func TestNewComputer_Validation(t *testing.T) {
	engine := raster.NewMemory()

	_, errUnknown := NewComputer(engine, []string{"chl_magic"}, corrected, thresholds)
	_, errBands := NewComputer(engine, []string{"chl_re_mishra"}, corrected, thresholds)
	_, errMask := NewComputer(engine, nil, []model.Band{model.B2}, thresholds)
	c, errOK := NewComputer(engine, []string{"ndwi", "pSDB_red"}, append(corrected, model.B8), thresholds)

	assert.NotNil(t, errUnknown)
	assert.NotNil(t, errBands, "B5 was not corrected")
	assert.NotNil(t, errMask)
	assert.Nil(t, errOK)
	assert.Len(t, c.Outputs(), 2)
}

func TestRegistry(t *testing.T) {
	assert.True(t, IsProduct("tur_nechad2016_740"))
	assert.False(t, IsProduct("TUR_Nechad2016_739"))
	names := ProductNames()
	assert.Equal(t, "Rrs_*", names[0])
	assert.Contains(t, names, "chl_re_mishra")
	assert.Len(t, names, 13)

	mishra := registry["chl_re_mishra"].outputs(nil)[0]
	ndci := (0.03 - 0.02) / (0.03 + 0.02)
	assert.InDelta(t, 14.039+86.11*ndci+194.325*ndci*ndci, mishra.fn([]float64{0.03, 0.02}), 1e-9)
	oc3 := registry["chl_oc3"].outputs(nil)[0]
	assert.InDelta(t, registry["chl_oc3"].outputs(nil)[0].fn([]float64{0.05, 0.04, 0.03}), oc3.fn([]float64{0.04, 0.05, 0.03}), 1e-12,
		"OC3 uses the larger of the two blue bands")
}
