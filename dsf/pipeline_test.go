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

package dsf

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/venicegeo/bf-atmcorr/ancillary"
	"github.com/venicegeo/bf-atmcorr/gas"
	"github.com/venicegeo/bf-atmcorr/lut"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
	"github.com/venicegeo/bf-atmcorr/rsr"
	"github.com/venicegeo/bf-atmcorr/settings"
	"github.com/venicegeo/bf-atmcorr/util"
	"github.com/venicegeo/geojson-go/geojson"
)

const (
	lutMOD1 = "ACOLITE-LUT-202110-MOD1"
	lutMOD2 = "ACOLITE-LUT-202110-MOD2"
	lutMOD3 = "ACOLITE-LUT-202110-MOD3"
)

type fakeModels struct {
	table     lut.Table
	glints    lut.GlintTable
	requested []string
}

func (f *fakeModels) LoadModels(ctx util.LogContext, sensor model.SensorID, names []string) (lut.Table, error) {
	f.requested = names
	table := lut.Table{}
	for _, name := range names {
		if m, ok := f.table[name]; ok {
			table[name] = m
		}
	}
	return table, nil
}

func (f *fakeModels) LoadGlintModels(ctx util.LogContext, indices []int, base string, sensor model.SensorID) (lut.GlintTable, error) {
	return f.glints, nil
}

type fakeResponses struct{}

func (fakeResponses) Load(ctx util.LogContext, sensor model.SensorID) (*rsr.Response, error) {
	return &rsr.Response{Sensor: sensor, Bands: testBands}, nil
}

type fakeGas struct {
	input gas.Input
}

func (f *fakeGas) Transmittance(ctx context.Context, in gas.Input, response *rsr.Response) (map[model.Band]float64, error) {
	f.input = in
	return unitGas, nil
}

type fakeAncillary struct {
	values ancillary.Values
	err    error
}

func (f fakeAncillary) Query(ctx context.Context, at time.Time, lon, lat float64) (ancillary.Values, error) {
	return f.values, f.err
}

// each band holds its dark value, two brighter pixels and one negative pixel
func mockScene(t *testing.T, engine *raster.Memory) *model.Scene {
	names := make([]string, 0, len(testBands))
	layers := make([]*raster.Layer, 0, len(testBands))
	for _, band := range testBands {
		d := scenarioDark.Values[band]
		bright := d + 0.02
		if band == model.B11 || band == model.B12 {
			bright = d + 0.03
		}
		names = append(names, band.String())
		layers = append(layers, &raster.Layer{Width: 2, Height: 2, Values: []float64{d, d + 0.01, bright, -1}})
	}
	img, err := engine.NewImage(names, layers)
	assert.Nil(t, err)
	return &model.Scene{
		ID:           "S2A_MSIL1C_20211014T103021_N0301_R108_T31UET_20211014T123842",
		ProductID:    "S2A_MSIL1C_20211014T103021_N0301_R108_T31UET_20211014T123842",
		Sensor:       model.SensorS2A,
		AcquiredDate: time.Date(2021, 10, 14, 10, 30, 21, 0, time.UTC),
		Footprint:    geojson.NewPolygon([][][]float64{{{0, 50}, {1, 50}, {1, 51}, {0, 51}, {0, 50}}}),
		Geometry:     testConditions.Geometry,
		Resolution:   10,
		Image:        img,
	}
}

func mockCorrector(t *testing.T, engine *raster.Memory, s settings.Settings) (*Corrector, *fakeModels, *fakeGas) {
	models := &fakeModels{
		table: lut.Table{
			lutMOD1: mockModel(t, lutMOD1, plainRomix),
			lutMOD2: mockModel(t, lutMOD2, fittedRomix),
			lutMOD3: mockModel(t, lutMOD3, plainRomix),
		},
		glints: mockGlintTable(t, 2, halfGlint),
	}
	gasService := &fakeGas{}
	return &Corrector{Engine: engine, Settings: s, Models: models, Responses: fakeResponses{}, Gas: gasService}, models, gasService
}

func TestCorrector_CorrectScene(t *testing.T) {
	// Mock
	engine := raster.NewMemory()
	scene := mockScene(t, engine)
	s := settings.Default()
	s.ResidualGlintCorrection = true
	s.L2WParameters = []string{"spm_nechad2016"}
	corrector, models, gasService := mockCorrector(t, engine, s)

	// Tested code
	result, err := corrector.CorrectScene(context.Background(), scene)

	// Asserts
	assert.Nil(t, err)
	assert.Equal(t, []string{lutMOD1, lutMOD2}, models.requested)
	assert.Equal(t, 1013.25, gasService.input.Pressure)
	assert.Equal(t, 0.3, gasService.input.Ozone)
	assert.Equal(t, settings.SourceDefault, result.Atmosphere.Source)

	assert.NotNil(t, result.DarkSpectrum)
	for band, value := range scenarioDark.Values {
		assert.InDelta(t, value, result.DarkSpectrum.Values[band], 1e-12, band.String())
	}
	assert.Len(t, result.Estimates, 2)
	assert.Equal(t, lutMOD2, result.Selection.Model)
	assert.InDelta(t, 0.25, result.Selection.AOT, 1e-9)
	assert.Equal(t, CriterionRMSD, result.Selection.Criterion)
	assert.Equal(t, testBands, result.Parameters.Bands)
	assert.True(t, result.GlintCorrected)
	assert.InDelta(t, 0.5, result.GlintRatios[model.B4], 1e-12)

	for _, band := range testBands {
		assert.True(t, result.Image.HasBand(band.Rhot()), band.Rhot())
		assert.True(t, result.Image.HasBand(band.Rhos()), band.Rhos())
	}
	assert.True(t, result.Image.HasBand(GlintMeanBand))
	assert.True(t, result.Image.HasBand("SPM_Nechad2016_665"))
	assert.False(t, result.Image.HasBand("l2w_mask"))
	assert.Len(t, result.Products, 1)

	rhos, _ := engine.Materialize(context.Background(), result.Image, model.B4.Rhos())
	assert.InDelta(t, 0.0, rhos.Values[0], 1e-12, "the darkest pixel is fully explained by path reflectance")
	assert.True(t, math.IsNaN(rhos.Values[3]))
	rhot, _ := engine.Materialize(context.Background(), result.Image, model.B4.Rhot())
	assert.Equal(t, []float64{0.02, 0.03, 0.04, -1}, rhot.Values)
}

func TestCorrector_GlintNeverIncreases(t *testing.T) {
	// Mock
	engine := raster.NewMemory()
	scene := mockScene(t, engine)
	s := settings.Default()
	corrector, _, _ := mockCorrector(t, engine, s)
	plain, err := corrector.CorrectScene(context.Background(), scene)
	assert.Nil(t, err)
	corrector.Settings.ResidualGlintCorrection = true

	// Tested code
	glinted, err := corrector.CorrectScene(context.Background(), scene)

	// Asserts
	assert.Nil(t, err)
	assert.False(t, plain.GlintCorrected)
	assert.False(t, plain.Image.HasBand(GlintMeanBand))
	for _, band := range testBands {
		before, _ := engine.Materialize(context.Background(), plain.Image, band.Rhos())
		after, _ := engine.Materialize(context.Background(), glinted.Image, band.Rhos())
		for i := range before.Values {
			if !math.IsNaN(after.Values[i]) {
				assert.True(t, after.Values[i] <= before.Values[i], "%s pixel %d", band, i)
			}
		}
	}
}

func TestCorrector_FixedBypass(t *testing.T) {
	// Mock
	engine := raster.NewMemory()
	scene := mockScene(t, engine)
	aot := 0.1
	s := settings.Default()
	s.LUTs = []string{lutMOD1, lutMOD3}
	s.FixedAOT = &aot
	s.FixedLUT = lutMOD2
	corrector, _, _ := mockCorrector(t, engine, s)

	// Tested code
	_, errMissing := corrector.CorrectScene(context.Background(), scene)
	corrector.Settings.FixedLUT = lutMOD3
	result, err := corrector.CorrectScene(context.Background(), scene)

	// Asserts
	assert.IsType(t, ModelNotFoundError{}, errMissing)
	assert.Contains(t, errMissing.Error(), lutMOD1+", "+lutMOD3)
	assert.Nil(t, err)
	assert.Nil(t, result.DarkSpectrum)
	assert.Nil(t, result.Estimates)
	assert.Equal(t, Selection{Model: lutMOD3, AOT: 0.1, Criterion: CriterionFixed, Fixed: true}, result.Selection)
	assert.Equal(t, 0.1, result.Parameters.AOT)
}

func TestCorrector_Ancillary(t *testing.T) {
	// Mock
	engine := raster.NewMemory()
	scene := mockScene(t, engine)
	pressure, ozone := 1000.0, 0.25
	s := settings.Default()
	s.AncillaryData = true
	corrector, _, gasService := mockCorrector(t, engine, s)
	corrector.Ancillary = fakeAncillary{values: ancillary.Values{Pressure: &pressure, Ozone: &ozone}}

	// Tested code
	result, err := corrector.CorrectScene(context.Background(), scene)
	corrector.Ancillary = fakeAncillary{err: assert.AnError}
	fallback, errFallback := corrector.CorrectScene(context.Background(), scene)

	// Asserts
	assert.Nil(t, err)
	assert.Equal(t, settings.SourceAncillary, result.Atmosphere.Source)
	assert.Equal(t, 1000.0, result.Atmosphere.Pressure)
	assert.Equal(t, 1.5, result.Atmosphere.WaterVapor)
	assert.Nil(t, errFallback)
	assert.Equal(t, settings.SourceDefault, fallback.Atmosphere.Source)
	assert.Equal(t, 1013.25, gasService.input.Pressure)
}

func TestResult_Record(t *testing.T) {
	// Mock
	engine := raster.NewMemory()
	scene := mockScene(t, engine)
	corrector, _, _ := mockCorrector(t, engine, settings.Default())
	result, err := corrector.CorrectScene(context.Background(), scene)
	assert.Nil(t, err)
	processed := time.Date(2021, 10, 15, 0, 0, 0, 0, time.UTC)

	// Tested code
	record := result.Record(processed)
	feature, errFeature := record.GeoJSONFeature()

	// Asserts
	assert.Equal(t, scene.ID, record.SceneID)
	assert.Equal(t, model.StatusCorrected, record.Status)
	assert.Equal(t, processed, record.ProcessedAt)
	assert.Equal(t, lutMOD2, record.AerosolSelection.Model)
	assert.InDelta(t, 0.02, record.AerosolSelection.DarkSpectrum["B4"], 1e-12)
	assert.Equal(t, 1013.25, record.Atmosphere.Pressure)
	assert.Nil(t, errFeature)
	assert.Equal(t, scene.ID, feature.IDStr())
}
