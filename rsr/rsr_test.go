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

package rsr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/venicegeo/bf-atmcorr/fileaccess"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
)

func writeResponse(t *testing.T, dir string, file responseFile) {
	assert.Nil(t, (&fileaccess.FSAccess{}).WriteJSON(dir, file.Sensor+".json", file))
}

func TestLoader_Load(t *testing.T) {
	// Mock
	dir := t.TempDir()
	writeResponse(t, dir, responseFile{
		Sensor: "S2A_MSI",
		Bands:  []string{"1", "8A", "11"},
		Curves: map[string]Curve{
			"1":  {Wave: []float64{0.43, 0.44, 0.45}, Response: []float64{0, 1, 0}},
			"8A": {Wave: []float64{0.85, 0.88}, Response: []float64{1, 1}},
			"11": {Wave: []float64{1.5, 1.6, 1.7}, Response: []float64{0.5, 1, 0.5}},
		},
	})
	loader := NewLoader(fileaccess.Root{Access: &fileaccess.FSAccess{}, Bucket: dir})
	ctx := &util.BasicLogContext{}

	// Tested code
	response, err := loader.Load(ctx, model.SensorS2A)
	again, _ := loader.Load(ctx, model.SensorS2A)
	_, errMissing := loader.Load(ctx, model.SensorS2B)

	// Asserts
	assert.Nil(t, err)
	assert.True(t, response == again)
	assert.Equal(t, []model.Band{model.B1, model.B8A, model.B11}, response.Bands)
	assert.NotNil(t, errMissing)
}

func TestResponse_BandAverage(t *testing.T) {
	response := &Response{
		Sensor: model.SensorS2A,
		Bands:  []model.Band{model.B1},
		Curves: map[model.Band]Curve{model.B1: {Wave: []float64{0.4, 0.5, 0.6}, Response: []float64{0, 1, 0}}},
	}

	constant, errConst := response.BandAverage(model.B1, func(float64) float64 { return 2 })
	linear, _ := response.BandAverage(model.B1, func(w float64) float64 { return w })
	_, errBand := response.BandAverage(model.B2, func(float64) float64 { return 1 })

	assert.Nil(t, errConst)
	assert.InDelta(t, 2.0, constant, 1e-12)
	assert.InDelta(t, 0.5, linear, 1e-12, "a symmetric response averages to its center")
	assert.NotNil(t, errBand)
}

func TestParse_Validation(t *testing.T) {
	_, errSensor := parse(model.SensorS2A, responseFile{Sensor: "S2B_MSI", Bands: []string{"1"}})
	_, errBand := parse(model.SensorS2A, responseFile{Bands: []string{"13"}})
	_, errCurve := parse(model.SensorS2A, responseFile{Bands: []string{"1"}})
	_, errWave := parse(model.SensorS2A, responseFile{Bands: []string{"1"},
		Curves: map[string]Curve{"1": {Wave: []float64{0.5, 0.4}, Response: []float64{1, 1}}}})
	_, errEmpty := parse(model.SensorS2A, responseFile{})

	assert.NotNil(t, errSensor)
	assert.NotNil(t, errBand)
	assert.NotNil(t, errCurve)
	assert.NotNil(t, errWave)
	assert.NotNil(t, errEmpty)
}
