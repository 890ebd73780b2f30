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
	"fmt"

	"github.com/venicegeo/bf-atmcorr/lut"
	"github.com/venicegeo/bf-atmcorr/model"
)

// Parameters are the per-band correction coefficients of the selected model
// and AOT
type Parameters struct {
	Model  string
	AOT    float64
	Bands  []model.Band
	Values map[string]map[model.Band]float64
	Gas    map[model.Band]float64
}

// Value returns parameter par of band
func (p *Parameters) Value(par string, band model.Band) (float64, error) {
	values, ok := p.Values[par]
	if !ok {
		return 0, fmt.Errorf("No parameter %s for model %s", par, p.Model)
	}
	value, ok := values[band]
	if !ok {
		return 0, fmt.Errorf("No %s value for band %s", par, band)
	}
	return value, nil
}

// Synthesize evaluates every table parameter of m for every band at the
// selected AOT and merges in the gas transmittance
func Synthesize(m *lut.Model, aot float64, bands []model.Band, tg map[model.Band]float64, cond Conditions) (*Parameters, error) {
	params := &Parameters{
		Model:  m.Name,
		AOT:    aot,
		Bands:  append([]model.Band{}, bands...),
		Values: make(map[string]map[model.Band]float64, len(m.Parameters)),
		Gas:    make(map[model.Band]float64, len(bands)),
	}
	for _, par := range m.Parameters {
		values := make(map[model.Band]float64, len(bands))
		for _, band := range bands {
			value, err := m.Interpolate(band, par, cond.Pressure, cond.RAA, cond.VZA, cond.SZA, aot)
			if err != nil {
				return nil, err
			}
			values[band] = value
		}
		params.Values[par] = values
	}
	for _, band := range bands {
		transmittance, ok := tg[band]
		if !ok {
			return nil, fmt.Errorf("No gas transmittance for band %s", band)
		}
		params.Gas[band] = transmittance
	}
	return params, nil
}

// GlintRatios evaluates the sky-glint model matching the selected model at
// the given wind speed and AOT, normalized by the mean of the SWIR glint
// reference bands
func GlintRatios(glints lut.GlintTable, modelName string, aot float64, wind float64, bands []model.Band, cond Conditions) (map[model.Band]float64, error) {
	index, err := lut.GlintIndexForName(modelName)
	if err != nil {
		return nil, err
	}
	glint, ok := glints[index]
	if !ok {
		return nil, fmt.Errorf("No sky-glint model %d for aerosol model %s", index, modelName)
	}

	values := make(map[model.Band]float64, len(bands))
	evaluate := func(band model.Band) (float64, error) {
		if value, ok := values[band]; ok {
			return value, nil
		}
		value, err := glint.Interpolate(band, cond.RAA, cond.VZA, cond.SZA, wind, aot)
		if err != nil {
			return 0, err
		}
		values[band] = value
		return value, nil
	}

	var reference float64
	for _, band := range model.GlintReferenceBands {
		value, err := evaluate(band)
		if err != nil {
			return nil, err
		}
		reference += value / float64(len(model.GlintReferenceBands))
	}
	ratios := make(map[model.Band]float64, len(bands))
	for _, band := range bands {
		value, err := evaluate(band)
		if err != nil {
			return nil, err
		}
		ratios[band] = value / reference
	}
	return ratios, nil
}
