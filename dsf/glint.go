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
	"math"

	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
)

// GlintMeanBand holds the observed SWIR glint reference after correction
const GlintMeanBand = "glint_mean"

// GlintCorrector removes residual sun glint from surface reflectance using
// the SWIR bands as the observed glint signal
type GlintCorrector struct {
	Engine raster.Engine
	Min    float64
	Max    float64
}

// Correct subtracts the spectrally scaled glint from each band with a
// finite ratio, at pixels whose SWIR reference lies in (Min, Max). Other
// pixels keep their value.
func (g GlintCorrector) Correct(img raster.Image, bands []model.Band, ratios map[model.Band]float64) (raster.Image, error) {
	b11, b12 := model.GlintReferenceBands[0], model.GlintReferenceBands[1]
	ga11, ok11 := ratios[b11]
	ga12, ok12 := ratios[b12]
	if !ok11 || !ok12 {
		return nil, fmt.Errorf("Glint ratios are missing the reference bands %s and %s", b11, b12)
	}
	sur := (ga11 + ga12) / 2

	reference, err := g.Engine.Map(img, GlintMeanBand, []string{b11.Rhos(), b12.Rhos()}, func(v []float64) float64 {
		return (v[0] + v[1]) / 2
	})
	if err != nil {
		return nil, err
	}
	withReference, err := g.Engine.AddBands(img, reference, true)
	if err != nil {
		return nil, err
	}

	out := img
	for _, band := range bands {
		ga, ok := ratios[band]
		if !ok {
			continue
		}
		ratio := ga / sur
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			continue
		}
		corrected, err := g.Engine.Map(withReference, band.Rhos(), []string{band.Rhos(), GlintMeanBand}, func(v []float64) float64 {
			rhos, ref := v[0], v[1]
			if !(ref > g.Min && ref < g.Max) {
				return rhos
			}
			rhos -= ref * ratio
			if rhos < 0 {
				return math.NaN()
			}
			return rhos
		})
		if err != nil {
			return nil, err
		}
		if out, err = g.Engine.AddBands(out, corrected, true); err != nil {
			return nil, err
		}
	}
	return g.Engine.AddBands(out, reference, true)
}
