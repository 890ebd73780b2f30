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
	"sort"

	"github.com/venicegeo/bf-atmcorr/lut"
	"github.com/venicegeo/bf-atmcorr/model"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

// Estimate is the AOT estimated with one aerosol model
type Estimate struct {
	Model string
	// Bands, Taua and Rhot are index aligned, in spectral response order
	Bands []model.Band
	Taua  []float64
	Rhot  []float64
	// Order sorts Taua ascending with NaN last
	Order []int
	AOT   float64
	Std   float64
	CV    float64
}

// Estimator inverts the dark spectrum to AOT for each model
type Estimator struct {
	NBands    int
	SkipBands model.BandSet
}

// Estimate runs every model of table, in lexical name order, over bands
// not skipped. tg is the gas transmittance of each band.
func (e Estimator) Estimate(table lut.Table, dark DarkSpectrum, tg map[model.Band]float64, bands []model.Band, cond Conditions) ([]*Estimate, error) {
	estimates := make([]*Estimate, 0, len(table))
	for _, name := range table.Names() {
		estimate, err := e.estimateModel(table[name], dark, tg, bands, cond)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, estimate)
	}
	return estimates, nil
}

func (e Estimator) estimateModel(m *lut.Model, dark DarkSpectrum, tg map[model.Band]float64, bands []model.Band, cond Conditions) (*Estimate, error) {
	estimate := &Estimate{Model: m.Name}
	for _, band := range bands {
		if e.SkipBands.Contains(band) {
			continue
		}
		pdark, ok := dark.Values[band]
		if !ok {
			return nil, fmt.Errorf("Dark spectrum has no value for band %s", band)
		}
		transmittance, ok := tg[band]
		if !ok {
			return nil, fmt.Errorf("No gas transmittance for band %s", band)
		}
		curve, err := m.Curve(band, lut.ParRomix, cond.Pressure, cond.RAA, cond.VZA, cond.SZA)
		if err != nil {
			return nil, err
		}
		rhot := pdark / transmittance
		estimate.Bands = append(estimate.Bands, band)
		estimate.Rhot = append(estimate.Rhot, rhot)
		estimate.Taua = append(estimate.Taua, InvertCurve(curve, m.Taus(), rhot))
	}
	if len(estimate.Bands) == 0 {
		return nil, fmt.Errorf("Model %s: every band was skipped for AOT estimation", m.Name)
	}

	estimate.Order = argsort(estimate.Taua)
	n := e.NBands
	if n < 1 || n > len(estimate.Order) {
		n = len(estimate.Order)
	}
	var darkest []float64
	for _, i := range estimate.Order[:n] {
		if !math.IsNaN(estimate.Taua[i]) {
			darkest = append(darkest, estimate.Taua[i])
		}
	}
	if len(darkest) == 0 {
		estimate.AOT, estimate.Std, estimate.CV = math.NaN(), math.NaN(), math.NaN()
		return estimate, nil
	}
	estimate.AOT, estimate.Std = stat.PopMeanStdDev(darkest, nil)
	if len(darkest) == 1 {
		estimate.Std = 0
	}
	estimate.CV = estimate.Std / estimate.AOT
	return estimate, nil
}

// InvertCurve finds the tau at which the romix curve reaches rhot, clamped
// to the ends of the tau grid. A curve that is not strictly increasing
// gives NaN.
func InvertCurve(curve []float64, taus []float64, rhot float64) float64 {
	if math.IsNaN(rhot) || len(curve) != len(taus) || len(curve) == 0 {
		return math.NaN()
	}
	if len(curve) == 1 {
		return taus[0]
	}
	if !strictlyIncreasing(curve) {
		return math.NaN()
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(curve, taus); err != nil {
		return math.NaN()
	}
	if rhot <= curve[0] {
		return taus[0]
	}
	if rhot >= curve[len(curve)-1] {
		return taus[len(taus)-1]
	}
	return pl.Predict(rhot)
}

// strictlyIncreasing reports whether values rise at every step; Fit panics
// on anything else
func strictlyIncreasing(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if !(values[i] > values[i-1]) {
			return false
		}
	}
	return true
}

// argsort returns the indices that sort values ascending, NaN last, ties
// in original order
func argsort(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := values[order[a]], values[order[b]]
		if math.IsNaN(vb) {
			return !math.IsNaN(va)
		}
		return va < vb
	})
	return order
}
