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
	"math"

	"github.com/venicegeo/bf-atmcorr/lut"
	"github.com/venicegeo/bf-atmcorr/settings"
	"gonum.org/v1/gonum/floats"
)

// Selection criteria as reported
const (
	CriterionRMSD  = "rmsd"
	CriterionDTau  = "dtau"
	CriterionCV    = "taua_cv"
	CriterionFixed = "fixed"
)

// Selection is the aerosol model and AOT chosen for a scene
type Selection struct {
	Model     string
	AOT       float64
	Criterion string
	Score     float64
	Fixed     bool
}

// Selector picks the best model among per-model estimates
type Selector struct {
	Method    string
	NBandsFit int
}

// Select scores every estimate and returns the first with the strictly
// lowest finite score. NaN and +Inf scores never win.
func (s Selector) Select(table lut.Table, estimates []*Estimate, cond Conditions) (Selection, error) {
	criterion := s.Criterion()
	best := Selection{Criterion: criterion, Score: math.Inf(1)}
	for _, estimate := range estimates {
		m, ok := table[estimate.Model]
		if !ok {
			return Selection{}, ModelNotFoundError{Name: estimate.Model, Available: table.Names()}
		}
		score, err := s.score(m, estimate, cond)
		if err != nil {
			return Selection{}, err
		}
		if score < best.Score {
			best.Model, best.AOT, best.Score = estimate.Model, estimate.AOT, score
		}
	}
	if best.Model == "" {
		return Selection{}, ErrNoModelSelected
	}
	return best, nil
}

// Criterion names the score used by the configured method
func (s Selector) Criterion() string {
	switch s.Method {
	case settings.SelectMinDRMSD:
		return CriterionRMSD
	case settings.SelectMinDTau:
		return CriterionDTau
	}
	return CriterionCV
}

func (s Selector) score(m *lut.Model, estimate *Estimate, cond Conditions) (float64, error) {
	switch s.Criterion() {
	case CriterionRMSD:
		return s.rmsd(m, estimate, cond)
	case CriterionDTau:
		return dtau(estimate), nil
	}
	return estimate.CV, nil
}

// rmsd compares the observation of the darkest fitted bands with the path
// reflectance the model predicts at its AOT
func (s Selector) rmsd(m *lut.Model, estimate *Estimate, cond Conditions) (float64, error) {
	if math.IsNaN(estimate.AOT) {
		return math.NaN(), nil
	}
	n := s.NBandsFit
	if n < 1 || n > len(estimate.Order) {
		n = len(estimate.Order)
	}
	observed := make([]float64, n)
	modelled := make([]float64, n)
	for i, index := range estimate.Order[:n] {
		romix, err := m.Interpolate(estimate.Bands[index], lut.ParRomix, cond.Pressure, cond.RAA, cond.VZA, cond.SZA, estimate.AOT)
		if err != nil {
			return 0, err
		}
		observed[i] = estimate.Rhot[index]
		modelled[i] = romix
	}
	return floats.Distance(observed, modelled, 2) / math.Sqrt(float64(n)), nil
}

// dtau is the AOT spread of the two darkest bands, +Inf with fewer than two
func dtau(estimate *Estimate) float64 {
	if len(estimate.Taua) < 2 {
		return math.Inf(1)
	}
	return math.Abs(estimate.Taua[estimate.Order[0]] - estimate.Taua[estimate.Order[1]])
}

// FixedSelection uses a configured model and AOT directly
func FixedSelection(table lut.Table, name string, aot float64) (Selection, error) {
	if _, ok := table[name]; !ok {
		return Selection{}, ModelNotFoundError{Name: name, Available: table.Names()}
	}
	return Selection{Model: name, AOT: aot, Criterion: CriterionFixed, Fixed: true}, nil
}
