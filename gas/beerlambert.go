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

// Package gas provides per-band gas transmittance for a scene geometry and
// atmosphere
package gas

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/fileaccess"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/rsr"
	"gonum.org/v1/gonum/interp"
)

// Input carries the geometry and absorber amounts of one scene
type Input struct {
	SZA        float64 `json:"sza"`
	VZA        float64 `json:"vza"`
	Pressure   float64 `json:"pressure"`
	Ozone      float64 `json:"uoz"`
	WaterVapor float64 `json:"uwv"`
}

// Service computes total gas transmittance per band
type Service interface {
	Transmittance(ctx context.Context, in Input, response *rsr.Response) (map[model.Band]float64, error)
}

const standardPressure = 1013.25

// Coefficients are absorption spectra sampled on an increasing wavelength
// grid (um). Ozone is per cm-atm, water vapour per g/cm2 and oxygen is the
// optical depth at standard pressure.
type Coefficients struct {
	Wave   []float64 `json:"wave"`
	Ozone  []float64 `json:"ko3"`
	Water  []float64 `json:"kwv"`
	Oxygen []float64 `json:"ko2,omitempty"`
}

// BeerLambert computes transmittance locally from absorption coefficients
type BeerLambert struct {
	wave   []float64
	ozone  interp.PiecewiseLinear
	water  interp.PiecewiseLinear
	oxygen *interp.PiecewiseLinear
}

// NewBeerLambert validates the coefficients and prepares their interpolators
func NewBeerLambert(c Coefficients) (*BeerLambert, error) {
	n := len(c.Wave)
	if n < 2 || len(c.Ozone) != n || len(c.Water) != n || (c.Oxygen != nil && len(c.Oxygen) != n) {
		return nil, fmt.Errorf("Gas coefficient spectra must share a wavelength grid of at least 2 samples")
	}
	for i := 1; i < n; i++ {
		if !(c.Wave[i] > c.Wave[i-1]) {
			return nil, fmt.Errorf("Gas coefficient wavelengths are not increasing at index %d", i)
		}
	}
	m := &BeerLambert{wave: c.Wave}
	if err := m.ozone.Fit(c.Wave, c.Ozone); err != nil {
		return nil, errors.Wrap(err, "Bad ozone coefficients")
	}
	if err := m.water.Fit(c.Wave, c.Water); err != nil {
		return nil, errors.Wrap(err, "Bad water vapour coefficients")
	}
	if c.Oxygen != nil {
		m.oxygen = &interp.PiecewiseLinear{}
		if err := m.oxygen.Fit(c.Wave, c.Oxygen); err != nil {
			return nil, errors.Wrap(err, "Bad oxygen coefficients")
		}
	}
	return m, nil
}

// LoadBeerLambert reads Coefficients as JSON from a storage root
func LoadBeerLambert(root fileaccess.Root, path string) (*BeerLambert, error) {
	var c Coefficients
	if err := root.ReadJSON(&c, path); err != nil {
		return nil, errors.Wrapf(err, "Failed to read gas coefficients from %s", path)
	}
	return NewBeerLambert(c)
}

func (m *BeerLambert) clamp(wave float64) float64 {
	return math.Max(m.wave[0], math.Min(m.wave[len(m.wave)-1], wave))
}

// AirMass is the two-way geometric air mass for zenith angles in degrees
func AirMass(sza, vza float64) float64 {
	return 1/math.Cos(sza*math.Pi/180) + 1/math.Cos(vza*math.Pi/180)
}

// Transmittance implements Service
func (m *BeerLambert) Transmittance(ctx context.Context, in Input, response *rsr.Response) (map[model.Band]float64, error) {
	if in.SZA < 0 || in.SZA >= 90 || in.VZA < 0 || in.VZA >= 90 {
		return nil, fmt.Errorf("Zenith angles sza=%v vza=%v are outside [0, 90)", in.SZA, in.VZA)
	}
	airMass := AirMass(in.SZA, in.VZA)
	spectrum := func(wave float64) float64 {
		w := m.clamp(wave)
		depth := in.Ozone*m.ozone.Predict(w) + in.WaterVapor*m.water.Predict(w)
		if m.oxygen != nil {
			depth += in.Pressure / standardPressure * m.oxygen.Predict(w)
		}
		return math.Exp(-airMass * depth)
	}

	out := make(map[model.Band]float64, len(response.Bands))
	for _, band := range response.Bands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tt, err := response.BandAverage(band, spectrum)
		if err != nil {
			return nil, err
		}
		out[band] = tt
	}
	return out, nil
}
