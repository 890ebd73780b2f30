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

// Package lut holds the radiative-transfer lookup tables consumed by the
// correction: one aerosol Model per candidate atmosphere, and sky-glint
// models. Tables are read-only once loaded and safe to share between
// goroutines.
package lut

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/venicegeo/bf-atmcorr/model"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Radiative-transfer parameters every aerosol model must carry
const (
	ParRomix  = "romix"  // path reflectance
	ParDutott = "dutott" // total up/down transmittance
	ParAstot  = "astot"  // spherical albedo
)

// RequiredParameters are needed by the surface reflectance inversion
var RequiredParameters = []string{ParRomix, ParDutott, ParAstot}

// ModelAxes are the grid coordinates of an aerosol model
type ModelAxes struct {
	Pressures        []float64
	RelativeAzimuths []float64
	ViewZeniths      []float64
	SunZeniths       []float64
	Taus             []float64
}

var modelAxisNames = []string{"pressure", "par", "raa", "vza", "sza", "tau"}

// Model is an aerosol lookup table over
// (pressure, parameter, raa, vza, sza, aot550) per band
type Model struct {
	*grid
	Name       string
	Parameters []string
}

// NewModel creates an empty model; band tables are added with SetBand or FillBand
func NewModel(name string, parameters []string, axes ModelAxes) (*Model, error) {
	if len(parameters) == 0 {
		return nil, fmt.Errorf("Model %s has no parameters", name)
	}
	for _, required := range RequiredParameters {
		if !slices.Contains(parameters, required) {
			return nil, fmt.Errorf("Model %s is missing required parameter %s", name, required)
		}
	}
	parAxis := make([]float64, len(parameters))
	for i := range parAxis {
		parAxis[i] = float64(i)
	}
	g, err := newGrid(modelAxisNames, axes.Pressures, parAxis, axes.RelativeAzimuths, axes.ViewZeniths, axes.SunZeniths, axes.Taus)
	if err != nil {
		return nil, fmt.Errorf("Model %s: %v", name, err)
	}
	return &Model{grid: g, Name: name, Parameters: append([]string{}, parameters...)}, nil
}

// Axes returns the grid coordinates
func (m *Model) Axes() ModelAxes {
	return ModelAxes{
		Pressures:        m.axes[0],
		RelativeAzimuths: m.axes[2],
		ViewZeniths:      m.axes[3],
		SunZeniths:       m.axes[4],
		Taus:             m.axes[5],
	}
}

// Taus is the aerosol optical thickness grid
func (m *Model) Taus() []float64 {
	return m.axes[5]
}

// GlintIndex is the sky-glint model index implied by the model name, i.e.
// its trailing digit
func (m *Model) GlintIndex() (int, error) {
	return GlintIndexForName(m.Name)
}

// GlintIndexForName returns the trailing digit of an aerosol model name
func GlintIndexForName(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("Empty model name")
	}
	index, err := strconv.Atoi(name[len(name)-1:])
	if err != nil {
		return 0, fmt.Errorf("Model name %s does not end in a model index", name)
	}
	return index, nil
}

func (m *Model) parameterIndex(par string) (int, error) {
	for i, p := range m.Parameters {
		if p == par {
			return i, nil
		}
	}
	return 0, fmt.Errorf("Model %s has no parameter %s", m.Name, par)
}

// SetBand installs the table of a band, shaped
// (pressure, parameter, raa, vza, sza, tau)
func (m *Model) SetBand(band model.Band, data *sparse.DenseArray) error {
	return m.grid.setBand(band, data)
}

// FillBand builds the table of a band by evaluating fn at every grid node
func (m *Model) FillBand(band model.Band, fn func(pressure float64, par string, raa, vza, sza, tau float64) float64) error {
	data := sparse.ZerosDense(m.shape()...)
	a := m.axes
	for ip, pressure := range a[0] {
		for ipar, par := range m.Parameters {
			for ir, raa := range a[2] {
				for iv, vza := range a[3] {
					for is, sza := range a[4] {
						for it, tau := range a[5] {
							data.Set(fn(pressure, par, raa, vza, sza, tau), ip, ipar, ir, iv, is, it)
						}
					}
				}
			}
		}
	}
	return m.SetBand(band, data)
}

// Interpolate evaluates parameter par of band at one point
func (m *Model) Interpolate(band model.Band, par string, pressure, raa, vza, sza, tau float64) (float64, error) {
	ipar, err := m.parameterIndex(par)
	if err != nil {
		return 0, err
	}
	value, err := m.interpolate(band, pressure, float64(ipar), raa, vza, sza, tau)
	if err != nil {
		return 0, fmt.Errorf("Model %s: %v", m.Name, err)
	}
	return value, nil
}

// Curve evaluates parameter par of band over the whole tau grid
func (m *Model) Curve(band model.Band, par string, pressure, raa, vza, sza float64) ([]float64, error) {
	taus := m.Taus()
	curve := make([]float64, len(taus))
	for i, tau := range taus {
		value, err := m.Interpolate(band, par, pressure, raa, vza, sza, tau)
		if err != nil {
			return nil, err
		}
		curve[i] = value
	}
	return curve, nil
}

// GlintAxes are the grid coordinates of a sky-glint model
type GlintAxes struct {
	RelativeAzimuths []float64
	ViewZeniths      []float64
	SunZeniths       []float64
	Winds            []float64
	Taus             []float64
}

var glintAxisNames = []string{"raa", "vza", "sza", "wind", "tau"}

// GlintModel is a sky-glint reflectance table over
// (raa, vza, sza, wind, aot550) per band
type GlintModel struct {
	*grid
	Name  string
	Index int
}

// NewGlintModel creates an empty sky-glint model
func NewGlintModel(name string, index int, axes GlintAxes) (*GlintModel, error) {
	g, err := newGrid(glintAxisNames, axes.RelativeAzimuths, axes.ViewZeniths, axes.SunZeniths, axes.Winds, axes.Taus)
	if err != nil {
		return nil, fmt.Errorf("Glint model %s: %v", name, err)
	}
	return &GlintModel{grid: g, Name: name, Index: index}, nil
}

// Axes returns the grid coordinates
func (m *GlintModel) Axes() GlintAxes {
	return GlintAxes{
		RelativeAzimuths: m.axes[0],
		ViewZeniths:      m.axes[1],
		SunZeniths:       m.axes[2],
		Winds:            m.axes[3],
		Taus:             m.axes[4],
	}
}

// SetBand installs the table of a band, shaped (raa, vza, sza, wind, tau)
func (m *GlintModel) SetBand(band model.Band, data *sparse.DenseArray) error {
	return m.grid.setBand(band, data)
}

// FillBand builds the table of a band by evaluating fn at every grid node
func (m *GlintModel) FillBand(band model.Band, fn func(raa, vza, sza, wind, tau float64) float64) error {
	data := sparse.ZerosDense(m.shape()...)
	a := m.axes
	for ir, raa := range a[0] {
		for iv, vza := range a[1] {
			for is, sza := range a[2] {
				for iw, wind := range a[3] {
					for it, tau := range a[4] {
						data.Set(fn(raa, vza, sza, wind, tau), ir, iv, is, iw, it)
					}
				}
			}
		}
	}
	return m.SetBand(band, data)
}

// Interpolate evaluates the sky-glint reflectance of band at one point
func (m *GlintModel) Interpolate(band model.Band, raa, vza, sza, wind, tau float64) (float64, error) {
	value, err := m.interpolate(band, raa, vza, sza, wind, tau)
	if err != nil {
		return 0, fmt.Errorf("Glint model %s: %v", m.Name, err)
	}
	return value, nil
}

// Table maps model names to aerosol models
type Table map[string]*Model

// Names lists the model names in lexical order
func (t Table) Names() []string {
	names := maps.Keys(t)
	slices.Sort(names)
	return names
}

// String renders the available names for error messages, e.g. "MOD1, MOD3"
func (t Table) String() string {
	return strings.Join(t.Names(), ", ")
}

// GlintTable maps sky-glint model indices to models
type GlintTable map[int]*GlintModel

// Indices lists the model indices in ascending order
func (t GlintTable) Indices() []int {
	indices := maps.Keys(t)
	slices.Sort(indices)
	return indices
}
