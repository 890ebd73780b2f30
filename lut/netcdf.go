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

package lut

import (
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/model"
)

// NetCDF layout: one dimension and one coordinate variable per axis, one
// float variable per band named band_<id> spanning every axis. The aerosol
// parameter axis has no coordinate variable; the parameter names are the
// comma separated global attribute "par".

const (
	attrName       = "name"
	attrParameters = "par"
	attrGlintIndex = "model"
	bandVarPrefix  = "band_"
)

func bandVariable(band model.Band) string {
	return bandVarPrefix + band.ID()
}

// WriteModel writes an aerosol model to a NetCDF classic file
func WriteModel(w *os.File, m *Model) error {
	axes := m.Axes()
	lengths := []int{len(axes.Pressures), len(m.Parameters), len(axes.RelativeAzimuths), len(axes.ViewZeniths), len(axes.SunZeniths), len(axes.Taus)}
	coords := map[string][]float64{
		"pressure": axes.Pressures,
		"raa":      axes.RelativeAzimuths,
		"vza":      axes.ViewZeniths,
		"sza":      axes.SunZeniths,
		"tau":      axes.Taus,
	}
	h := cdf.NewHeader(modelAxisNames, lengths)
	h.AddAttribute("", attrName, m.Name)
	h.AddAttribute("", attrParameters, strings.Join(m.Parameters, ","))
	return writeGrid(w, h, m.grid, modelAxisNames, coords)
}

// WriteGlintModel writes a sky-glint model to a NetCDF classic file
func WriteGlintModel(w *os.File, m *GlintModel) error {
	axes := m.Axes()
	coords := map[string][]float64{
		"raa":  axes.RelativeAzimuths,
		"vza":  axes.ViewZeniths,
		"sza":  axes.SunZeniths,
		"wind": axes.Winds,
		"tau":  axes.Taus,
	}
	h := cdf.NewHeader(glintAxisNames, m.shape())
	h.AddAttribute("", attrName, m.Name)
	h.AddAttribute("", attrGlintIndex, []int32{int32(m.Index)})
	return writeGrid(w, h, m.grid, glintAxisNames, coords)
}

func writeGrid(w *os.File, h *cdf.Header, g *grid, dims []string, coords map[string][]float64) error {
	for _, dim := range dims {
		if _, ok := coords[dim]; ok {
			h.AddVariable(dim, []string{dim}, []float32{0})
		}
	}
	for _, band := range g.order {
		h.AddVariable(bandVariable(band), dims, []float32{0})
		h.AddAttribute(bandVariable(band), "wavelength", []float64{band.Wavelength()})
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return errors.Wrap(err, "Failed to create NetCDF file")
	}
	for _, dim := range dims {
		if values, ok := coords[dim]; ok {
			if err = writeVariable(f, dim, values); err != nil {
				return err
			}
		}
	}
	for _, band := range g.order {
		if err = writeVariable(f, bandVariable(band), g.bands[band].Elements); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeVariable(f *cdf.File, name string, values []float64) error {
	end := f.Header.Lengths(name)
	n := 1
	for _, length := range end {
		n *= length
	}
	if n != len(values) {
		return fmt.Errorf("Variable %s has %d elements but %d values were given", name, n, len(values))
	}
	data32 := make([]float32, len(values))
	for i, v := range values {
		data32[i] = float32(v)
	}
	if _, err := f.Writer(name, make([]int, len(end)), end).Write(data32); err != nil {
		return errors.Wrapf(err, "Failed to write NetCDF variable %s", name)
	}
	return nil
}

// ReadModel reads an aerosol model from a NetCDF classic file
func ReadModel(rw cdf.ReaderWriterAt) (*Model, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open NetCDF model")
	}
	name, err := stringAttribute(f, attrName)
	if err != nil {
		return nil, err
	}
	parameters, err := stringAttribute(f, attrParameters)
	if err != nil {
		return nil, err
	}

	var axes ModelAxes
	for _, target := range []struct {
		name string
		dst  *[]float64
	}{
		{"pressure", &axes.Pressures},
		{"raa", &axes.RelativeAzimuths},
		{"vza", &axes.ViewZeniths},
		{"sza", &axes.SunZeniths},
		{"tau", &axes.Taus},
	} {
		if *target.dst, err = readVariable(f, target.name); err != nil {
			return nil, err
		}
	}

	m, err := NewModel(name, strings.Split(parameters, ","), axes)
	if err != nil {
		return nil, err
	}
	if err = readBands(f, m.grid); err != nil {
		return nil, errors.Wrapf(err, "Model %s", name)
	}
	return m, nil
}

// ReadGlintModel reads a sky-glint model from a NetCDF classic file
func ReadGlintModel(rw cdf.ReaderWriterAt) (*GlintModel, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open NetCDF glint model")
	}
	name, err := stringAttribute(f, attrName)
	if err != nil {
		return nil, err
	}
	index, ok := f.Header.GetAttribute("", attrGlintIndex).([]int32)
	if !ok || len(index) != 1 {
		return nil, fmt.Errorf("Glint model %s has no integer %q attribute", name, attrGlintIndex)
	}

	var axes GlintAxes
	for _, target := range []struct {
		name string
		dst  *[]float64
	}{
		{"raa", &axes.RelativeAzimuths},
		{"vza", &axes.ViewZeniths},
		{"sza", &axes.SunZeniths},
		{"wind", &axes.Winds},
		{"tau", &axes.Taus},
	} {
		if *target.dst, err = readVariable(f, target.name); err != nil {
			return nil, err
		}
	}

	m, err := NewGlintModel(name, int(index[0]), axes)
	if err != nil {
		return nil, err
	}
	if err = readBands(f, m.grid); err != nil {
		return nil, errors.Wrapf(err, "Glint model %s", name)
	}
	return m, nil
}

func stringAttribute(f *cdf.File, name string) (string, error) {
	value, ok := f.Header.GetAttribute("", name).(string)
	if !ok || value == "" {
		return "", fmt.Errorf("NetCDF file has no %q attribute", name)
	}
	return value, nil
}

func readVariable(f *cdf.File, name string) ([]float64, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("Variable %s not in file", name)
	}
	n := 1
	for _, dim := range dims {
		n *= dim
	}
	buf := make([]float32, n)
	if _, err := f.Reader(name, nil, nil).Read(buf); err != nil {
		return nil, errors.Wrapf(err, "Failed to read variable %s", name)
	}
	values := make([]float64, n)
	for i, v := range buf {
		values[i] = float64(v)
	}
	return values, nil
}

func readBands(f *cdf.File, g *grid) error {
	found := 0
	for _, band := range model.AllBands {
		name := bandVariable(band)
		if len(f.Header.Lengths(name)) == 0 {
			continue
		}
		values, err := readVariable(f, name)
		if err != nil {
			return err
		}
		data := sparse.ZerosDense(f.Header.Lengths(name)...)
		copy(data.Elements, values)
		if err = g.setBand(band, data); err != nil {
			return err
		}
		found++
	}
	if found == 0 {
		return fmt.Errorf("No band variables found")
	}
	return nil
}
