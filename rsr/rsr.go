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

// Package rsr loads the relative spectral response of each sensor band
package rsr

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/fileaccess"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
	"gonum.org/v1/gonum/integrate"
)

// Curve is the response of one band sampled at increasing wavelengths (um)
type Curve struct {
	Wave     []float64 `json:"wave"`
	Response []float64 `json:"response"`
}

// Response is the spectral response of every band of one sensor
type Response struct {
	Sensor model.SensorID
	Bands  []model.Band
	Curves map[model.Band]Curve
}

type responseFile struct {
	Sensor string           `json:"sensor"`
	Bands  []string         `json:"bands"`
	Curves map[string]Curve `json:"curves"`
}

func (c Curve) validate() error {
	if len(c.Wave) < 2 || len(c.Wave) != len(c.Response) {
		return fmt.Errorf("Need at least two matching wave/response samples, got %d/%d", len(c.Wave), len(c.Response))
	}
	for i := 1; i < len(c.Wave); i++ {
		if !(c.Wave[i] > c.Wave[i-1]) {
			return fmt.Errorf("Wavelengths are not increasing at index %d", i)
		}
	}
	return nil
}

// BandAverage weights spectrum by the response of band and normalizes by
// the integrated response
func (r *Response) BandAverage(band model.Band, spectrum func(wave float64) float64) (float64, error) {
	curve, ok := r.Curves[band]
	if !ok {
		return 0, fmt.Errorf("No spectral response for band %s of %s", band, r.Sensor)
	}
	weighted := make([]float64, len(curve.Wave))
	for i, wave := range curve.Wave {
		weighted[i] = spectrum(wave) * curve.Response[i]
	}
	norm := integrate.Trapezoidal(curve.Wave, curve.Response)
	if norm == 0 {
		return 0, fmt.Errorf("Spectral response of band %s integrates to zero", band)
	}
	return integrate.Trapezoidal(curve.Wave, weighted) / norm, nil
}

// Loader reads <root>/<sensor>.json and keeps each response once loaded
type Loader struct {
	Root fileaccess.Root

	mutex     sync.Mutex
	responses map[model.SensorID]*Response
}

// NewLoader creates a loader over root
func NewLoader(root fileaccess.Root) *Loader {
	return &Loader{Root: root, responses: map[model.SensorID]*Response{}}
}

// Load returns the spectral response of sensor
func (l *Loader) Load(ctx util.LogContext, sensor model.SensorID) (*Response, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if response, ok := l.responses[sensor]; ok {
		return response, nil
	}

	fileName := string(sensor) + ".json"
	util.LogAudit(ctx, util.LogAuditInput{Actor: util.AppName, Action: "read", Actee: l.Root.String() + "/" + fileName, Message: "Loading spectral response", Severity: util.INFO})
	var file responseFile
	if err := l.Root.ReadJSON(&file, fileName); err != nil {
		return nil, errors.Wrapf(err, "Failed to read spectral response for %s", sensor)
	}
	response, err := parse(sensor, file)
	if err != nil {
		return nil, err
	}
	l.responses[sensor] = response
	return response, nil
}

func parse(sensor model.SensorID, file responseFile) (*Response, error) {
	if file.Sensor != "" && file.Sensor != string(sensor) {
		return nil, fmt.Errorf("Spectral response file for %s declares sensor %s", sensor, file.Sensor)
	}
	bands, err := model.ParseBands(file.Bands)
	if err != nil {
		return nil, errors.Wrapf(err, "Bad band list in spectral response for %s", sensor)
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("Spectral response for %s lists no bands", sensor)
	}
	response := &Response{Sensor: sensor, Bands: bands, Curves: map[model.Band]Curve{}}
	for i, band := range bands {
		curve, ok := file.Curves[file.Bands[i]]
		if !ok {
			return nil, fmt.Errorf("Spectral response for %s is missing band %s", sensor, file.Bands[i])
		}
		if err := curve.validate(); err != nil {
			return nil, errors.Wrapf(err, "Band %s of %s", band, sensor)
		}
		response.Curves[band] = curve
	}
	return response, nil
}
