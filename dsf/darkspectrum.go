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
	"fmt"

	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
	"github.com/venicegeo/bf-atmcorr/settings"
	"github.com/venicegeo/bf-atmcorr/util"
	"gonum.org/v1/gonum/stat"
)

// DarkSpectrum is the dark reflectance of each band, never negative. Bands
// without valid pixels are 0 and listed in Defaulted.
type DarkSpectrum struct {
	Values    map[model.Band]float64
	Defaulted model.BandSet
}

// Named renders the spectrum keyed by band name
func (d DarkSpectrum) Named() map[string]float64 {
	named := make(map[string]float64, len(d.Values))
	for band, value := range d.Values {
		named[band.String()] = value
	}
	return named
}

// Extractor reduces each band of a scene to its dark value
type Extractor struct {
	Engine          raster.Engine
	Option          string
	Percentile      float64
	InterceptPixels int
}

// NewExtractor configures an extractor from settings
func NewExtractor(engine raster.Engine, s settings.Settings) Extractor {
	return Extractor{Engine: engine, Option: s.SpectrumOption, Percentile: s.Percentile, InterceptPixels: s.InterceptPixels}
}

// Extract computes the dark spectrum of bands over the strictly positive
// pixels of img
func (e Extractor) Extract(ctx context.Context, logCtx util.LogContext, img raster.Image, bands []model.Band) (DarkSpectrum, error) {
	dark := DarkSpectrum{Values: make(map[model.Band]float64, len(bands)), Defaulted: model.BandSet{}}
	masked := e.Engine.MaskNonPositive(img)
	for _, band := range bands {
		value, ok, err := e.reduce(ctx, masked, band)
		if err != nil {
			return DarkSpectrum{}, err
		}
		if !ok {
			util.LogAlert(logCtx, fmt.Sprintf("No dark value for band %s; using 0", band))
			dark.Defaulted[band] = true
		}
		if value < 0 {
			value = 0
		}
		dark.Values[band] = value
	}
	return dark, nil
}

func (e Extractor) reduce(ctx context.Context, img raster.Image, band model.Band) (float64, bool, error) {
	if !img.HasBand(band.String()) {
		return 0, false, nil
	}
	switch e.Option {
	case settings.SpectrumDarkest:
		return e.Engine.Percentile(ctx, img, band.String(), 0)
	case settings.SpectrumPercentile:
		return e.Engine.Percentile(ctx, img, band.String(), e.Percentile)
	case settings.SpectrumIntercept:
		values, err := e.Engine.SortedValues(ctx, img, band.String(), e.InterceptPixels)
		if err != nil {
			return 0, false, err
		}
		value, ok := intercept(values)
		return value, ok, nil
	}
	return 0, false, fmt.Errorf("Unknown dark spectrum option %q", e.Option)
}

// intercept fits a line to the sorted values against their index and
// returns its value at index 0
func intercept(values []float64) (float64, bool) {
	switch len(values) {
	case 0:
		return 0, false
	case 1:
		return values[0], true
	}
	index := make([]float64, len(values))
	for i := range index {
		index[i] = float64(i)
	}
	alpha, _ := stat.LinearRegression(index, values, nil, false)
	return alpha, true
}
