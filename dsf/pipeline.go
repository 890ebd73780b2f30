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
	"time"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/ancillary"
	"github.com/venicegeo/bf-atmcorr/gas"
	"github.com/venicegeo/bf-atmcorr/lut"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
	"github.com/venicegeo/bf-atmcorr/rsr"
	"github.com/venicegeo/bf-atmcorr/settings"
	"github.com/venicegeo/bf-atmcorr/util"
	"github.com/venicegeo/bf-atmcorr/waterquality"
)

// ModelLoader supplies aerosol and sky-glint tables per sensor
type ModelLoader interface {
	LoadModels(ctx util.LogContext, sensor model.SensorID, names []string) (lut.Table, error)
	LoadGlintModels(ctx util.LogContext, indices []int, base string, sensor model.SensorID) (lut.GlintTable, error)
}

// ResponseLoader supplies the spectral response of a sensor
type ResponseLoader interface {
	Load(ctx util.LogContext, sensor model.SensorID) (*rsr.Response, error)
}

// Corrector runs the full correction of one scene at a time. It holds no
// per-scene state and may be shared by concurrent workers.
type Corrector struct {
	Engine    raster.Engine
	Settings  settings.Settings
	Models    ModelLoader
	Responses ResponseLoader
	Gas       gas.Service
	// Ancillary is only queried when ancillary_data is set; nil means the
	// defaults are always used
	Ancillary ancillary.Service
}

// Result is everything produced for one corrected scene
type Result struct {
	Scene          *model.Scene
	Image          raster.Image
	Atmosphere     model.Atmosphere
	DarkSpectrum   *DarkSpectrum
	Estimates      []*Estimate
	Selection      Selection
	Parameters     *Parameters
	GlintRatios    map[model.Band]float64
	GlintCorrected bool
	// Products are the water quality bands added to Image
	Products []waterquality.Output
}

// CorrectScene derives surface reflectance for scene
func (c *Corrector) CorrectScene(ctx context.Context, scene *model.Scene) (*Result, error) {
	logCtx := &Context{SceneID: scene.ID}
	s := c.Settings
	result := &Result{Scene: scene}

	result.Atmosphere = c.atmosphere(ctx, logCtx, scene)
	cond := Conditions{Geometry: scene.Geometry, Pressure: result.Atmosphere.Pressure}

	response, err := c.Responses.Load(logCtx, scene.Sensor)
	if err != nil {
		return nil, err
	}
	tg, err := c.Gas.Transmittance(ctx, gas.Input{
		SZA:        scene.Geometry.SZA,
		VZA:        scene.Geometry.VZA,
		Pressure:   result.Atmosphere.Pressure,
		Ozone:      result.Atmosphere.Ozone,
		WaterVapor: result.Atmosphere.WaterVapor,
	}, response)
	if err != nil {
		return nil, errors.Wrap(err, "Gas transmittance failed")
	}
	table, err := c.Models.LoadModels(logCtx, scene.Sensor, s.LUTs)
	if err != nil {
		return nil, err
	}

	if name, aot, ok := s.FixedModel(); ok {
		if result.Selection, err = FixedSelection(table, name, aot); err != nil {
			return nil, err
		}
	} else {
		dark, err := NewExtractor(c.Engine, s).Extract(ctx, logCtx, scene.Image, response.Bands)
		if err != nil {
			return nil, err
		}
		result.DarkSpectrum = &dark
		estimator := Estimator{NBands: s.NBands, SkipBands: s.SkipBands()}
		if result.Estimates, err = estimator.Estimate(table, dark, tg, response.Bands, cond); err != nil {
			return nil, err
		}
		selector := Selector{Method: s.ModelSelection, NBandsFit: s.NBandsFit}
		if result.Selection, err = selector.Select(table, result.Estimates, cond); err != nil {
			return nil, err
		}
	}
	util.LogAudit(logCtx, util.LogAuditInput{
		Actor:  util.AppName,
		Action: "select model",
		Actee:  scene.ID,
		Message: fmt.Sprintf("Selected model %s: AOT=%.3f, %s=%.4e; %v",
			result.Selection.Model, result.Selection.AOT, result.Selection.Criterion, result.Selection.Score, cond),
		Severity: util.INFO,
	})

	if result.Parameters, err = Synthesize(table[result.Selection.Model], result.Selection.AOT, response.Bands, tg, cond); err != nil {
		return nil, err
	}
	if result.Image, err = (Inverter{Engine: c.Engine}).Invert(scene.Image, result.Parameters); err != nil {
		return nil, errors.Wrap(err, "Surface reflectance inversion failed")
	}

	if s.ResidualGlintCorrection {
		glints, err := c.Models.LoadGlintModels(logCtx, s.RskyModels, s.RskyLUT, scene.Sensor)
		if err != nil {
			return nil, err
		}
		if result.GlintRatios, err = GlintRatios(glints, result.Selection.Model, result.Selection.AOT, s.GlintWind, response.Bands, cond); err != nil {
			return nil, err
		}
		corrector := GlintCorrector{Engine: c.Engine, Min: s.GlintMaskMin, Max: s.GlintMaskThreshold}
		if result.Image, err = corrector.Correct(result.Image, response.Bands, result.GlintRatios); err != nil {
			return nil, errors.Wrap(err, "Glint correction failed")
		}
		result.GlintCorrected = true
	}

	if len(s.L2WParameters) > 0 {
		computer, err := waterquality.NewComputer(c.Engine, s.L2WParameters, response.Bands, waterquality.MaskThresholds{
			Water:   s.L2WMaskThreshold,
			Cirrus:  s.L2WCirrusThreshold,
			HighTOA: s.L2WHighTOAThreshold,
		})
		if err != nil {
			return nil, err
		}
		if result.Image, err = computer.Compute(result.Image); err != nil {
			return nil, errors.Wrap(err, "Water quality products failed")
		}
		result.Products = computer.Outputs()
	}
	return result, nil
}

func (c *Corrector) atmosphere(ctx context.Context, logCtx util.LogContext, scene *model.Scene) model.Atmosphere {
	if !c.Settings.AncillaryData || c.Ancillary == nil {
		return c.Settings.ResolveAtmosphere(nil)
	}
	values, err := ancillary.QueryScene(ctx, c.Ancillary, scene)
	if err != nil {
		util.LogAlert(logCtx, fmt.Sprintf("Ancillary data unavailable for %s, using defaults: %v", scene.ID, err))
		return c.Settings.ResolveAtmosphere(nil)
	}
	return c.Settings.ResolveAtmosphere(&values)
}

// Record summarizes the result for storage and reporting
func (r *Result) Record(processedAt time.Time) model.CorrectionResult {
	atmosphere := r.Atmosphere
	selection := &model.AerosolSelection{
		Model:     r.Selection.Model,
		AOT:       r.Selection.AOT,
		Criterion: r.Selection.Criterion,
		Score:     r.Selection.Score,
		Fixed:     r.Selection.Fixed,
	}
	if r.DarkSpectrum != nil {
		selection.DarkSpectrum = r.DarkSpectrum.Named()
	}
	return model.CorrectionResult{
		SceneID:          r.Scene.ID,
		ProductID:        r.Scene.ProductID,
		Sensor:           r.Scene.Sensor,
		AcquiredDate:     r.Scene.AcquiredDate,
		ProcessedAt:      processedAt,
		Footprint:        r.Scene.Footprint,
		Resolution:       r.Scene.Resolution,
		Status:           model.StatusCorrected,
		GlintCorrected:   r.GlintCorrected,
		Geometry:         r.Scene.Geometry,
		Atmosphere:       &atmosphere,
		AerosolSelection: selection,
	}
}
