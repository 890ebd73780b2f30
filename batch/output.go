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

package batch

import (
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/dsf"
	"github.com/venicegeo/bf-atmcorr/fileaccess"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
	"github.com/venicegeo/bf-atmcorr/util"
)

// FeatureFile is the name of the per-scene result feature
const FeatureFile = "correction.geojson"

// ProductScale is applied to water quality bands before they are stored as 16-bit
const ProductScale = 100

// Writer stores corrected scenes below Root/<scene id>/
type Writer struct {
	Root   fileaccess.Root
	Engine raster.Engine
}

func bandScale(name string, products map[string]bool) float64 {
	if products[name] {
		return ProductScale
	}
	return raster.ReflectanceScale
}

// Write encodes every band of the corrected image and returns their locations
func (w Writer) Write(ctx context.Context, logCtx util.LogContext, result *dsf.Result) (*model.OutputBands, error) {
	products := map[string]bool{}
	for _, output := range result.Products {
		products[output.Name] = true
	}

	out := &model.OutputBands{Format: model.GeoTIFF, Files: map[string]string{}}
	for _, name := range result.Image.BandNames() {
		if !strings.HasPrefix(name, "rhot_") && !strings.HasPrefix(name, "rhos_") && name != dsf.GlintMeanBand && !products[name] {
			continue
		}
		layer, err := w.Engine.Materialize(ctx, result.Image, name)
		if err != nil {
			return nil, err
		}
		buf := &bytes.Buffer{}
		if err = raster.WriteTIFF(buf, layer, bandScale(name, products)); err != nil {
			return nil, errors.Wrapf(err, "Band %s of %s", name, result.Scene.ID)
		}
		file := name + ".tif"
		if err = w.Root.WriteObject(buf.Bytes(), result.Scene.ID, file); err != nil {
			return nil, errors.Wrapf(err, "Failed to write band %s of %s", name, result.Scene.ID)
		}
		out.Files[name] = w.Root.Sub(result.Scene.ID).Path(file)
	}
	util.LogAudit(logCtx, util.LogAuditInput{Actor: util.AppName, Action: "write", Actee: w.Root.Sub(result.Scene.ID).String(),
		Message: "Wrote " + strings.Join(out.Names(), ", "), Severity: util.INFO})
	return out, nil
}

// WriteFeature stores the result feature of a scene
func (w Writer) WriteFeature(record model.CorrectionResult) error {
	feature, err := record.GeoJSONFeature()
	if err != nil {
		return err
	}
	if err = w.Root.WriteObject([]byte(feature.String()), record.SceneID, FeatureFile); err != nil {
		return errors.Wrapf(err, "Failed to write %s of %s", FeatureFile, record.SceneID)
	}
	return nil
}
