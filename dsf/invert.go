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
	"github.com/venicegeo/bf-atmcorr/raster"
)

// Inverter converts TOA reflectance to surface reflectance
type Inverter struct {
	Engine raster.Engine
}

// SurfaceReflectance inverts one pixel; negative results are masked
func SurfaceReflectance(toa, tg, romix, dutott, astot float64) float64 {
	x := toa/tg - romix
	rhos := x / (dutott + astot*x)
	if rhos < 0 {
		return math.NaN()
	}
	return rhos
}

// Invert returns an image holding rhot_<band> and rhos_<band> for every
// band of params
func (inv Inverter) Invert(img raster.Image, params *Parameters) (raster.Image, error) {
	var out raster.Image
	for _, band := range params.Bands {
		romix, err := params.Value(lut.ParRomix, band)
		if err != nil {
			return nil, err
		}
		dutott, err := params.Value(lut.ParDutott, band)
		if err != nil {
			return nil, err
		}
		astot, err := params.Value(lut.ParAstot, band)
		if err != nil {
			return nil, err
		}
		tg := params.Gas[band]

		rhot, err := inv.Engine.Select(img, band.String())
		if err != nil {
			return nil, err
		}
		if rhot, err = inv.Engine.Rename(rhot, band.String(), band.Rhot()); err != nil {
			return nil, err
		}
		rhos, err := inv.Engine.Map(img, band.Rhos(), []string{band.String()}, func(v []float64) float64 {
			return SurfaceReflectance(v[0], tg, romix, dutott, astot)
		})
		if err != nil {
			return nil, err
		}

		if out == nil {
			out = rhot
		} else if out, err = inv.Engine.AddBands(out, rhot, false); err != nil {
			return nil, err
		}
		if out, err = inv.Engine.AddBands(out, rhos, false); err != nil {
			return nil, err
		}
	}
	return out, nil
}
