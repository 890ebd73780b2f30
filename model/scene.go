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

package model

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/venicegeo/bf-atmcorr/raster"
	"github.com/venicegeo/geojson-go/geojson"
)

// SensorID selects between the two MSI platform variants
type SensorID string

// Supported sensor variants
const (
	SensorS2A SensorID = "S2A_MSI"
	SensorS2B SensorID = "S2B_MSI"
)

// Sensors lists every supported sensor variant
var Sensors = []SensorID{SensorS2A, SensorS2B}

// SensorForProduct derives the sensor variant from a product ID
func SensorForProduct(productID string) SensorID {
	if strings.Contains(productID, "S2A") {
		return SensorS2A
	}
	return SensorS2B
}

// ParseSensor validates a sensor name
func ParseSensor(name string) (SensorID, error) {
	for _, sensor := range Sensors {
		if strings.EqualFold(name, string(sensor)) {
			return sensor, nil
		}
	}
	return "", errors.New("Unknown sensor: " + name)
}

// Platform returns the short platform code, e.g. "S2A"
func (s SensorID) Platform() string {
	return strings.TrimSuffix(string(s), "_MSI")
}

// Geometry is the sun and view geometry of a scene, in degrees
type Geometry struct {
	SZA float64
	SAA float64
	VZA float64
	VAA float64
	RAA float64
}

// NewGeometry builds a Geometry, deriving the relative azimuth
func NewGeometry(sza, saa, vza, vaa float64) Geometry {
	return Geometry{SZA: sza, SAA: saa, VZA: vza, VAA: vaa, RAA: RelativeAzimuth(saa, vaa)}
}

// RelativeAzimuth folds the sun/view azimuth difference into [0, 180]
func RelativeAzimuth(saa, vaa float64) float64 {
	raa := math.Abs(saa - vaa)
	if raa > 180 {
		raa = math.Abs(raa - 360)
	}
	return raa
}

// Atmosphere holds the per-scene gas and surface state used by the correction
type Atmosphere struct {
	Ozone      float64 // cm-atm
	WaterVapor float64 // g/cm2
	Wind       float64 // m/s
	Pressure   float64 // hPa
	Source     string
}

// Scene is one Sentinel-2 acquisition with TOA reflectance bands co-registered
// to one target resolution
type Scene struct {
	ID           string
	ProductID    string
	Sensor       SensorID
	AcquiredDate time.Time
	Footprint    interface{}
	Geometry     Geometry
	Resolution   int
	Image        raster.Image
}

// Centroid returns the footprint center as (lon, lat)
func (s Scene) Centroid() (float64, float64, error) {
	if s.Footprint == nil {
		return 0, 0, errors.New("Scene " + s.ID + " has no footprint")
	}
	center := geojson.NewFeature(s.Footprint, s.ID, nil).ForceBbox().Centroid()
	if center == nil || len(center.Coordinates) < 2 {
		return 0, 0, errors.New("Could not compute centroid of scene " + s.ID)
	}
	return center.Coordinates[0], center.Coordinates[1], nil
}
