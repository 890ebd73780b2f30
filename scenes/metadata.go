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

package scenes

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/geojson-go/geojson"
)

// https://earth.esa.int/web/sentinel/user-guides/sentinel-2-msi/naming-convention
var sentinelIDPattern = regexp.MustCompile("S2(A|B)_MSIL1C_([0-9]{8}T[0-9]{6})_[A-Z0-9]+_[A-Z0-9]+_T([0-9]+)([A-Z])([A-Z]+)_[0-9]{8}T[0-9]")

// Metadata property names, as exported alongside L1C products
const (
	propProductID    = "PRODUCT_ID"
	propTimeStart    = "system:time_start"
	propSensingTime  = "SENSING_TIME"
	propSolarZenith  = "MEAN_SOLAR_ZENITH_ANGLE"
	propSolarAzimuth = "MEAN_SOLAR_AZIMUTH_ANGLE"
	incidencePrefix  = "MEAN_INCIDENCE_%s_ANGLE_%s"
)

// IsValidSentinelID returns whether an ID is an L1C product ID
func IsValidSentinelID(productID string) bool {
	return sentinelIDPattern.MatchString(productID)
}

// TrimProductID cuts a product ID at its processing level, e.g.
// "S2A_MSIL1C_2020..." becomes "S2A_MSI"
func TrimProductID(productID string) string {
	if i := strings.Index(productID, "L1C"); i >= 0 {
		return productID[:i]
	}
	return productID
}

// Metadata is the parsed scene-level metadata of one product
type Metadata struct {
	ProductID    string
	AcquiredDate time.Time
	Footprint    interface{}
	Geometry     model.Geometry
}

// ParseMetadata reads a GeoJSON feature whose properties carry the L1C
// angle and time metadata
func ParseMetadata(data []byte) (*Metadata, error) {
	parsed, err := geojson.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse scene metadata: %v", err)
	}
	feature, ok := parsed.(*geojson.Feature)
	if !ok {
		return nil, fmt.Errorf("Expected scene metadata to be a Feature and got %T", parsed)
	}

	md := Metadata{ProductID: feature.PropertyString(propProductID), Footprint: feature.Geometry}
	if md.ProductID == "" {
		md.ProductID = feature.IDStr()
	}
	if md.ProductID == "" {
		return nil, fmt.Errorf("Scene metadata has no %s", propProductID)
	}
	if md.AcquiredDate, err = acquiredDate(feature, md.ProductID); err != nil {
		return nil, err
	}

	sza, err := floatProperty(feature, propSolarZenith)
	if err != nil {
		return nil, err
	}
	saa, err := floatProperty(feature, propSolarAzimuth)
	if err != nil {
		return nil, err
	}
	vza, err := meanIncidence(feature, "ZENITH")
	if err != nil {
		return nil, err
	}
	vaa, err := meanIncidence(feature, "AZIMUTH")
	if err != nil {
		return nil, err
	}
	md.Geometry = model.NewGeometry(sza, saa, vza, vaa)
	return &md, nil
}

func acquiredDate(feature *geojson.Feature, productID string) (time.Time, error) {
	switch value := feature.Properties[propTimeStart].(type) {
	case float64:
		return model.TimeFromEpochMillis(int64(value)), nil
	case string:
		return model.ParseSentinelTime(value)
	}
	if sensing := feature.PropertyString(propSensingTime); sensing != "" {
		return model.ParseSentinelTime(sensing)
	}
	if m := sentinelIDPattern.FindStringSubmatch(productID); m != nil {
		return model.ParseSentinelTime(m[2])
	}
	return time.Time{}, fmt.Errorf("No acquisition time for product %s", productID)
}

func floatProperty(feature *geojson.Feature, name string) (float64, error) {
	value, ok := feature.Properties[name].(float64)
	if !ok {
		return 0, fmt.Errorf("Scene metadata property %s is missing or not a number", name)
	}
	return value, nil
}

// meanIncidence averages the per-band incidence angles over the bands that
// report one
func meanIncidence(feature *geojson.Feature, angle string) (float64, error) {
	var sum float64
	var n int
	for _, band := range model.AllBands {
		if value, ok := feature.Properties[fmt.Sprintf(incidencePrefix, angle, band)].(float64); ok {
			sum += value
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("Scene metadata has no %s incidence angles", strings.ToLower(angle))
	}
	return sum / float64(n), nil
}
