package model

import (
	"time"

	"github.com/venicegeo/geojson-go/geojson"
)

// CorrectionResult is the outcome of correcting one scene
type CorrectionResult struct {
	SceneID        string
	ProductID      string
	Sensor         SensorID
	AcquiredDate   time.Time
	ProcessedAt    time.Time
	Footprint      interface{}
	Resolution     int
	Status         string
	Message        string
	GlintCorrected bool
	Geometry
	*Atmosphere
	*AerosolSelection
	*OutputBands
}

// GeoJSONFeature implements GeoJSONFeatureCreator
func (result CorrectionResult) GeoJSONFeature() (*geojson.Feature, error) {
	f := geojson.NewFeature(result.Footprint, result.SceneID, map[string]interface{}{
		"productId":      result.ProductID,
		"sensorName":     string(result.Sensor),
		"acquiredDate":   result.AcquiredDate.UTC().Format(ResultTimeFormat),
		"resolution":     result.Resolution,
		"status":         result.Status,
		"glintCorrected": result.GlintCorrected,
	})
	if !result.ProcessedAt.IsZero() {
		f.Properties["processedAt"] = result.ProcessedAt.UTC().Format(ResultTimeFormat)
	}
	if result.Message != "" {
		f.Properties["message"] = result.Message
	}
	if result.Footprint != nil {
		f.Bbox = f.ForceBbox()
	}

	mixins := []GeoJSONFeatureMixin{result.Geometry}
	if result.Atmosphere != nil {
		mixins = append(mixins, *result.Atmosphere)
	}
	if result.AerosolSelection != nil {
		mixins = append(mixins, *result.AerosolSelection)
	}
	if result.OutputBands != nil {
		mixins = append(mixins, *result.OutputBands)
	}
	for _, mixin := range mixins {
		if err := mixin.Apply(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// MultiResult is a set of results presented as one feature collection
type MultiResult struct {
	FeatureCreators []GeoJSONFeatureCreator
}

// GeoJSONFeatureCollection implements GeoJSONFeatureCollectionCreator
func (result MultiResult) GeoJSONFeatureCollection() (*geojson.FeatureCollection, error) {
	var err error
	features := make([]*geojson.Feature, len(result.FeatureCreators))
	for i, creator := range result.FeatureCreators {
		features[i], err = creator.GeoJSONFeature()
		if err != nil {
			return nil, err
		}
	}

	return geojson.NewFeatureCollection(features), nil
}
