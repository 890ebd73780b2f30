package model

import "github.com/venicegeo/geojson-go/geojson"

// OutputFileFormat describes the file format of a written band
type OutputFileFormat string

// GeoTIFF is a 16-bit single-band TIFF
const GeoTIFF OutputFileFormat = "geotiff"

// GeoJSONFeatureCreator is an interface for anything that can be converted into a GeoJSON feature
type GeoJSONFeatureCreator interface {
	GeoJSONFeature() (*geojson.Feature, error)
}

// GeoJSONFeatureCollectionCreator is an interface for anything that can be converted into a GeoJSON feature collection
type GeoJSONFeatureCollectionCreator interface {
	GeoJSONFeatureCollection() (*geojson.FeatureCollection, error)
}

// GeoJSONFeatureMixin is an interface for anything that can add data to a GeoJSON feature
type GeoJSONFeatureMixin interface {
	Apply(*geojson.Feature) error
}
