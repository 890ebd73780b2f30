package model

import (
	"sort"

	"github.com/venicegeo/geojson-go/geojson"
)

// Apply implements GeoJSONFeatureMixin
func (g Geometry) Apply(feature *geojson.Feature) error {
	feature.Properties["sza"] = g.SZA
	feature.Properties["saa"] = g.SAA
	feature.Properties["vza"] = g.VZA
	feature.Properties["vaa"] = g.VAA
	feature.Properties["raa"] = g.RAA
	return nil
}

// Apply implements GeoJSONFeatureMixin
func (a Atmosphere) Apply(feature *geojson.Feature) error {
	feature.Properties["uoz"] = a.Ozone
	feature.Properties["uwv"] = a.WaterVapor
	feature.Properties["wind"] = a.Wind
	feature.Properties["pressure"] = a.Pressure
	feature.Properties["ancillarySource"] = a.Source
	return nil
}

// AerosolSelection is the outcome of aerosol model selection for a scene
type AerosolSelection struct {
	Model        string
	AOT          float64
	Criterion    string
	Score        float64
	Fixed        bool
	DarkSpectrum map[string]float64
}

// Apply implements GeoJSONFeatureMixin
func (as AerosolSelection) Apply(feature *geojson.Feature) error {
	feature.Properties["model"] = as.Model
	feature.Properties["aot550"] = as.AOT
	feature.Properties["criterion"] = as.Criterion
	feature.Properties["score"] = as.Score
	feature.Properties["fixed"] = as.Fixed
	if as.DarkSpectrum != nil {
		feature.Properties["darkSpectrum"] = as.DarkSpectrum
	}
	return nil
}

// OutputBands records where each written band of a corrected scene lives
type OutputBands struct {
	Format OutputFileFormat
	Files  map[string]string
}

// Names lists the written band names in lexical order
func (ob OutputBands) Names() []string {
	names := make([]string, 0, len(ob.Files))
	for name := range ob.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply implements GeoJSONFeatureMixin
func (ob OutputBands) Apply(feature *geojson.Feature) error {
	bands := make(map[string]string, len(ob.Files))
	for name, location := range ob.Files {
		bands[name] = location
	}
	feature.Properties["bands"] = bands
	feature.Properties["fileFormat"] = string(ob.Format)
	return nil
}
