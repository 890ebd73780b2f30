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

// Package settings parses and validates correction settings given as
// key=value lines. A parsed Settings value is never modified afterwards.
package settings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/ancillary"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
	"github.com/venicegeo/bf-atmcorr/waterquality"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Dark spectrum options
const (
	SpectrumDarkest    = "darkest"
	SpectrumPercentile = "percentile"
	SpectrumIntercept  = "intercept"
)

// Model selection criteria
const (
	SelectMinDRMSD = "min_drmsd"
	SelectMinDTau  = "min_dtau"
	SelectTauaCV   = "taua_cv"
)

// Atmosphere sources
const (
	SourceDefault   = "default"
	SourceAncillary = "ancillary"
)

// Settings configure one correction run
type Settings struct {
	AerosolCorrection string
	AOTEstimate       string
	ModelSelection    string
	SpectrumOption    string
	Percentile        float64
	InterceptPixels   int
	NBands            int
	NBandsFit         int
	AOTSkipBands      []model.Band

	FixedAOT *float64
	FixedLUT string

	ResidualGlintCorrection bool
	GlintMethod             string
	GlintMaskThreshold      float64
	GlintMaskMin            float64
	GlintWind               float64

	AncillaryData   bool
	OzoneDefault    float64
	WaterDefault    float64
	WindDefault     float64
	PressureDefault float64

	TargetResolution int
	LUTs             []string
	RskyLUT          string
	RskyModels       []int

	L2WParameters       []string
	L2WMaskThreshold    float64
	L2WCirrusThreshold  float64
	L2WHighTOAThreshold float64
}

// Default returns the settings used when a key is not given
func Default() Settings {
	return Settings{
		AerosolCorrection:   "dark_spectrum",
		AOTEstimate:         "fixed",
		ModelSelection:      SelectMinDRMSD,
		SpectrumOption:      SpectrumDarkest,
		Percentile:          1,
		InterceptPixels:     200,
		NBands:              2,
		NBandsFit:           2,
		AOTSkipBands:        []model.Band{model.B9, model.B10, model.B11, model.B12},
		GlintMethod:         "alternative",
		GlintMaskThreshold:  0.05,
		GlintMaskMin:        0,
		GlintWind:           20,
		OzoneDefault:        0.3,
		WaterDefault:        1.5,
		WindDefault:         2.0,
		PressureDefault:     1013.25,
		TargetResolution:    10,
		LUTs:                []string{"ACOLITE-LUT-202110-MOD1", "ACOLITE-LUT-202110-MOD2"},
		RskyLUT:             "ACOLITE-RSKY-202102-82W",
		RskyModels:          []int{1, 2},
		L2WMaskThreshold:    0.05,
		L2WCirrusThreshold:  0.005,
		L2WHighTOAThreshold: 0.3,
	}
}

type setter func(s *Settings, value string) error

func stringSetter(field func(*Settings) *string) setter {
	return func(s *Settings, value string) error {
		*field(s) = value
		return nil
	}
}

func floatSetter(field func(*Settings) *float64) setter {
	return func(s *Settings, value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*field(s) = f
		return nil
	}
}

func intSetter(field func(*Settings) *int) setter {
	return func(s *Settings, value string) error {
		i, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field(s) = i
		return nil
	}
}

func boolSetter(field func(*Settings) *bool) setter {
	return func(s *Settings, value string) error {
		b, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return err
		}
		*field(s) = b
		return nil
	}
}

func listValue(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func isUnset(value string) bool {
	return value == "" || strings.EqualFold(value, "none")
}

var setters = map[string]setter{
	"aerosol_correction":   stringSetter(func(s *Settings) *string { return &s.AerosolCorrection }),
	"dsf_aot_estimate":     stringSetter(func(s *Settings) *string { return &s.AOTEstimate }),
	"dsf_model_selection":  stringSetter(func(s *Settings) *string { return &s.ModelSelection }),
	"dsf_spectrum_option":  stringSetter(func(s *Settings) *string { return &s.SpectrumOption }),
	"dsf_percentile":       floatSetter(func(s *Settings) *float64 { return &s.Percentile }),
	"dsf_intercept_pixels": intSetter(func(s *Settings) *int { return &s.InterceptPixels }),
	"dsf_nbands":           intSetter(func(s *Settings) *int { return &s.NBands }),
	"dsf_nbands_fit":       intSetter(func(s *Settings) *int { return &s.NBandsFit }),
	"dsf_aot_skip_bands": func(s *Settings, value string) (err error) {
		s.AOTSkipBands, err = model.ParseBands(listValue(value))
		return err
	},
	"dsf_fixed_aot": func(s *Settings, value string) error {
		if isUnset(value) {
			s.FixedAOT = nil
			return nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		s.FixedAOT = &f
		return nil
	},
	"dsf_fixed_lut": func(s *Settings, value string) error {
		if isUnset(value) {
			value = ""
		}
		s.FixedLUT = value
		return nil
	},
	"dsf_residual_glint_correction":        boolSetter(func(s *Settings) *bool { return &s.ResidualGlintCorrection }),
	"dsf_residual_glint_correction_method": stringSetter(func(s *Settings) *string { return &s.GlintMethod }),
	"glint_mask_rhos_threshold":            floatSetter(func(s *Settings) *float64 { return &s.GlintMaskThreshold }),
	"glint_mask_rhos_min":                  floatSetter(func(s *Settings) *float64 { return &s.GlintMaskMin }),
	"glint_wind":                           floatSetter(func(s *Settings) *float64 { return &s.GlintWind }),
	"ancillary_data":                       boolSetter(func(s *Settings) *bool { return &s.AncillaryData }),
	"uoz_default":                          floatSetter(func(s *Settings) *float64 { return &s.OzoneDefault }),
	"uwv_default":                          floatSetter(func(s *Settings) *float64 { return &s.WaterDefault }),
	"wind_default":                         floatSetter(func(s *Settings) *float64 { return &s.WindDefault }),
	"pressure_default":                     floatSetter(func(s *Settings) *float64 { return &s.PressureDefault }),
	"s2_target_res":                        intSetter(func(s *Settings) *int { return &s.TargetResolution }),
	"luts": func(s *Settings, value string) error {
		s.LUTs = listValue(value)
		return nil
	},
	"rsky_lut": stringSetter(func(s *Settings) *string { return &s.RskyLUT }),
	"rsky_models": func(s *Settings, value string) error {
		var models []int
		for _, item := range listValue(value) {
			i, err := strconv.Atoi(item)
			if err != nil {
				return err
			}
			models = append(models, i)
		}
		s.RskyModels = models
		return nil
	},
	"l2w_parameters": func(s *Settings, value string) error {
		s.L2WParameters = listValue(value)
		return nil
	},
	"l2w_mask_threshold":          floatSetter(func(s *Settings) *float64 { return &s.L2WMaskThreshold }),
	"l2w_mask_cirrus_threshold":   floatSetter(func(s *Settings) *float64 { return &s.L2WCirrusThreshold }),
	"l2w_mask_high_toa_threshold": floatSetter(func(s *Settings) *float64 { return &s.L2WHighTOAThreshold }),
}

// Keys lists every recognized setting in lexical order
func Keys() []string {
	keys := maps.Keys(setters)
	slices.Sort(keys)
	return keys
}

// ParseOverrides turns "key=value" arguments into a map
func ParseOverrides(pairs []string) (map[string]string, error) {
	overrides := map[string]string{}
	for _, pair := range pairs {
		key, value, ok := splitLine(pair)
		if !ok {
			return nil, fmt.Errorf("Setting %q is not of the form key=value", pair)
		}
		overrides[key] = value
	}
	return overrides, nil
}

func splitLine(line string) (string, string, bool) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	key := strings.TrimSpace(parts[0])
	return key, strings.TrimSpace(parts[1]), key != ""
}

// Parse reads key=value lines from r on top of the defaults, then applies
// overrides and validates the result. Blank lines and lines starting with
// # are skipped. Unknown keys are ignored with an alert.
func Parse(ctx util.LogContext, r io.Reader, overrides map[string]string) (Settings, error) {
	s := Default()
	if r != nil {
		scanner := bufio.NewScanner(r)
		for lineNumber := 1; scanner.Scan(); lineNumber++ {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			key, value, ok := splitLine(line)
			if !ok {
				return Settings{}, fmt.Errorf("Settings line %d is not of the form key=value: %q", lineNumber, line)
			}
			if err := s.set(ctx, key, value); err != nil {
				return Settings{}, err
			}
		}
		if err := scanner.Err(); err != nil {
			return Settings{}, errors.Wrap(err, "Failed to read settings")
		}
	}

	keys := maps.Keys(overrides)
	slices.Sort(keys)
	for _, key := range keys {
		if err := s.set(ctx, key, overrides[key]); err != nil {
			return Settings{}, err
		}
	}

	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	if (s.FixedAOT == nil) != (s.FixedLUT == "") {
		util.LogAlert(ctx, "Only one of dsf_fixed_aot and dsf_fixed_lut is set; dark spectrum fitting will be used")
	}
	return s, nil
}

// Load parses the settings file at path, or only the defaults and
// overrides when path is empty
func Load(ctx util.LogContext, path string, overrides map[string]string) (Settings, error) {
	if path == "" {
		return Parse(ctx, nil, overrides)
	}
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "Failed to open settings file %s", path)
	}
	defer f.Close()
	return Parse(ctx, f, overrides)
}

func (s *Settings) set(ctx util.LogContext, key string, value string) error {
	set, ok := setters[key]
	if !ok {
		util.LogAlert(ctx, fmt.Sprintf("Ignoring unknown setting %s", key))
		return nil
	}
	if err := set(s, value); err != nil {
		return fmt.Errorf("Invalid value %q for setting %s: %v", value, key, err)
	}
	return nil
}

func (s Settings) validate() error {
	if s.AerosolCorrection != "dark_spectrum" {
		return fmt.Errorf("Unsupported aerosol_correction %q", s.AerosolCorrection)
	}
	if s.AOTEstimate != "fixed" {
		return fmt.Errorf("Unsupported dsf_aot_estimate %q", s.AOTEstimate)
	}
	switch s.SpectrumOption {
	case SpectrumDarkest, SpectrumPercentile, SpectrumIntercept:
	default:
		return fmt.Errorf("Unknown dsf_spectrum_option %q", s.SpectrumOption)
	}
	if s.Percentile < 0 || s.Percentile > 100 {
		return fmt.Errorf("dsf_percentile %v is outside [0, 100]", s.Percentile)
	}
	if s.InterceptPixels < 1 {
		return fmt.Errorf("dsf_intercept_pixels must be positive")
	}
	if s.NBands < 1 || s.NBandsFit < 1 {
		return fmt.Errorf("dsf_nbands and dsf_nbands_fit must be positive")
	}
	if s.NBandsFit > s.NBands {
		return fmt.Errorf("dsf_nbands_fit (%d) exceeds dsf_nbands (%d)", s.NBandsFit, s.NBands)
	}
	if s.FixedAOT != nil && *s.FixedAOT < 0 {
		return fmt.Errorf("dsf_fixed_aot must not be negative")
	}
	if len(s.LUTs) == 0 {
		return fmt.Errorf("No aerosol models configured in luts")
	}
	if s.ResidualGlintCorrection {
		if s.GlintMethod != "alternative" {
			return fmt.Errorf("Unsupported dsf_residual_glint_correction_method %q", s.GlintMethod)
		}
		if s.GlintMaskMin >= s.GlintMaskThreshold {
			return fmt.Errorf("glint_mask_rhos_min must be below glint_mask_rhos_threshold")
		}
		if len(s.RskyModels) == 0 || s.RskyLUT == "" {
			return fmt.Errorf("Glint correction requires rsky_lut and rsky_models")
		}
	}
	if s.TargetResolution <= 0 {
		return fmt.Errorf("s2_target_res must be positive")
	}
	for _, product := range s.L2WParameters {
		if !waterquality.IsProduct(product) {
			return fmt.Errorf("Unknown l2w_parameters product %q; known products are %s", product, strings.Join(waterquality.ProductNames(), ", "))
		}
	}
	return nil
}

// FixedModel reports the model and AOT to use when both dsf_fixed_aot and
// dsf_fixed_lut are set. The model must be one of luts.
func (s Settings) FixedModel() (string, float64, bool) {
	if s.FixedAOT == nil || s.FixedLUT == "" {
		return "", 0, false
	}
	return s.FixedLUT, *s.FixedAOT, true
}

// SkipBands returns the bands excluded from AOT estimation as a set
func (s Settings) SkipBands() model.BandSet {
	return model.NewBandSet(s.AOTSkipBands...)
}

// ReferenceBand is the band every other band is resampled onto
func (s Settings) ReferenceBand() model.Band {
	return model.ReferenceBandForResolution(s.TargetResolution)
}

// DefaultAtmosphere builds the atmosphere from the *_default settings
func (s Settings) DefaultAtmosphere() model.Atmosphere {
	return model.Atmosphere{
		Ozone:      s.OzoneDefault,
		WaterVapor: s.WaterDefault,
		Wind:       s.WindDefault,
		Pressure:   s.PressureDefault,
		Source:     SourceDefault,
	}
}

// ResolveAtmosphere overlays ancillary values on the defaults key by key.
// The defaults are used as they are when ancillary_data is off or values
// is nil.
func (s Settings) ResolveAtmosphere(values *ancillary.Values) model.Atmosphere {
	atm := s.DefaultAtmosphere()
	if !s.AncillaryData || values == nil {
		return atm
	}
	found := false
	for _, pair := range []struct {
		value *float64
		field *float64
	}{
		{values.Ozone, &atm.Ozone},
		{values.WaterVapor, &atm.WaterVapor},
		{values.Wind, &atm.Wind},
		{values.Pressure, &atm.Pressure},
	} {
		if pair.value != nil {
			*pair.field = *pair.value
			found = true
		}
	}
	if found {
		atm.Source = SourceAncillary
	}
	return atm
}
