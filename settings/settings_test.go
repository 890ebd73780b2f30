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

package settings

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/venicegeo/bf-atmcorr/ancillary"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
)

const settingsFile = `
# custom run
dsf_spectrum_option = percentile
dsf_percentile=5
dsf_nbands=3
dsf_aot_skip_bands=10,11,12
dsf_residual_glint_correction=True
l2w_parameters=spm_nechad2016, chl_oc3
s2_target_res=20
dsf_fixed_aot=None
some_future_key=1
`

func TestParse_FileAndOverrides(t *testing.T) {
	// Mock
	logs := &bytes.Buffer{}
	util.SetLogOutput(logs)
	defer util.SetLogOutput(os.Stderr)

	// Tested code
	s, err := Parse(&util.BasicLogContext{}, strings.NewReader(settingsFile), map[string]string{"dsf_nbands": "4", "luts": "A-MOD1,A-MOD3"})

	// Asserts
	assert.Nil(t, err)
	assert.Equal(t, SpectrumPercentile, s.SpectrumOption)
	assert.Equal(t, 5.0, s.Percentile)
	assert.Equal(t, 4, s.NBands, "overrides win over the file")
	assert.Equal(t, []model.Band{model.B10, model.B11, model.B12}, s.AOTSkipBands)
	assert.True(t, s.ResidualGlintCorrection)
	assert.Equal(t, []string{"spm_nechad2016", "chl_oc3"}, s.L2WParameters)
	assert.Equal(t, model.B5, s.ReferenceBand())
	assert.Nil(t, s.FixedAOT)
	assert.Equal(t, []string{"A-MOD1", "A-MOD3"}, s.LUTs)
	assert.Equal(t, SelectMinDRMSD, s.ModelSelection, "unset keys keep their defaults")
	assert.Contains(t, logs.String(), "some_future_key")
}

func TestParse_Defaults(t *testing.T) {
	s, err := Parse(&util.BasicLogContext{}, nil, nil)

	assert.Nil(t, err)
	assert.Equal(t, Default(), s)
	assert.True(t, s.SkipBands().Contains(model.B9))
	assert.False(t, s.SkipBands().Contains(model.B8A))
	assert.Equal(t, model.B2, s.ReferenceBand())
	_, _, fixed := s.FixedModel()
	assert.False(t, fixed)
}

func TestParse_Rejects(t *testing.T) {
	ctx := &util.BasicLogContext{}
	for _, overrides := range []map[string]string{
		{"dsf_nbands": "two"},
		{"dsf_spectrum_option": "brightest"},
		{"dsf_nbands": "1", "dsf_nbands_fit": "2"},
		{"dsf_percentile": "101"},
		{"l2w_parameters": "chl_magic"},
		{"dsf_aot_skip_bands": "9,14"},
		{"dsf_residual_glint_correction": "true", "glint_mask_rhos_min": "0.1"},
		{"aerosol_correction": "exponential"},
		{"luts": ""},
	} {
		_, err := Parse(ctx, nil, overrides)
		assert.NotNil(t, err, "%v should be rejected", overrides)
	}
	_, errLine := Parse(ctx, strings.NewReader("not a setting"), nil)
	assert.NotNil(t, errLine)
}

func TestFixedModel(t *testing.T) {
	s, err := Parse(&util.BasicLogContext{}, nil, map[string]string{"dsf_fixed_aot": "0.12", "dsf_fixed_lut": "ACOLITE-LUT-202110-MOD3"})

	name, aot, ok := s.FixedModel()

	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ACOLITE-LUT-202110-MOD3", name)
	assert.Equal(t, 0.12, aot)
}

func TestParseOverrides(t *testing.T) {
	overrides, err := ParseOverrides([]string{"a=1", " b = x=y "})
	_, errBad := ParseOverrides([]string{"novalue"})

	assert.Nil(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y"}, overrides)
	assert.NotNil(t, errBad)
	assert.Contains(t, Keys(), "glint_mask_rhos_threshold")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")
	assert.Nil(t, os.WriteFile(path, []byte("dsf_nbands=3\n"), 0644))

	s, err := Load(&util.BasicLogContext{}, path, nil)
	_, errMissing := Load(&util.BasicLogContext{}, path+".missing", nil)

	assert.Nil(t, err)
	assert.Equal(t, 3, s.NBands)
	assert.NotNil(t, errMissing)
}

func TestResolveAtmosphere(t *testing.T) {
	// Mock
	ozone, pressure := 0.35, 1001.0
	values := &ancillary.Values{Ozone: &ozone, Pressure: &pressure}
	on, _ := Parse(&util.BasicLogContext{}, nil, map[string]string{"ancillary_data": "true"})
	off := Default()

	// Tested code
	resolved := on.ResolveAtmosphere(values)
	missing := on.ResolveAtmosphere(&ancillary.Values{})
	ignored := off.ResolveAtmosphere(values)

	// Asserts
	assert.Equal(t, model.Atmosphere{Ozone: 0.35, WaterVapor: 1.5, Wind: 2.0, Pressure: 1001, Source: SourceAncillary}, resolved)
	assert.Equal(t, off.DefaultAtmosphere(), missing)
	assert.Equal(t, SourceDefault, ignored.Source)
	assert.Equal(t, 0.3, ignored.Ozone)
}
