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

package lut

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/venicegeo/bf-atmcorr/fileaccess"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
)

var testAxes = ModelAxes{
	Pressures:        []float64{500, 1013.25, 1100},
	RelativeAzimuths: []float64{0, 90, 180},
	ViewZeniths:      []float64{0, 30, 60},
	SunZeniths:       []float64{0, 30, 60, 80},
	Taus:             []float64{0.001, 0.1, 0.5, 1, 2},
}

// linear in every axis, so multilinear interpolation is exact
func linearValue(pressure float64, par string, raa, vza, sza, tau float64) float64 {
	offset := map[string]float64{ParRomix: 0.01, ParDutott: 0.9, ParAstot: 0.1}[par]
	return offset + 1e-5*pressure + 1e-4*raa + 2e-4*vza + 3e-4*sza + 0.05*tau
}

func mockModel(t *testing.T, name string) *Model {
	m, err := NewModel(name, []string{ParRomix, ParDutott, ParAstot}, testAxes)
	assert.Nil(t, err)
	for _, band := range []model.Band{model.B1, model.B2, model.B11, model.B12} {
		assert.Nil(t, m.FillBand(band, linearValue))
	}
	return m
}

func mockGlintModel(t *testing.T, name string, index int) *GlintModel {
	m, err := NewGlintModel(name, index, GlintAxes{
		RelativeAzimuths: []float64{0, 180},
		ViewZeniths:      []float64{0, 60},
		SunZeniths:       []float64{0, 80},
		Winds:            []float64{0, 10, 20},
		Taus:             []float64{0.001, 1},
	})
	assert.Nil(t, err)
	for i, band := range []model.Band{model.B1, model.B11, model.B12} {
		scale := float64(i + 1)
		assert.Nil(t, m.FillBand(band, func(raa, vza, sza, wind, tau float64) float64 {
			return scale * (0.01 + 0.001*wind + 0.002*tau)
		}))
	}
	return m
}

func TestModel_InterpolateOnAndOffGrid(t *testing.T) {
	// Mock
	m := mockModel(t, "ACOLITE-LUT-202110-MOD1")

	// Tested code
	onGrid, errOn := m.Interpolate(model.B2, ParRomix, 1013.25, 90, 30, 30, 0.1)
	offGrid, errOff := m.Interpolate(model.B2, ParAstot, 900, 45, 12, 41, 0.3)
	extrapolated, _ := m.Interpolate(model.B2, ParDutott, 1013.25, 90, 30, 30, 3)
	_, errBand := m.Interpolate(model.B5, ParRomix, 1013.25, 90, 30, 30, 0.1)
	_, errPar := m.Interpolate(model.B2, "utott", 1013.25, 90, 30, 30, 0.1)

	// Asserts
	assert.Nil(t, errOn)
	assert.Nil(t, errOff)
	assert.InDelta(t, linearValue(1013.25, ParRomix, 90, 30, 30, 0.1), onGrid, 1e-12)
	assert.InDelta(t, linearValue(900, ParAstot, 45, 12, 41, 0.3), offGrid, 1e-12)
	assert.InDelta(t, linearValue(1013.25, ParDutott, 90, 30, 30, 3), extrapolated, 1e-12)
	assert.NotNil(t, errBand)
	assert.NotNil(t, errPar)
}

func TestModel_Curve(t *testing.T) {
	m := mockModel(t, "M1")

	curve, err := m.Curve(model.B1, ParRomix, 1013.25, 100, 10, 40)

	assert.Nil(t, err)
	assert.Len(t, curve, len(testAxes.Taus))
	for i, tau := range testAxes.Taus {
		assert.InDelta(t, linearValue(1013.25, ParRomix, 100, 10, 40, tau), curve[i], 1e-12)
	}
}

func TestNewModel_Validation(t *testing.T) {
	_, errPar := NewModel("M", []string{ParRomix, ParDutott}, testAxes)
	bad := testAxes
	bad.Taus = []float64{0.1, 0.1, 0.5}
	_, errAxis := NewModel("M", RequiredParameters, bad)
	m, _ := NewModel("M", RequiredParameters, testAxes)

	assert.NotNil(t, errPar)
	assert.NotNil(t, errAxis)
	assert.NotNil(t, m.SetBand(model.B1, sparse.ZerosDense(2, 2)))
}

func TestGlintIndexForName(t *testing.T) {
	index, err := GlintIndexForName("ACOLITE-LUT-202110-MOD2")
	assert.Nil(t, err)
	assert.Equal(t, 2, index)
	_, err = GlintIndexForName("ACOLITE-LUT-202110-MODX")
	assert.NotNil(t, err)
	_, err = GlintIndexForName("")
	assert.NotNil(t, err)
	m, _ := NewModel("X-MOD1", RequiredParameters, testAxes)
	index, _ = m.GlintIndex()
	assert.Equal(t, 1, index)
}

func TestTable_Names(t *testing.T) {
	table := Table{"MOD3": nil, "MOD1": nil}
	assert.Equal(t, []string{"MOD1", "MOD3"}, table.Names())
	assert.Equal(t, "MOD1, MOD3", table.String())
	assert.Equal(t, []int{1, 2}, GlintTable{2: nil, 1: nil}.Indices())
}

func writeModelFile(t *testing.T, dir string, m *Model) {
	path := filepath.Join(dir, string(model.SensorS2A), m.Name+".nc")
	assert.Nil(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	assert.Nil(t, err)
	defer f.Close()
	assert.Nil(t, WriteModel(f, m))
}

func writeGlintFile(t *testing.T, dir string, m *GlintModel) {
	path := filepath.Join(dir, string(model.SensorS2A), m.Name+".nc")
	assert.Nil(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	assert.Nil(t, err)
	defer f.Close()
	assert.Nil(t, WriteGlintModel(f, m))
}

func TestLoader_LocalRoundTrip(t *testing.T) {
	// Mock
	dir := t.TempDir()
	original := mockModel(t, "ACOLITE-LUT-202110-MOD1")
	writeModelFile(t, dir, original)
	writeGlintFile(t, dir, mockGlintModel(t, GlintModelName("ACOLITE-RSKY-202102-82W", 1), 1))
	loader := NewLoader(fileaccess.Root{Access: &fileaccess.FSAccess{}, Bucket: dir}, t.TempDir())
	ctx := &util.BasicLogContext{}

	// Tested code
	table, err := loader.LoadModels(ctx, model.SensorS2A, []string{"ACOLITE-LUT-202110-MOD1"})
	again, _ := loader.LoadModels(ctx, model.SensorS2A, []string{"ACOLITE-LUT-202110-MOD1"})
	glints, errGlint := loader.LoadGlintModels(ctx, []int{1}, "ACOLITE-RSKY-202102-82W", model.SensorS2A)
	_, errMissing := loader.LoadModels(ctx, model.SensorS2A, []string{"ACOLITE-LUT-202110-MOD9"})
	_, errNone := loader.LoadModels(ctx, model.SensorS2A, nil)
	_, errSensor := loader.LoadModels(ctx, model.SensorS2B, []string{"ACOLITE-LUT-202110-MOD1"})

	// Asserts
	assert.Nil(t, err)
	loaded := table["ACOLITE-LUT-202110-MOD1"]
	assert.NotNil(t, loaded)
	assert.True(t, loaded == again["ACOLITE-LUT-202110-MOD1"], "second load must come from the cache")
	assert.Equal(t, original.Parameters, loaded.Parameters)
	assert.Equal(t, original.Bands(), loaded.Bands())
	expected, _ := original.Interpolate(model.B11, ParRomix, 950, 33, 21, 47, 0.7)
	actual, _ := loaded.Interpolate(model.B11, ParRomix, 950, 33, 21, 47, 0.7)
	assert.InDelta(t, expected, actual, 1e-5)

	assert.Nil(t, errGlint)
	glint, _ := glints[1].Interpolate(model.B12, 10, 10, 10, 20, 0.5)
	assert.InDelta(t, 3*(0.01+0.02+0.001), glint, 1e-6)
	assert.NotNil(t, errMissing)
	assert.NotNil(t, errNone)
	assert.NotNil(t, errSensor)
}

func TestLoader_GlintIndexMismatch(t *testing.T) {
	dir := t.TempDir()
	writeGlintFile(t, dir, mockGlintModel(t, GlintModelName("RSKY", 2), 1))
	loader := NewLoader(fileaccess.Root{Access: &fileaccess.FSAccess{}, Bucket: dir}, t.TempDir())

	_, err := loader.LoadGlintModels(&util.BasicLogContext{}, []int{2}, "RSKY", model.SensorS2A)

	assert.NotNil(t, err)
}

type mockS3 struct {
	s3iface.S3API
	objects map[string][]byte
	gets    int
}

func (m *mockS3) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	m.gets++
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestLoader_RemoteDownloadsToCache(t *testing.T) {
	// Mock
	dir := t.TempDir()
	writeModelFile(t, dir, mockModel(t, "M2"))
	data, err := os.ReadFile(filepath.Join(dir, "S2A_MSI", "M2.nc"))
	assert.Nil(t, err)
	client := &mockS3{objects: map[string][]byte{"LUT/S2A_MSI/M2.nc": data}}
	cache := t.TempDir()
	root := fileaccess.Root{Access: fileaccess.MakeS3Access(client), Bucket: "luts", Prefix: "LUT"}

	// Tested code
	table, errFirst := NewLoader(root, cache).LoadModels(&util.BasicLogContext{}, model.SensorS2A, []string{"M2"})
	_, errSecond := NewLoader(root, cache).LoadModels(&util.BasicLogContext{}, model.SensorS2A, []string{"M2"})

	// Asserts
	assert.Nil(t, errFirst)
	assert.Nil(t, errSecond)
	assert.Equal(t, 1, client.gets, "a cached download should not be fetched again")
	assert.FileExists(t, filepath.Join(cache, "S2A_MSI", "M2.nc"))
	assert.Equal(t, "M2", table["M2"].Name)
}
