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

package gas

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/rsr"
	"github.com/venicegeo/bf-atmcorr/util"
)

var testResponse = &rsr.Response{
	Sensor: model.SensorS2A,
	Bands:  []model.Band{model.B1, model.B11},
	Curves: map[model.Band]rsr.Curve{
		model.B1:  {Wave: []float64{0.43, 0.44, 0.45}, Response: []float64{0, 1, 0}},
		model.B11: {Wave: []float64{1.5, 1.6, 1.7}, Response: []float64{0, 1, 0}},
	},
}

func TestBeerLambert_Transmittance(t *testing.T) {
	// Mock
	m, err := NewBeerLambert(Coefficients{
		Wave:  []float64{0.4, 2.0},
		Ozone: []float64{0.1, 0.1},
		Water: []float64{0, 0.016},
	})
	assert.Nil(t, err)
	in := Input{SZA: 60, VZA: 0, Pressure: 1013.25, Ozone: 0.3, WaterVapor: 1.5}

	// Tested code
	tt, errTT := m.Transmittance(context.Background(), in, testResponse)
	transparent, _ := m.Transmittance(context.Background(), Input{SZA: 60, VZA: 0}, testResponse)
	_, errAngle := m.Transmittance(context.Background(), Input{SZA: 95}, testResponse)

	// Asserts
	assert.Nil(t, errTT)
	assert.InDelta(t, 3.0, AirMass(60, 0), 1e-12)
	water := 0.016 * (0.44 - 0.4) / 1.6
	assert.InDelta(t, math.Exp(-3*(0.3*0.1+1.5*water)), tt[model.B1], 1e-6)
	assert.True(t, tt[model.B11] < tt[model.B1], "more water vapour absorption in the SWIR")
	assert.Equal(t, 1.0, transparent[model.B1])
	assert.NotNil(t, errAngle)
}

func TestNewBeerLambert_Validation(t *testing.T) {
	_, errShort := NewBeerLambert(Coefficients{Wave: []float64{0.4}, Ozone: []float64{1}, Water: []float64{1}})
	_, errLen := NewBeerLambert(Coefficients{Wave: []float64{0.4, 0.5}, Ozone: []float64{1}, Water: []float64{1, 1}})
	_, errOrder := NewBeerLambert(Coefficients{Wave: []float64{0.5, 0.4}, Ozone: []float64{1, 1}, Water: []float64{1, 1}})

	assert.NotNil(t, errShort)
	assert.NotNil(t, errLen)
	assert.NotNil(t, errOrder)
	assert.Contains(t, errOrder.Error(), "not increasing")
}

func TestClient_Transmittance(t *testing.T) {
	// Mock
	var received request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(response{Transmittance: map[string]float64{"1": 0.98, "11": 0.9}})
	}))
	defer server.Close()
	client := NewClient(server.URL)

	// Tested code
	tt, err := client.Transmittance(context.Background(), Input{SZA: 30, Ozone: 0.3}, testResponse)

	// Asserts
	assert.Nil(t, err)
	assert.Equal(t, map[model.Band]float64{model.B1: 0.98, model.B11: 0.9}, tt)
	assert.Equal(t, []string{"1", "11"}, received.Bands)
	assert.Equal(t, "S2A_MSI", received.Sensor)
	assert.Equal(t, 0.3, received.Ozone)
}

func TestClient_MissingBand(t *testing.T) {
	// Mock
	original := httpRequestKnownJSONWithObject
	defer func() { httpRequestKnownJSONWithObject = original }()
	httpRequestKnownJSONWithObject = func(ctx context.Context, method, url, authKey string, in, out interface{}) (*http.Response, error) {
		out.(*response).Transmittance = map[string]float64{"1": 0.98}
		return nil, nil
	}
	failing := NewClient("http://gas")

	// Tested code
	_, errMissing := failing.Transmittance(context.Background(), Input{}, testResponse)
	httpRequestKnownJSONWithObject = func(ctx context.Context, method, url, authKey string, in, out interface{}) (*http.Response, error) {
		return nil, util.HTTPErr{Status: 500, Message: "boom"}
	}
	_, errHTTP := failing.Transmittance(context.Background(), Input{}, testResponse)

	// Asserts
	assert.NotNil(t, errMissing)
	assert.NotNil(t, errHTTP)
}

func TestClient_ConcurrentTransmittance(t *testing.T) {
	// Mock
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(response{Transmittance: map[string]float64{"1": 0.98, "11": 0.9}})
	}))
	defer server.Close()
	client := NewClient(server.URL)
	sessions := make([]string, 8)
	errs := make([]error, 8)

	// Tested code
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Transmittance(context.Background(), Input{SZA: 30}, testResponse)
			sessions[i] = client.Context.SessionID()
		}(i)
	}
	wg.Wait()

	// Asserts
	for i := range sessions {
		assert.Nil(t, errs[i])
		assert.NotEmpty(t, sessions[i])
		assert.Equal(t, sessions[0], sessions[i])
	}
}
