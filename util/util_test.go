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

package util

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const sampleVcap = `{
	"user-provided": [
		{"name": "pz-postgres", "label": "user-provided", "credentials": {"uri": "postgres://u:p@db:5432/atmcorr", "port": 5432}},
		{"name": "atmcorr-luts", "label": "user-provided", "credentials": {"bucket": "luts", "region": "us-west-2"}}
	]
}`

func TestParseVcapServices_FindServiceByName(t *testing.T) {
	// Tested code
	services, err := ParseVcapServices([]byte(sampleVcap))

	// Asserts
	assert.Nil(t, err)
	service := services.FindServiceByName("pz-postgres")
	assert.NotNil(t, service)
	uri, err := service.Credentials.String("uri")
	assert.Nil(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/atmcorr", uri)
	port, err := service.Credentials.Int("port")
	assert.Nil(t, err)
	assert.Equal(t, 5432, port)
	assert.Nil(t, services.FindServiceByName("missing"))
	assert.Equal(t, []string{"atmcorr-luts", "pz-postgres"}, services.GetServiceNames())
}

func TestVcapCredentials_Errors(t *testing.T) {
	// Mock
	creds := VcapCredentials{"num": 1.5, "str": "x"}

	// Tested code
	_, errMissing := creds.String("nope")
	_, errType := creds.String("num")
	_, errFraction := creds.Int("num")
	_, errIntType := creds.Int("str")

	// Asserts
	assert.NotNil(t, errMissing)
	assert.NotNil(t, errType)
	assert.NotNil(t, errFraction)
	assert.NotNil(t, errIntType)
}

func TestParseVcapServices_Invalid(t *testing.T) {
	_, err := ParseVcapServices([]byte("not json"))
	assert.NotNil(t, err)
}

func TestLogging_WritesSessionAndSeverity(t *testing.T) {
	// Mock
	buf := &bytes.Buffer{}
	SetLogOutput(buf)
	defer SetLogOutput(os.Stderr)
	ctx := &BasicLogContext{}

	// Tested code
	LogInfo(ctx, "hello\nworld")
	LogAudit(ctx, LogAuditInput{Actor: "a", Action: "GET", Actee: "b", Message: "m"})
	err := LogSimpleErr(ctx, "failed: ", errors.New("boom"))

	// Asserts
	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, ctx.SessionID()))
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, `actor="a" action="GET" actee="b" m`)
	assert.Contains(t, out, "<11>1")
	assert.EqualError(t, err, "failed: boom")
}

func TestPsuUUID(t *testing.T) {
	a, errA := PsuUUID()
	b, errB := PsuUUID()
	assert.Nil(t, errA)
	assert.Nil(t, errB)
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

type echoIn struct {
	Value int `json:"value"`
}

type echoOut struct {
	Doubled int    `json:"doubled"`
	User    string `json:"user"`
}

func TestReqByObjJSON_Success(t *testing.T) {
	// Mock
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in echoIn
		json.NewDecoder(r.Body).Decode(&in)
		user, _, _ := r.BasicAuth()
		json.NewEncoder(w).Encode(echoOut{Doubled: in.Value * 2, User: user})
	}))
	defer server.Close()
	var out echoOut

	// Tested code
	_, err := ReqByObjJSON(context.Background(), "POST", server.URL, "alice:secret", echoIn{Value: 21}, &out)

	// Asserts
	assert.Nil(t, err)
	assert.Equal(t, 42, out.Doubled)
	assert.Equal(t, "alice", out.User)
}

func TestReqByObjJSON_ErrorStatus(t *testing.T) {
	// Mock
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	// Tested code
	_, err := ReqByObjJSON(context.Background(), "GET", server.URL, "", nil, nil)

	// Asserts
	assert.IsType(t, HTTPErr{}, err)
	assert.Equal(t, http.StatusBadGateway, err.(HTTPErr).Status)
}

func TestHTTPError(t *testing.T) {
	// Mock
	req := httptest.NewRequest("GET", "/corrections/x", nil)
	rec := httptest.NewRecorder()

	// Tested code
	HTTPError(req, rec, &BasicLogContext{}, "Scene not found: x", http.StatusNotFound)

	// Asserts
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Scene not found: x", rec.Body.String())
}

func TestConfigGetters(t *testing.T) {
	// Mock
	os.Setenv(ATMCORR_WORKERS, "7")
	os.Setenv(ATMCORR_SCENE_TIMEOUT, "30s")
	os.Setenv(ATMCORR_SCHEDULE_FREQUENCY, "1s")
	os.Setenv(EARTHDATA_USER, "user")
	os.Unsetenv(EARTHDATA_PASSWORD)
	defer func() {
		os.Unsetenv(ATMCORR_WORKERS)
		os.Unsetenv(ATMCORR_SCENE_TIMEOUT)
		os.Unsetenv(ATMCORR_SCHEDULE_FREQUENCY)
		os.Unsetenv(EARTHDATA_USER)
	}()

	// Asserts
	assert.Equal(t, 7, GetWorkerCount())
	assert.Equal(t, 30*time.Second, GetSceneTimeout())
	assert.Equal(t, defaultScheduleFrequency, GetScheduleFrequency())
	assert.Equal(t, "", GetEarthdataCredentials())

	os.Setenv(EARTHDATA_PASSWORD, "pw")
	defer os.Unsetenv(EARTHDATA_PASSWORD)
	assert.Equal(t, "user:pw", GetEarthdataCredentials())
}

func TestError_Log(t *testing.T) {
	err := Error{LogMsg: "bad body", SimpleMsg: "Ancillary service returned an unexpected response", URL: "http://x", HTTPStatus: 500}
	logged := err.Log(&BasicLogContext{}, "query")
	assert.EqualError(t, logged, "Ancillary service returned an unexpected response")
}
