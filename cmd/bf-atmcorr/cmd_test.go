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

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/venicegeo/bf-atmcorr/batch"
	"github.com/venicegeo/bf-atmcorr/dsf"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
	"github.com/venicegeo/bf-atmcorr/scenes"
	"github.com/venicegeo/bf-atmcorr/settings"
	"github.com/venicegeo/bf-atmcorr/util"
	cli "gopkg.in/urfave/cli.v1"
)

// openLazyDB returns a handle that never connects unless queried
func openLazyDB(util.LogContext) (*sql.DB, error) {
	return sql.Open("postgres", "postgres://localhost:1/none?sslmode=disable")
}

func TestMain(m *testing.M) {
	os.Unsetenv(util.SENTRY_DSN)
	os.Unsetenv(util.ATMCORR_SETTINGS)
	getDbConnectionFunc = openLazyDB
	os.Exit(m.Run())
}

func TestServe_CallsLaunchServer(t *testing.T) {
	success := make(chan bool)
	launchServerFunc = func(portStr string, handler http.Handler) { // Mock
		success <- true
	}
	timer := time.NewTimer(1 * time.Second)

	go serveAction(nil)

	select {
	case <-success:
	case <-timer.C:
		assert.Fail(t, "launchServer not called within 1 second of serve()")
	}
}

func TestServe_BaseHealthCheckEndpoint(t *testing.T) {
	body := make(chan string)
	launchServerFunc = func(portStr string, handler http.Handler) { // Mock
		req := httptest.NewRequest("GET", "/", nil)
		response := httptest.NewRecorder()
		handler.ServeHTTP(response, req)
		responseBody, _ := ioutil.ReadAll(response.Result().Body)
		body <- string(responseBody)
	}
	timer := time.NewTimer(1 * time.Second)

	go serveAction(nil)

	select {
	case got := <-body:
		assert.Equal(t, "OK", got)
	case <-timer.C:
		assert.Fail(t, "launchServer not called within 1 second of serve()")
	}
}

func TestCreateRouter_Routes(t *testing.T) {
	router, err := createRouter(&util.BasicLogContext{})
	assert.Nil(t, err)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	metrics := httptest.NewRecorder()
	router.ServeHTTP(metrics, httptest.NewRequest("GET", "/metrics", nil))
	badQuery := httptest.NewRecorder()
	router.ServeHTTP(badQuery, httptest.NewRequest("GET", "/corrections/discover?limit=-1", nil))

	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "http_requests_total")
	assert.Equal(t, http.StatusBadRequest, badQuery.Code)
}

func TestCreateRouter_DBError(t *testing.T) {
	// Mock
	getDbConnectionFunc = func(util.LogContext) (*sql.DB, error) { return nil, errors.New("no database") }
	defer func() { getDbConnectionFunc = openLazyDB }()

	// Tested code
	router, err := createRouter(&util.BasicLogContext{})

	// Asserts
	assert.Nil(t, router)
	assert.EqualError(t, err, "no database")
}

func TestMigrate_RunsUp(t *testing.T) {
	// Mock
	var command string
	gooseRunFunc = func(cmd string, db *sql.DB, dir string, args ...string) error {
		command = cmd
		return nil
	}

	// Tested code
	err := migrateDatabaseAction(nil)

	// Asserts
	assert.Nil(t, err)
	assert.Equal(t, "up", command)
}

func TestMigrate_Failure(t *testing.T) {
	gooseRunFunc = func(string, *sql.DB, string, ...string) error { return errors.New("bad migration") }

	err := migrateDatabaseAction(nil)

	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "bad migration")
}

func TestCreateCliApp_Commands(t *testing.T) {
	app := createCliApp()
	for _, name := range []string{"correct", "schedule", "serve", "migrate", "version"} {
		assert.NotNil(t, app.Command(name), name)
	}
	assert.Equal(t, version, app.Version)
}

type fakeCorrector struct{}

func (fakeCorrector) CorrectScene(ctx context.Context, scene *model.Scene) (*dsf.Result, error) {
	return nil, errors.New("not implemented")
}

func newRunContext(t *testing.T, values map[string]string, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range runFlags {
		f.Apply(set)
	}
	for name, value := range values {
		assert.Nil(t, set.Set(name, value))
	}
	assert.Nil(t, set.Parse(args))
	return cli.NewContext(createCliApp(), set, nil)
}

func TestBuildRunner(t *testing.T) {
	// Mock
	out, _ := ioutil.TempDir("", "atmcorr-out")
	defer os.RemoveAll(out)
	buildCorrectorFunc = func(util.LogContext, settings.Settings, raster.Engine) (batch.Corrector, error) {
		return fakeCorrector{}, nil
	}
	defer func() { buildCorrectorFunc = buildCorrector }()
	c := newRunContext(t, map[string]string{"out": out, "workers": "3", "record": "true"})

	// Tested code
	runner, closeRunner, err := buildRunner(&util.BasicLogContext{}, c, settings.Default(), raster.NewMemory())

	// Asserts
	assert.Nil(t, err)
	defer closeRunner()
	assert.Equal(t, 3, runner.Workers)
	assert.Equal(t, out, runner.Writer.Root.Bucket)
	assert.NotNil(t, runner.Record)
	assert.False(t, runner.ReportErrors)
	assert.Equal(t, fakeCorrector{}, runner.Corrector)
}

func TestLoadSettings_Overrides(t *testing.T) {
	c := newRunContext(t, map[string]string{"set": "s2_target_res=20"})

	s, err := loadSettings(&util.BasicLogContext{}, c)

	assert.Nil(t, err)
	assert.Equal(t, 20, s.TargetResolution)
	assert.Equal(t, settings.Default().LUTs, s.LUTs)
}

func TestCorrectAction_NoProducts(t *testing.T) {
	// Mock
	in, _ := ioutil.TempDir("", "atmcorr-in")
	defer os.RemoveAll(in)
	c := newRunContext(t, map[string]string{"in": in})

	// Tested code
	err := correctAction(c)

	// Asserts
	assert.Nil(t, err)
}

func TestCorrectAction_FailedScenes(t *testing.T) {
	// Mock
	in, _ := ioutil.TempDir("", "atmcorr-in")
	defer os.RemoveAll(in)
	assert.Nil(t, os.MkdirAll(in+"/S2A_TEST", 0755))
	assert.Nil(t, ioutil.WriteFile(in+"/S2A_TEST/"+scenes.MetadataFile, []byte(`{"type":"Feature","properties":{}}`), 0644))
	buildCorrectorFunc = func(util.LogContext, settings.Settings, raster.Engine) (batch.Corrector, error) {
		return fakeCorrector{}, nil
	}
	defer func() { buildCorrectorFunc = buildCorrector }()
	c := newRunContext(t, map[string]string{"in": in, "out": in + "/out"})

	// Tested code
	err := correctAction(c)

	// Asserts
	assert.NotNil(t, err)
}

func TestBatchRouter_Status(t *testing.T) {
	// Mock
	scheduler := batch.NewScheduler(&batch.Runner{}, func(context.Context) (scenes.Source, error) {
		return nil, errors.New("no scenes")
	})
	messages := make(chan string, 5)
	done := make(chan bool)
	go func() {
		scheduler.RunWhile(messages, time.Hour)
		done <- true
	}()
	router := newBaseRouter()
	addBatchRoutes(router, scheduler, messages)

	// Tested code
	status := httptest.NewRecorder()
	router.ServeHTTP(status, httptest.NewRequest("GET", "/batch/", nil))
	wrongMethod := httptest.NewRecorder()
	router.ServeHTTP(wrongMethod, httptest.NewRequest("GET", "/batch/start", nil))
	started := httptest.NewRecorder()
	router.ServeHTTP(started, httptest.NewRequest("POST", "/batch/start", nil))
	close(messages)

	// Asserts
	assert.Contains(t, status.Body.String(), "Sleeping until")
	assert.Equal(t, http.StatusMethodNotAllowed, wrongMethod.Code)
	assert.Contains(t, started.Body.String(), "Begin batch request submitted.")
	<-done
}
