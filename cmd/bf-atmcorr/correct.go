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
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/venicegeo/bf-atmcorr/ancillary"
	"github.com/venicegeo/bf-atmcorr/batch"
	"github.com/venicegeo/bf-atmcorr/dsf"
	"github.com/venicegeo/bf-atmcorr/fileaccess"
	"github.com/venicegeo/bf-atmcorr/gas"
	"github.com/venicegeo/bf-atmcorr/lut"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
	"github.com/venicegeo/bf-atmcorr/rsr"
	"github.com/venicegeo/bf-atmcorr/scenes"
	"github.com/venicegeo/bf-atmcorr/settings"
	"github.com/venicegeo/bf-atmcorr/store"
	"github.com/venicegeo/bf-atmcorr/util"
	cli "gopkg.in/urfave/cli.v1"
)

func loadSettings(ctx util.LogContext, c *cli.Context) (settings.Settings, error) {
	path := c.String("settings")
	if path == "" {
		path = util.GetSettingsPath()
	}
	overrides, err := settings.ParseOverrides(c.StringSlice("set"))
	if err != nil {
		return settings.Settings{}, err
	}
	return settings.Load(ctx, path, overrides)
}

func buildCorrector(ctx util.LogContext, s settings.Settings, engine raster.Engine) (batch.Corrector, error) {
	region := util.GetAWSRegion()
	lutRoot, err := fileaccess.OpenRoot(util.GetLUTRoot(), region)
	if err != nil {
		return nil, err
	}
	rsrRoot, err := fileaccess.OpenRoot(util.GetRSRRoot(), region)
	if err != nil {
		return nil, err
	}

	var gasService gas.Service
	if gasURL := util.GetGasURL(); gasURL != "" {
		util.LogInfo(ctx, "Using gas transmittance service at "+gasURL)
		gasService = gas.NewClient(gasURL)
	} else {
		local, err := gas.LoadBeerLambert(rsrRoot, util.GetGasCoefficientsPath())
		if err != nil {
			return nil, err
		}
		gasService = local
	}

	corrector := &dsf.Corrector{
		Engine:    engine,
		Settings:  s,
		Models:    lut.NewLoader(lutRoot, util.GetLUTCacheDir()),
		Responses: rsr.NewLoader(rsrRoot),
		Gas:       gasService,
	}
	if s.AncillaryData {
		if ancillaryURL := util.GetAncillaryURL(); ancillaryURL != "" {
			corrector.Ancillary = &ancillary.Context{AncillaryURL: ancillaryURL, Credentials: util.GetEarthdataCredentials()}
		} else {
			util.LogAlert(ctx, "ancillary_data is set but no ancillary service is configured; using default atmosphere")
		}
	}
	return corrector, nil
}

var buildCorrectorFunc = buildCorrector

func workerCount(c *cli.Context) int {
	if workers := c.Int("workers"); workers > 0 {
		return workers
	}
	return util.GetWorkerCount()
}

// buildRunner wires the correction of scenes to their outputs. The returned
// function releases the database connection and flushes error reports.
func buildRunner(ctx util.LogContext, c *cli.Context, s settings.Settings, engine *raster.Memory) (*batch.Runner, func(), error) {
	corrector, err := buildCorrectorFunc(ctx, s, engine)
	if err != nil {
		return nil, nil, err
	}
	out := c.String("out")
	if out == "" {
		out = util.GetOutputRoot()
	}
	outRoot, err := fileaccess.OpenRoot(out, util.GetAWSRegion())
	if err != nil {
		return nil, nil, err
	}

	runner := &batch.Runner{
		Corrector:    corrector,
		Writer:       &batch.Writer{Root: outRoot, Engine: engine},
		Workers:      workerCount(c),
		SceneTimeout: util.GetSceneTimeout(),
	}
	closers := []func(){}
	if c.Bool("record") {
		db, err := getDbConnectionFunc(ctx)
		if err != nil {
			return nil, nil, err
		}
		runner.Record = store.DB{DB: db}.Record
		closers = append(closers, func() { db.Close() })
	}
	if dsn := util.GetSentryDSN(); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Release: version}); err != nil {
			util.LogSimpleErr(ctx, "Sentry initialization failed: ", err)
		} else {
			runner.ReportErrors = true
			closers = append(closers, func() { sentry.Flush(2 * time.Second) })
		}
	}
	return runner, func() {
		for _, closer := range closers {
			closer()
		}
	}, nil
}

func openInputRoot(c *cli.Context) (fileaccess.Root, error) {
	in := c.String("in")
	if in == "" {
		in = util.GetInputRoot()
	}
	return fileaccess.OpenRoot(in, util.GetAWSRegion())
}

func correctAction(c *cli.Context) error {
	ctx := &util.BasicLogContext{}
	s, err := loadSettings(ctx, c)
	if err != nil {
		return cli.NewExitError(util.LogSimpleErr(ctx, "Invalid settings: ", err), 1)
	}
	inRoot, err := openInputRoot(c)
	if err != nil {
		return cli.NewExitError(util.LogSimpleErr(ctx, "Could not open input root: ", err), 1)
	}
	products := []string(c.Args())
	if len(products) == 0 {
		if products, err = scenes.DiscoverProducts(inRoot); err != nil {
			return cli.NewExitError(util.LogSimpleErr(ctx, "Could not list products: ", err), 1)
		}
	}
	if len(products) == 0 {
		util.LogAlert(ctx, fmt.Sprintf("No products found under %s", inRoot))
		return nil
	}

	engine := raster.NewMemory()
	runner, closeRunner, err := buildRunner(ctx, c, s, engine)
	if err != nil {
		return cli.NewExitError(util.LogSimpleErr(ctx, "Could not set up correction: ", err), 1)
	}
	defer closeRunner()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	report := runner.Run(runCtx, scenes.NewDirectorySource(inRoot, products, s.TargetResolution, engine))
	util.LogInfo(ctx, "Batch finished:\n"+report.String())

	if report.SourceError != nil {
		return cli.NewExitError(fmt.Sprintf("Batch stopped early: %v", report.SourceError), 1)
	}
	if failed := report.Count(model.StatusFailed); failed > 0 {
		return cli.NewExitError(fmt.Sprintf("%d of %d scenes failed", failed, len(report.Scenes)), 1)
	}
	return nil
}
