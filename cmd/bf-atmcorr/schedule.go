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

	"github.com/gorilla/mux"
	"github.com/venicegeo/bf-atmcorr/batch"
	"github.com/venicegeo/bf-atmcorr/handlers"
	"github.com/venicegeo/bf-atmcorr/raster"
	"github.com/venicegeo/bf-atmcorr/scenes"
	"github.com/venicegeo/bf-atmcorr/util"
	cli "gopkg.in/urfave/cli.v1"
)

func addBatchRoutes(router *mux.Router, scheduler *batch.Scheduler, messageChan chan<- string) {
	router.Handle("/batch/", handlers.BatchStatusHandler{Scheduler: scheduler}).Methods("GET")
	router.Handle("/batch/start", handlers.BatchStartHandler{Scheduler: scheduler, MessageChan: messageChan}).Methods("POST")
	router.Handle("/batch/cancel", handlers.BatchCancelHandler{Scheduler: scheduler, MessageChan: messageChan}).Methods("POST")
}

//scheduleAction starts the batch loop and an http server reporting on it
func scheduleAction(c *cli.Context) error {
	ctx := &util.BasicLogContext{}
	s, err := loadSettings(ctx, c)
	if err != nil {
		return cli.NewExitError(util.LogSimpleErr(ctx, "Invalid settings: ", err), 1)
	}
	inRoot, err := openInputRoot(c)
	if err != nil {
		return cli.NewExitError(util.LogSimpleErr(ctx, "Could not open input root: ", err), 1)
	}
	engine := raster.NewMemory()
	runner, closeRunner, err := buildRunner(ctx, c, s, engine)
	if err != nil {
		return cli.NewExitError(util.LogSimpleErr(ctx, "Could not set up correction: ", err), 1)
	}
	defer closeRunner()

	scheduler := batch.NewScheduler(runner, func(context.Context) (scenes.Source, error) {
		products, err := scenes.DiscoverProducts(inRoot)
		if err != nil {
			return nil, err
		}
		util.LogInfo(ctx, fmt.Sprintf("Found %d products under %s", len(products), inRoot))
		return scenes.NewDirectorySource(inRoot, products, s.TargetResolution, engine), nil
	})

	//Create the channel that sends the start/stop messages to the Scheduler.
	messageChan := make(chan string, 5) //small buffer.
	go scheduler.RunWhile(messageChan, util.GetScheduleFrequency())

	router := newBaseRouter()
	if c.Bool("record") {
		if router, err = createRouter(ctx); err != nil {
			return cli.NewExitError(util.LogSimpleErr(ctx, "Failed to create router: ", err), 1)
		}
	}
	addBatchRoutes(router, scheduler, messageChan)
	util.LogInfo(ctx, "Listening on port "+getPortStr())
	launchServerFunc(getPortStr(), withCORS(router))
	return nil
}
