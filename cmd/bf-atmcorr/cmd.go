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
	"fmt"

	cli "gopkg.in/urfave/cli.v1"
)

// version is replaced at build time with -ldflags "-X main.version=..."
var version = "1.0.0"

var runFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "settings",
		Usage: "Settings file; defaults to $ATMCORR_SETTINGS",
	},
	cli.StringSliceFlag{
		Name:  "set",
		Usage: "Override one setting, as key=value",
	},
	cli.StringFlag{
		Name:  "in",
		Usage: "Directory or s3:// prefix holding the L1C products; defaults to $ATMCORR_INPUT_ROOT",
	},
	cli.StringFlag{
		Name:  "out",
		Usage: "Directory or s3:// prefix receiving the corrected bands; defaults to $ATMCORR_OUTPUT_ROOT",
	},
	cli.IntFlag{
		Name:  "workers",
		Usage: "Number of scenes corrected concurrently; defaults to $ATMCORR_WORKERS",
	},
	cli.BoolFlag{
		Name:  "record",
		Usage: "Record every outcome in the corrections database",
	},
}

var commands = cli.Commands{
	cli.Command{
		Name:      "correct",
		Aliases:   []string{"c"},
		Usage:     "Correct the named products, or every product under the input root",
		ArgsUsage: "[product...]",
		Flags:     runFlags,
		Action:    correctAction,
	},
	cli.Command{
		Name:    "schedule",
		Aliases: []string{"sc"},
		Usage:   "Correct the input root on a timer and serve the batch status",
		Flags:   runFlags,
		Action:  scheduleAction,
	},
	cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Launch the bf-atmcorr webserver",
		Action:  serveAction,
	},
	cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Update database schema",
		Action:  migrateDatabaseAction,
	},
	cli.Command{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "Print the version number of the bf-atmcorr CLI",
		Action:  versionAction,
	},
}

func createCliApp() (app *cli.App) {
	app = cli.NewApp()
	app.Name = "bf-atmcorr"
	app.Usage = "Dark spectrum fitting atmospheric correction of Sentinel-2 scenes"
	app.Version = version
	app.Commands = commands
	return
}

func versionAction(*cli.Context) {
	fmt.Println(version)
}
