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
	"github.com/pressly/goose"
	cli "gopkg.in/urfave/cli.v1"

	_ "github.com/venicegeo/bf-atmcorr/migrations"
	"github.com/venicegeo/bf-atmcorr/util"
)

var gooseRunFunc = goose.Run

func migrateDatabaseAction(*cli.Context) error {
	ctx := &util.BasicLogContext{}
	database, err := getDbConnectionFunc(ctx)
	if err != nil {
		return cli.NewExitError(util.LogSimpleErr(ctx, "Could not open database connection: ", err), 1)
	}
	defer database.Close()

	if err = gooseRunFunc("up", database, "."); err != nil {
		return cli.NewExitError(util.LogSimpleErr(ctx, "Migration failed: ", err), 1)
	}
	util.LogInfo(ctx, "Database schema is up to date")
	return nil
}
