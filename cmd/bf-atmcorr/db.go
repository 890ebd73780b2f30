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
	"database/sql"
	"fmt"
	"net/url"
	"os"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/util"
)

const connectionStringEnv = "DATABASE_URL"
const vcapServicesEnv = "VCAP_SERVICES"
const pzPostgresService = "pz-postgres"
const postgresLabel = "postgres"

// connectionStringFromVcap finds the postgres service bound to the
// application, by instance name first and then by broker label. Brokers that
// publish no "uri" credential are assembled from their connection parts.
func connectionStringFromVcap() (string, error) {
	services, err := util.ParseVcapServices([]byte(os.Getenv(vcapServicesEnv)))
	if err != nil {
		return "", errors.Wrap(err, "No valid VCAP_SERVICES found")
	}
	service := services.FindServiceByName(pzPostgresService)
	if service == nil {
		service = services.FindServiceByLabel(postgresLabel)
	}
	if service == nil {
		return "", fmt.Errorf("Service %q not found in VCAP_SERVICES; available services: %v",
			pzPostgresService, services.GetServiceNames())
	}
	if uri, err := service.Credentials.String("uri"); err == nil {
		return uri, nil
	}
	return connectionStringFromParts(service.Credentials)
}

func connectionStringFromParts(creds util.VcapCredentials) (string, error) {
	parts := map[string]string{}
	for _, key := range []string{"hostname", "name", "username", "password"} {
		value, err := creds.String(key)
		if err != nil {
			return "", errors.Wrap(err, "Incomplete postgres credentials")
		}
		parts[key] = value
	}
	port, err := creds.Int("port")
	if err != nil {
		return "", errors.Wrap(err, "Incomplete postgres credentials")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(parts["username"], parts["password"]),
		Host:   fmt.Sprintf("%s:%d", parts["hostname"], port),
		Path:   "/" + parts["name"],
	}
	return u.String(), nil
}

// getDbConnection opens and pings the corrections database. The pool holds
// one connection per scene worker plus two for the HTTP handlers.
func getDbConnection(ctx util.LogContext) (*sql.DB, error) {
	connStr := os.Getenv(connectionStringEnv)
	if connStr == "" {
		util.LogInfo(ctx, "No DB connection found in DATABASE_URL, checking VCAP_SERVICES")
		var err error
		if connStr, err = connectionStringFromVcap(); err != nil {
			return nil, errors.Wrap(err, "Could not get DB connection from DATABASE_URL or VCAP_SERVICES")
		}
	}

	dbURI, err := url.Parse(connStr)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid database URL")
	}
	// pq requires SSL unless sslmode says otherwise
	params := dbURI.Query()
	if params.Get("sslmode") == "" {
		params.Set("sslmode", "disable")
	}
	dbURI.RawQuery = params.Encode()

	util.LogInfo(ctx, fmt.Sprintf("Creating database connection at: `%s`", dbURI.Redacted()))
	db, err := sql.Open("postgres", dbURI.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(util.GetWorkerCount() + 2)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Database is unreachable")
	}
	return db, nil
}

var getDbConnectionFunc = getDbConnection
