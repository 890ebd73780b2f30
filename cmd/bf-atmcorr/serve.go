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
	"log"
	"net/http"
	"os"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/venicegeo/bf-atmcorr/handlers"
	"github.com/venicegeo/bf-atmcorr/util"
	cli "gopkg.in/urfave/cli.v1"
)

func getPortStr() string {
	if port, ok := os.LookupEnv("PORT"); ok {
		return ":" + port
	}
	return ":8080"
}

// newBaseRouter serves the health check and metrics
func newBaseRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(handlers.PrometheusMiddleware)
	router.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte("OK"))
	})
	router.Handle("/metrics", promhttp.Handler())
	return router
}

func createRouter(ctx util.LogContext) (*mux.Router, error) {
	router := newBaseRouter()

	if discoverHandler, err := handlers.NewDiscoverHandler(getDbConnectionFunc); err == nil {
		router.Handle("/corrections/discover", discoverHandler)
	} else {
		return nil, err
	}

	if correctionHandler, err := handlers.NewCorrectionHandler(getDbConnectionFunc); err == nil {
		router.Handle("/corrections/{id}", correctionHandler)
	} else {
		return nil, err
	}

	util.LogInfo(ctx, "Created correction routes")
	return router, nil
}

func withCORS(router *mux.Router) http.Handler {
	return gorillahandlers.CORS(
		gorillahandlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "HEAD", "OPTIONS"}),
		gorillahandlers.AllowedOrigins([]string{"*"}))(router)
}

func serveAction(*cli.Context) {
	logContext := &(util.BasicLogContext{})

	if router, err := createRouter(logContext); err == nil {
		launchServerFunc(getPortStr(), withCORS(router))
	} else {
		util.LogSimpleErr(logContext, "Failed to create router: ", err)
	}
}

var launchServerFunc = launchServer

func launchServer(portStr string, handler http.Handler) {
	server := http.Server{
		Addr:    portStr,
		Handler: handler,
	}

	log.Fatal(server.ListenAndServe())
}
