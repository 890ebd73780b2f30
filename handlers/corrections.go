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

// Package handlers serves recorded corrections and the batch loop over HTTP.
package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/store"
	"github.com/venicegeo/bf-atmcorr/util"
)

// CorrectionStore reads recorded corrections
type CorrectionStore interface {
	GetCorrection(sceneID string) (*store.Correction, error)
	ListCorrections(filter store.Filter) ([]store.Correction, error)
}

// Context is the logging context of a handler
type Context struct {
	sessionID string
	once      sync.Once
}

// AppName returns the application name
func (c *Context) AppName() string {
	return util.AppName
}

// SessionID returns a Session ID, creating it once
func (c *Context) SessionID() string {
	c.once.Do(func() {
		if c.sessionID == "" {
			c.sessionID, _ = util.PsuUUID()
		}
	})
	return c.sessionID
}

// LogRootDir returns an empty string
func (c *Context) LogRootDir() string {
	return ""
}

// CorrectionHandler is a handler for /corrections/{id}
// @Title correctionHandler
// @Description returns the recorded correction of one scene
// @Param   id            path   string  true        "The ID of the corrected scene"
// @Success 200 {object}  geojson.Feature
// @Failure 404 {object}  string
// @Router /corrections/{id} [get]
type CorrectionHandler struct {
	Store CorrectionStore
}

// NewCorrectionHandler creates a handler over a database connection
func NewCorrectionHandler(connectionProvider store.ConnectionProvider) (*CorrectionHandler, error) {
	db, err := connectionProvider(&util.BasicLogContext{})
	if err != nil {
		return nil, err
	}
	return &CorrectionHandler{Store: store.DB{DB: db}}, nil
}

func (h CorrectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := &Context{}
	sceneID, ok := mux.Vars(r)["id"]
	if !ok || sceneID == "" {
		message := "No scene ID found in URL"
		util.LogAlert(ctx, message)
		util.HTTPError(r, w, ctx, message, http.StatusNotFound)
		return
	}

	correction, err := h.Store.GetCorrection(sceneID)
	if errors.Cause(err) == sql.ErrNoRows {
		message := fmt.Sprintf("Correction not found: %s", sceneID)
		util.LogInfo(ctx, message)
		util.HTTPError(r, w, ctx, message, http.StatusNotFound)
		return
	}
	if err != nil {
		message := fmt.Sprintf("Server error searching for correction: %v", err)
		util.LogSimpleErr(ctx, message, err)
		util.HTTPError(r, w, ctx, message, http.StatusInternalServerError)
		return
	}

	result, err := correction.Result()
	if err != nil {
		message := fmt.Sprintf("Stored correction of %s is invalid: %v", sceneID, err)
		util.LogSimpleErr(ctx, message, err)
		util.HTTPError(r, w, ctx, message, http.StatusInternalServerError)
		return
	}
	feature, err := result.GeoJSONFeature()
	if err != nil {
		message := fmt.Sprintf("Error converting correction to geojson: %v", err)
		util.LogSimpleErr(ctx, message, err)
		util.HTTPError(r, w, ctx, message, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write([]byte(feature.String()))
}

// DiscoverHandler is a handler for /corrections/discover
// @Title discoverHandler
// @Description lists recorded corrections, most recent first
// @Param   sensor          query   string  false        "S2A_MSI or S2B_MSI"
// @Param   model           query   string  false        "The selected aerosol model"
// @Param   status          query   string  false        "corrected or failed"
// @Param   since           query   string  false        "The minimum processing time, as RFC 3339"
// @Param   limit           query   int     false        "The maximum number of results"
// @Success 200 {object}  geojson.FeatureCollection
// @Failure 400 {object}  string
// @Router /corrections/discover [get]
type DiscoverHandler struct {
	Store CorrectionStore
}

// NewDiscoverHandler creates a handler over a database connection
func NewDiscoverHandler(connectionProvider store.ConnectionProvider) (*DiscoverHandler, error) {
	db, err := connectionProvider(&util.BasicLogContext{})
	if err != nil {
		return nil, err
	}
	return &DiscoverHandler{Store: store.DB{DB: db}}, nil
}

func parseFilter(r *http.Request) (store.Filter, error) {
	filter := store.Filter{Model: r.FormValue("model"), Status: r.FormValue("status")}
	if sensor := r.FormValue("sensor"); sensor != "" {
		parsed, err := model.ParseSensor(sensor)
		if err != nil {
			return filter, err
		}
		filter.Sensor = string(parsed)
	}
	if since := r.FormValue("since"); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return filter, fmt.Errorf("Since value of %v is invalid", since)
		}
		filter.Since = parsed
	}
	if limit := r.FormValue("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil || parsed < 1 {
			return filter, fmt.Errorf("Limit value of %v is invalid", limit)
		}
		filter.Limit = parsed
	}
	return filter, nil
}

func (h DiscoverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := &Context{}
	filter, err := parseFilter(r)
	if err != nil {
		util.LogSimpleErr(ctx, err.Error(), err)
		util.HTTPError(r, w, ctx, err.Error(), http.StatusBadRequest)
		return
	}

	corrections, err := h.Store.ListCorrections(filter)
	if err != nil {
		message := fmt.Sprintf("Error searching for corrections: %v", err)
		util.LogSimpleErr(ctx, message, err)
		util.HTTPError(r, w, ctx, message, http.StatusInternalServerError)
		return
	}

	multiResult := model.MultiResult{FeatureCreators: make([]model.GeoJSONFeatureCreator, len(corrections))}
	for i, correction := range corrections {
		if multiResult.FeatureCreators[i], err = correction.Result(); err != nil {
			message := fmt.Sprintf("Stored correction of %s is invalid: %v", correction.SceneID, err)
			util.LogSimpleErr(ctx, message, err)
			util.HTTPError(r, w, ctx, message, http.StatusInternalServerError)
			return
		}
	}
	featureCollection, err := multiResult.GeoJSONFeatureCollection()
	if err != nil {
		message := fmt.Sprintf("Error converting to feature collection: %v", err)
		util.LogSimpleErr(ctx, message, err)
		util.HTTPError(r, w, ctx, message, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write([]byte(featureCollection.String()))
}
