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

// Package ancillary queries per-scene ozone, water vapour, wind and
// pressure from an ancillary data service
package ancillary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
)

var httpRequestKnownJSONWithObject = util.ReqByObjJSON

// Context is the context for this operation
type Context struct {
	AncillaryURL string
	// Credentials are "user:password" Earthdata credentials, sent as basic auth
	Credentials string
	sessionID   string
	once        sync.Once
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

// Input is the ancillary query for one location and time
type Input struct {
	Date string  `json:"date"`
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
}

// Values are the ancillary values found; a nil field was not available
type Values struct {
	Ozone      *float64 `json:"uoz,omitempty"`
	WaterVapor *float64 `json:"uwv,omitempty"`
	Wind       *float64 `json:"wind,omitempty"`
	Pressure   *float64 `json:"pressure,omitempty"`
}

// Service looks up ancillary values
type Service interface {
	Query(ctx context.Context, at time.Time, lon, lat float64) (Values, error)
}

// InputFor builds the query for an acquisition time and location
func InputFor(at time.Time, lon, lat float64) Input {
	return Input{Date: at.UTC().Format(model.AncillaryTimeLayout), Lon: lon, Lat: lat}
}

// Query implements Service against the configured URL
func (c *Context) Query(ctx context.Context, at time.Time, lon, lat float64) (Values, error) {
	var out Values
	if c.AncillaryURL == "" {
		return out, errors.New("No ancillary service URL is configured")
	}
	input := InputFor(at, lon, lat)

	util.LogAudit(c, util.LogAuditInput{
		Actor: util.AppName, Action: "POST", Actee: c.AncillaryURL,
		Message: fmt.Sprintf("Requesting ancillary data for %s at (%.4f, %.4f)", input.Date, lon, lat), Severity: util.INFO,
	})
	if _, err := httpRequestKnownJSONWithObject(ctx, "POST", c.AncillaryURL, c.Credentials, input, &out); err != nil {
		return Values{}, errors.Wrap(err, "Ancillary data request failed")
	}
	util.LogAudit(c, util.LogAuditInput{
		Actor: c.AncillaryURL, Action: "POST response", Actee: util.AppName, Message: "Retrieved ancillary data", Severity: util.INFO,
	})
	return out, nil
}

// QueryScene queries svc at the centroid of the scene footprint and its
// acquisition time
func QueryScene(ctx context.Context, svc Service, scene *model.Scene) (Values, error) {
	lon, lat, err := scene.Centroid()
	if err != nil {
		return Values{}, err
	}
	return svc.Query(ctx, scene.AcquiredDate, lon, lat)
}
