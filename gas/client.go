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

package gas

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/rsr"
	"github.com/venicegeo/bf-atmcorr/util"
)

var httpRequestKnownJSONWithObject = util.ReqByObjJSON

// Context is the context for a remote gas transmittance service
type Context struct {
	GasURL    string
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

type request struct {
	Input
	Sensor string   `json:"sensor"`
	Bands  []string `json:"bands"`
}

type response struct {
	Transmittance map[string]float64 `json:"tt_gas"`
}

// Client queries a remote service for gas transmittance
type Client struct {
	Context *Context
}

// NewClient creates a client for the service at url
func NewClient(url string) *Client {
	return &Client{Context: &Context{GasURL: url}}
}

// Transmittance implements Service
func (c *Client) Transmittance(ctx context.Context, in Input, rsrd *rsr.Response) (map[model.Band]float64, error) {
	req := request{Input: in, Sensor: string(rsrd.Sensor), Bands: make([]string, len(rsrd.Bands))}
	for i, band := range rsrd.Bands {
		req.Bands[i] = band.ID()
	}

	var out response
	util.LogAudit(c.Context, util.LogAuditInput{
		Actor: util.AppName, Action: "POST", Actee: c.Context.GasURL, Message: "Requesting gas transmittance", Severity: util.INFO,
	})
	if _, err := httpRequestKnownJSONWithObject(ctx, "POST", c.Context.GasURL, "", req, &out); err != nil {
		return nil, errors.Wrap(err, "Gas transmittance request failed")
	}
	util.LogAudit(c.Context, util.LogAuditInput{
		Actor: c.Context.GasURL, Action: "POST response", Actee: util.AppName, Message: "Retrieved gas transmittance", Severity: util.INFO,
	})

	result := make(map[model.Band]float64, len(rsrd.Bands))
	for _, band := range rsrd.Bands {
		tt, ok := out.Transmittance[band.ID()]
		if !ok {
			return nil, fmt.Errorf("Gas transmittance response has no value for band %s", band)
		}
		result[band] = tt
	}
	return result, nil
}
