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

// Package dsf implements dark spectrum fitting: the aerosol model and
// optical thickness are estimated from the darkest pixels of a scene, and
// the selected radiative-transfer model is inverted to surface reflectance.
package dsf

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
)

// Context is the logging context of one scene's correction
type Context struct {
	SceneID   string
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

// Conditions are the geometry and surface pressure a scene's tables are
// evaluated at
type Conditions struct {
	model.Geometry
	Pressure float64
}

func (c Conditions) String() string {
	return fmt.Sprintf("SZA=%.2f VZA=%.2f RAA=%.2f pressure=%.2f hPa", c.SZA, c.VZA, c.RAA, c.Pressure)
}

// ErrNoModelSelected is returned when no model has a finite selection score
var ErrNoModelSelected = errors.New("No aerosol model could be selected")

// ModelNotFoundError reports a fixed model that is not among the loaded models
type ModelNotFoundError struct {
	Name      string
	Available []string
}

func (err ModelNotFoundError) Error() string {
	return fmt.Sprintf("Aerosol model %s not found; available models: %s", err.Name, strings.Join(err.Available, ", "))
}
