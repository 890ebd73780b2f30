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

package lut

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/fileaccess"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
)

// Loader loads lookup tables laid out as <root>/<sensor>/<name>.nc and keeps
// every loaded table for the life of the process. Tables on S3 are first
// downloaded into CacheDir, since NetCDF is read by random access.
type Loader struct {
	Root     fileaccess.Root
	CacheDir string

	mutex  sync.Mutex
	models map[string]*Model
	glints map[string]*GlintModel
}

// NewLoader creates a loader over root
func NewLoader(root fileaccess.Root, cacheDir string) *Loader {
	return &Loader{
		Root:     root,
		CacheDir: cacheDir,
		models:   map[string]*Model{},
		glints:   map[string]*GlintModel{},
	}
}

// GlintModelName is the file name of one sky-glint model, e.g.
// ACOLITE-RSKY-202102-82W-MOD1
func GlintModelName(base string, index int) string {
	return fmt.Sprintf("%s-MOD%d", base, index)
}

// LoadModels returns the named aerosol models for a sensor
func (l *Loader) LoadModels(ctx util.LogContext, sensor model.SensorID, names []string) (Table, error) {
	if len(names) == 0 {
		return nil, errors.New("No aerosol models were requested")
	}
	table := Table{}
	for _, name := range names {
		m, err := l.loadModel(ctx, sensor, name)
		if err != nil {
			return nil, err
		}
		table[name] = m
	}
	return table, nil
}

// LoadGlintModels returns the sky-glint models with the given indices for a sensor
func (l *Loader) LoadGlintModels(ctx util.LogContext, indices []int, base string, sensor model.SensorID) (GlintTable, error) {
	table := GlintTable{}
	for _, index := range indices {
		m, err := l.loadGlintModel(ctx, sensor, GlintModelName(base, index))
		if err != nil {
			return nil, err
		}
		if m.Index != index {
			return nil, fmt.Errorf("Glint model %s declares index %d, expected %d", m.Name, m.Index, index)
		}
		table[index] = m
	}
	return table, nil
}

func (l *Loader) loadModel(ctx util.LogContext, sensor model.SensorID, name string) (*Model, error) {
	key := string(sensor) + "/" + name
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if m, ok := l.models[key]; ok {
		return m, nil
	}

	var m *Model
	err := l.withFile(ctx, sensor, name, func(f *os.File) (err error) {
		m, err = ReadModel(f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m.Name != name {
		return nil, fmt.Errorf("LUT file %s declares model name %s", name, m.Name)
	}
	l.models[key] = m
	return m, nil
}

func (l *Loader) loadGlintModel(ctx util.LogContext, sensor model.SensorID, name string) (*GlintModel, error) {
	key := string(sensor) + "/" + name
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if m, ok := l.glints[key]; ok {
		return m, nil
	}

	var m *GlintModel
	err := l.withFile(ctx, sensor, name, func(f *os.File) (err error) {
		m, err = ReadGlintModel(f)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.glints[key] = m
	return m, nil
}

func (l *Loader) withFile(ctx util.LogContext, sensor model.SensorID, name string, read func(*os.File) error) error {
	fileName := name + ".nc"
	location := l.Root.Path(string(sensor), fileName)
	util.LogAudit(ctx, util.LogAuditInput{Actor: util.AppName, Action: "read", Actee: l.Root.String() + "/" + string(sensor) + "/" + fileName, Message: "Loading lookup table", Severity: util.INFO})

	localPath := filepath.Join(l.Root.Bucket, filepath.FromSlash(location))
	if l.Root.IsRemote() {
		localPath = filepath.Join(l.CacheDir, string(sensor), fileName)
		if _, err := os.Stat(localPath); os.IsNotExist(err) {
			data, err := l.Root.Access.ReadObject(l.Root.Bucket, location)
			if err != nil {
				return errors.Wrapf(err, "Failed to download LUT %s for %s", name, sensor)
			}
			if err = os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
				return errors.Wrap(err, "Failed to create LUT cache directory")
			}
			if err = os.WriteFile(localPath, data, 0644); err != nil {
				return errors.Wrap(err, "Failed to cache LUT")
			}
		}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "Failed to open LUT %s for %s", name, sensor)
	}
	defer f.Close()
	if err = read(f); err != nil {
		return errors.Wrapf(err, "Failed to read LUT %s for %s", name, sensor)
	}
	util.LogAudit(ctx, util.LogAuditInput{Actor: l.Root.String(), Action: "read response", Actee: util.AppName, Message: "Loaded lookup table " + name, Severity: util.INFO})
	return nil
}
