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

// Package scenes loads Sentinel-2 L1C products as TOA reflectance scenes.
package scenes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/venicegeo/bf-atmcorr/fileaccess"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/raster"
	"github.com/venicegeo/bf-atmcorr/util"
)

// MetadataFile is the name of the per-product metadata feature
const MetadataFile = "metadata.json"

// Source yields scenes until it returns io.EOF
type Source interface {
	Next(ctx context.Context) (*model.Scene, error)
}

// Context is the logging context of a scene source
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

// BandFile returns the TIFF name a band is stored under, e.g. "B01.tif"
func BandFile(band model.Band) string {
	id := band.ID()
	if len(id) == 1 {
		id = "0" + id
	}
	return "B" + id + ".tif"
}

// DirectorySource reads products laid out as <product>/metadata.json plus
// one 16-bit TIFF per band, in product order
type DirectorySource struct {
	Context
	Root     fileaccess.Root
	Products []string
	Bands    []model.Band
	// Resolution selects the band every other band is resampled onto
	Resolution int
	Engine     *raster.Memory

	mutex sync.Mutex
	next  int
}

// NewDirectorySource reads every band of the given products
func NewDirectorySource(root fileaccess.Root, products []string, resolution int, engine *raster.Memory) *DirectorySource {
	return &DirectorySource{Root: root, Products: products, Bands: model.AllBands, Resolution: resolution, Engine: engine}
}

// Next implements Source; it is safe for concurrent use
func (s *DirectorySource) Next(ctx context.Context) (*model.Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	if s.next >= len(s.Products) {
		s.mutex.Unlock()
		return nil, io.EOF
	}
	product := s.Products[s.next]
	s.next++
	s.mutex.Unlock()

	return s.Load(product)
}

// Load reads one product directory into a scene
func (s *DirectorySource) Load(product string) (*model.Scene, error) {
	util.LogAudit(&s.Context, util.LogAuditInput{Actor: util.AppName, Action: "read", Actee: s.Root.Path(product), Message: "Loading L1C product", Severity: util.INFO})
	data, err := s.Root.ReadObject(product, MetadataFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read metadata of %s", product)
	}
	md, err := ParseMetadata(data)
	if err != nil {
		return nil, errors.Wrap(err, product)
	}

	reference := model.ReferenceBandForResolution(s.Resolution)
	refLayer, err := s.readBand(product, reference, 0, 0)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.Bands))
	layers := make([]*raster.Layer, 0, len(s.Bands))
	for _, band := range s.Bands {
		layer := refLayer
		if band != reference {
			if layer, err = s.readBand(product, band, refLayer.Width, refLayer.Height); err != nil {
				return nil, err
			}
		}
		names = append(names, band.String())
		layers = append(layers, layer)
	}
	img, err := s.Engine.NewImage(names, layers)
	if err != nil {
		return nil, errors.Wrap(err, product)
	}

	id := path.Base(product)
	if IsValidSentinelID(md.ProductID) {
		id = md.ProductID
	}
	util.LogAudit(&s.Context, util.LogAuditInput{Actor: s.Root.Path(product), Action: "read", Actee: util.AppName,
		Message: fmt.Sprintf("Loaded %d bands at %dx%d; %+v", len(names), refLayer.Width, refLayer.Height, md.Geometry), Severity: util.INFO})
	return &model.Scene{
		ID:           id,
		ProductID:    TrimProductID(md.ProductID),
		Sensor:       model.SensorForProduct(md.ProductID),
		AcquiredDate: md.AcquiredDate,
		Footprint:    md.Footprint,
		Geometry:     md.Geometry,
		Resolution:   s.Resolution,
		Image:        img,
	}, nil
}

func (s *DirectorySource) readBand(product string, band model.Band, width, height int) (*raster.Layer, error) {
	data, err := s.Root.ReadObject(product, BandFile(band))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read band %s of %s", band, product)
	}
	layer, err := raster.ReadTIFF(bytes.NewReader(data), raster.ReflectanceScale, width, height)
	if err != nil {
		return nil, errors.Wrapf(err, "Band %s of %s", band, product)
	}
	return layer, nil
}

// DiscoverProducts lists the product directories below root, relative to it
func DiscoverProducts(root fileaccess.Root) ([]string, error) {
	keys, err := root.List()
	if err != nil {
		return nil, err
	}
	prefix := root.Path()
	products := []string{}
	for _, key := range keys {
		if path.Base(key) != MetadataFile {
			continue
		}
		dir := path.Dir(key)
		if prefix != "" && prefix != "." {
			dir = strings.TrimPrefix(strings.TrimPrefix(dir, prefix), "/")
		}
		if dir != "" && dir != "." {
			products = append(products, dir)
		}
	}
	sort.Strings(products)
	return products, nil
}
