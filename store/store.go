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

// Package store persists correction outcomes to the corrections table.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
	"github.com/venicegeo/geojson-go/geojson"
)

//ConnectionProvider is a function that can provide a database connection.
type ConnectionProvider func(util.LogContext) (*sql.DB, error)

// Execer is satisfied by *sql.DB and *sql.Tx
type Execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Queryer is satisfied by *sql.DB and *sql.Tx
type Queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// Correction is one row of public.corrections
type Correction struct {
	SceneID        string
	ProductID      string
	Sensor         string
	Acquired       time.Time
	Model          sql.NullString
	AOT            sql.NullFloat64
	Criterion      sql.NullString
	Score          sql.NullFloat64
	SZA            float64
	VZA            float64
	RAA            float64
	Pressure       sql.NullFloat64
	Ozone          sql.NullFloat64
	WaterVapor     sql.NullFloat64
	Wind           sql.NullFloat64
	GlintCorrected bool
	Status         string
	Message        string
	ProcessedAt    time.Time
	Bounds         []byte
	DarkSpectrum   []byte
}

// FromResult flattens a correction result into a row
func FromResult(result model.CorrectionResult) (Correction, error) {
	c := Correction{
		SceneID:        result.SceneID,
		ProductID:      result.ProductID,
		Sensor:         string(result.Sensor),
		Acquired:       result.AcquiredDate,
		SZA:            result.Geometry.SZA,
		VZA:            result.Geometry.VZA,
		RAA:            result.Geometry.RAA,
		GlintCorrected: result.GlintCorrected,
		Status:         result.Status,
		Message:        result.Message,
		ProcessedAt:    result.ProcessedAt,
	}
	if c.ProcessedAt.IsZero() {
		c.ProcessedAt = time.Now().UTC()
	}
	if result.Atmosphere != nil {
		c.Pressure = sql.NullFloat64{Float64: result.Atmosphere.Pressure, Valid: true}
		c.Ozone = sql.NullFloat64{Float64: result.Atmosphere.Ozone, Valid: true}
		c.WaterVapor = sql.NullFloat64{Float64: result.Atmosphere.WaterVapor, Valid: true}
		c.Wind = sql.NullFloat64{Float64: result.Atmosphere.Wind, Valid: true}
	}
	if sel := result.AerosolSelection; sel != nil {
		c.Model = sql.NullString{String: sel.Model, Valid: true}
		c.AOT = sql.NullFloat64{Float64: sel.AOT, Valid: true}
		c.Criterion = sql.NullString{String: sel.Criterion, Valid: true}
		c.Score = sql.NullFloat64{Float64: sel.Score, Valid: true}
		if sel.DarkSpectrum != nil {
			var err error
			if c.DarkSpectrum, err = json.Marshal(sel.DarkSpectrum); err != nil {
				return Correction{}, err
			}
		}
	}
	if result.Footprint != nil {
		var err error
		if c.Bounds, err = json.Marshal(result.Footprint); err != nil {
			return Correction{}, err
		}
	}
	return c, nil
}

// Result rebuilds the correction result a row was recorded from
func (c Correction) Result() (model.CorrectionResult, error) {
	result := model.CorrectionResult{
		SceneID:        c.SceneID,
		ProductID:      c.ProductID,
		Sensor:         model.SensorID(c.Sensor),
		AcquiredDate:   c.Acquired.UTC(),
		ProcessedAt:    c.ProcessedAt.UTC(),
		GlintCorrected: c.GlintCorrected,
		Status:         c.Status,
		Message:        c.Message,
		Geometry:       model.Geometry{SZA: c.SZA, VZA: c.VZA, RAA: c.RAA},
	}
	if c.Pressure.Valid {
		result.Atmosphere = &model.Atmosphere{
			Pressure:   c.Pressure.Float64,
			Ozone:      c.Ozone.Float64,
			WaterVapor: c.WaterVapor.Float64,
			Wind:       c.Wind.Float64,
		}
	}
	if c.Model.Valid {
		result.AerosolSelection = &model.AerosolSelection{
			Model:     c.Model.String,
			AOT:       c.AOT.Float64,
			Criterion: c.Criterion.String,
			Score:     c.Score.Float64,
			Fixed:     c.Criterion.String == "fixed",
		}
		if len(c.DarkSpectrum) > 0 {
			if err := json.Unmarshal(c.DarkSpectrum, &result.AerosolSelection.DarkSpectrum); err != nil {
				return model.CorrectionResult{}, err
			}
		}
	}
	if len(c.Bounds) > 0 {
		footprint, err := geojson.Parse(c.Bounds)
		if err != nil {
			return model.CorrectionResult{}, err
		}
		result.Footprint = footprint
	}
	return result, nil
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

// InsertCorrection records a correction, replacing any earlier record of
// the same scene
func InsertCorrection(tx Execer, c Correction) error {
	_, err := tx.Exec(`
		INSERT INTO public.corrections
		(scene_id, product_id, sensor, acquired, model, aot, criterion, score,
		 sza, vza, raa, pressure, uoz, uwv, wind, glint_corrected, status, message,
		 processed_at, bounds, dark_spectrum)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (scene_id) DO UPDATE SET
		product_id=EXCLUDED.product_id, sensor=EXCLUDED.sensor, acquired=EXCLUDED.acquired,
		model=EXCLUDED.model, aot=EXCLUDED.aot, criterion=EXCLUDED.criterion, score=EXCLUDED.score,
		sza=EXCLUDED.sza, vza=EXCLUDED.vza, raa=EXCLUDED.raa, pressure=EXCLUDED.pressure,
		uoz=EXCLUDED.uoz, uwv=EXCLUDED.uwv, wind=EXCLUDED.wind, glint_corrected=EXCLUDED.glint_corrected,
		status=EXCLUDED.status, message=EXCLUDED.message, processed_at=EXCLUDED.processed_at,
		bounds=EXCLUDED.bounds, dark_spectrum=EXCLUDED.dark_spectrum`,
		c.SceneID, c.ProductID, c.Sensor, pq.NullTime{Time: c.Acquired, Valid: !c.Acquired.IsZero()},
		c.Model, c.AOT, c.Criterion, c.Score,
		c.SZA, c.VZA, c.RAA, c.Pressure, c.Ozone, c.WaterVapor, c.Wind, c.GlintCorrected, c.Status, c.Message,
		c.ProcessedAt, nullableJSON(c.Bounds), nullableJSON(c.DarkSpectrum),
	)
	if err != nil {
		return fmt.Errorf("Failed to record correction of %s: %v", c.SceneID, err)
	}
	return nil
}

const selectColumns = `scene_id, product_id, sensor, acquired, model, aot, criterion, score,
	sza, vza, raa, pressure, uoz, uwv, wind, glint_corrected, status, message,
	processed_at, bounds, dark_spectrum`

func scanCorrection(rows *sql.Rows) (Correction, error) {
	var (
		c        Correction
		product  sql.NullString
		message  sql.NullString
		acquired pq.NullTime
		bounds   []byte
		dark     []byte
	)
	err := rows.Scan(&c.SceneID, &product, &c.Sensor, &acquired, &c.Model, &c.AOT, &c.Criterion, &c.Score,
		&c.SZA, &c.VZA, &c.RAA, &c.Pressure, &c.Ozone, &c.WaterVapor, &c.Wind, &c.GlintCorrected, &c.Status, &message,
		&c.ProcessedAt, &bounds, &dark)
	if err != nil {
		return Correction{}, err
	}
	c.ProductID, c.Message, c.Acquired = product.String, message.String, acquired.Time
	c.Bounds, c.DarkSpectrum = bounds, dark
	return c, nil
}

// GetCorrectionByID returns sql.ErrNoRows when the scene was never recorded
func GetCorrectionByID(tx Queryer, sceneID string) (*Correction, error) {
	rows, err := tx.Query(`SELECT `+selectColumns+`
		FROM public.corrections
		WHERE scene_id=$1
		LIMIT 1`,
		sceneID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	c, err := scanCorrection(rows)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Filter narrows a correction listing; zero fields do not filter
type Filter struct {
	Sensor string
	Model  string
	Since  time.Time
	Status string
	Limit  int
}

// DefaultListLimit caps listings that do not set a limit
const DefaultListLimit = 1000

func (f Filter) where() (string, []interface{}) {
	var clauses []string
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.Sensor != "" {
		add("sensor=$%d", f.Sensor)
	}
	if f.Model != "" {
		add("model=$%d", f.Model)
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	if !f.Since.IsZero() {
		add("processed_at>=$%d", f.Since)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit)
	return fmt.Sprintf("%s ORDER BY processed_at DESC, scene_id LIMIT $%d", where, len(args)), args
}

// ListCorrections returns the most recently processed corrections first
func ListCorrections(tx Queryer, filter Filter) ([]Correction, error) {
	clause, args := filter.where()
	rows, err := tx.Query(`SELECT `+selectColumns+` FROM public.corrections `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	corrections := []Correction{}
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, err
		}
		corrections = append(corrections, c)
	}
	return corrections, rows.Err()
}
