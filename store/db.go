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

package store

import (
	"database/sql"

	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/util"
)

// DB runs each store operation in its own transaction
type DB struct {
	DB *sql.DB
}

func (d DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetCorrection implements handlers.CorrectionStore
func (d DB) GetCorrection(sceneID string) (*Correction, error) {
	var c *Correction
	err := d.inTx(func(tx *sql.Tx) (err error) {
		c, err = GetCorrectionByID(tx, sceneID)
		return
	})
	return c, err
}

// ListCorrections implements handlers.CorrectionStore
func (d DB) ListCorrections(filter Filter) ([]Correction, error) {
	var corrections []Correction
	err := d.inTx(func(tx *sql.Tx) (err error) {
		corrections, err = ListCorrections(tx, filter)
		return
	})
	return corrections, err
}

// Record persists a correction result; it matches the batch recorder signature
func (d DB) Record(ctx util.LogContext, result model.CorrectionResult) error {
	c, err := FromResult(result)
	if err != nil {
		return err
	}
	err = d.inTx(func(tx *sql.Tx) error {
		return InsertCorrection(tx, c)
	})
	if err == nil {
		util.LogInfo(ctx, "Recorded correction of "+result.SceneID)
	}
	return err
}
