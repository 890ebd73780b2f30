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

package migration

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(Up00001, Down00001)
}

//Up00001 creates the corrections audit table
func Up00001(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS public.corrections
		(
			scene_id character varying(100) NOT NULL,
			product_id character varying(100),
			sensor character varying(16) NOT NULL,
			acquired timestamp with time zone,
			model character varying(100),
			aot double precision,
			criterion character varying(16),
			score double precision,
			sza double precision,
			vza double precision,
			raa double precision,
			pressure double precision,
			uoz double precision,
			uwv double precision,
			wind double precision,
			glint_corrected boolean NOT NULL DEFAULT false,
			status character varying(16) NOT NULL,
			message text,
			processed_at timestamp with time zone NOT NULL,
			CONSTRAINT corrections_pkey PRIMARY KEY (scene_id)
		);
		`)
	if err != nil {
		return err
	}
	return addIndexes(tx)
}

func addIndexes(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_corrections_processed_at
		ON public.corrections (processed_at DESC);

		CREATE INDEX IF NOT EXISTS idx_corrections_sensor_model
		ON public.corrections (sensor, model);
		`)
	return err
}

//Down00001 undoes the db changes.
func Down00001(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS public.corrections;`)
	return err
}
