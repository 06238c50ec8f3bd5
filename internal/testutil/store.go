// Copyright 2024 The dpd-db Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testutil builds dictionary fixtures for tests: writable entry
// stores and readers for exported artifacts.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	dpd "github.com/windwerfer/dpd-db"
)

const storeSchema = `
CREATE TABLE entries (
	id INTEGER PRIMARY KEY,
	headword TEXT NOT NULL,
	lemma TEXT NOT NULL,
	pos TEXT NOT NULL DEFAULT '',
	inflection_class TEXT NOT NULL DEFAULT '',
	stem TEXT,
	compound INTEGER NOT NULL DEFAULT 0,
	construction TEXT,
	etymology TEXT,
	source TEXT,
	sutta TEXT,
	example TEXT
);
CREATE TABLE alt_spellings (
	entry_id INTEGER NOT NULL REFERENCES entries(id),
	spelling TEXT NOT NULL
);
CREATE TABLE senses (
	entry_id INTEGER NOT NULL REFERENCES entries(id),
	position INTEGER NOT NULL,
	gloss TEXT NOT NULL
);
CREATE TABLE cross_refs (
	entry_id INTEGER NOT NULL REFERENCES entries(id),
	sense_position INTEGER NOT NULL,
	kind TEXT NOT NULL,
	target TEXT NOT NULL
);
`

// MakeStoreDB writes a dictionary database containing the given entries to
// a temporary directory and returns its path.
func MakeStoreDB(t *testing.T, entries []*dpd.Entry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dpd.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(storeSchema); err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		compound := 0
		if e.Compound {
			compound = 1
		}
		_, err := db.Exec(`
			INSERT INTO entries (id, headword, lemma, pos, inflection_class,
				stem, compound, construction, etymology, source, sutta, example)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Headword, e.Lemma, e.POS, e.InflectionClass,
			e.Stem, compound, e.Construction, e.Etymology,
			e.Citation.Source, e.Citation.Sutta, e.Citation.Example,
		)
		if err != nil {
			t.Fatal(err)
		}

		for _, spelling := range e.AltSpellings {
			if _, err := db.Exec(`
				INSERT INTO alt_spellings (entry_id, spelling) VALUES (?, ?)`,
				e.ID, spelling,
			); err != nil {
				t.Fatal(err)
			}
		}

		for _, sense := range e.Senses {
			if _, err := db.Exec(`
				INSERT INTO senses (entry_id, position, gloss) VALUES (?, ?, ?)`,
				e.ID, sense.Position, sense.Gloss,
			); err != nil {
				t.Fatal(err)
			}
			for _, ref := range sense.Refs {
				if _, err := db.Exec(`
					INSERT INTO cross_refs (entry_id, sense_position, kind, target)
					VALUES (?, ?, ?, ?)`,
					e.ID, sense.Position, string(ref.Kind), ref.Target,
				); err != nil {
					t.Fatal(err)
				}
			}
		}
	}

	return path
}
