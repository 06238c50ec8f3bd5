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

// Package store provides read-only, typed access to the canonical
// dictionary database. The schema is owned by the upstream authoring
// system; this package only reads it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	dpd "github.com/windwerfer/dpd-db"
)

// Store reads dictionary entries from a SQLite database. The backing
// database is read-only for the duration of a pipeline run and is safe to
// share across concurrent workers.
type Store struct {
	db *sql.DB
}

// Open opens the dictionary database at path. Open failures wrap
// [dpd.ErrStoreUnavailable]; they are fatal to a pipeline run because
// cross-reference resolution requires the complete entry set.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", dpd.ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", dpd.ErrStoreUnavailable, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: opening %q: %v", dpd.ErrStoreUnavailable, path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

// FetchAll returns every entry ordered by id. The ordering is stable
// across runs; downstream stages and cache keys depend on it.
func (s *Store) FetchAll(ctx context.Context) ([]*dpd.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, headword, lemma, pos, inflection_class, stem, compound,
		       construction, etymology, source, sutta, example
		FROM entries
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []*dpd.Entry
	byID := map[dpd.EntryID]*dpd.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	if err := s.attachSpellings(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.attachSenses(ctx, byID); err != nil {
		return nil, err
	}

	return entries, nil
}

// FetchByID returns a single entry. It returns [dpd.ErrNotFound] if no
// entry has the given id.
func (s *Store) FetchByID(ctx context.Context, id dpd.EntryID) (*dpd.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, headword, lemma, pos, inflection_class, stem, compound,
		       construction, etymology, source, sutta, example
		FROM entries
		WHERE id = ?`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", dpd.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	byID := map[dpd.EntryID]*dpd.Entry{e.ID: e}
	if err := s.attachSpellings(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.attachSenses(ctx, byID); err != nil {
		return nil, err
	}
	return e, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*dpd.Entry, error) {
	var e dpd.Entry
	var compound int
	var stem, construction, etymology, source, sutta, example sql.NullString
	err := row.Scan(
		&e.ID, &e.Headword, &e.Lemma, &e.POS, &e.InflectionClass, &stem,
		&compound, &construction, &etymology, &source, &sutta, &example,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning entry: %w", err)
	}
	e.Stem = stem.String
	e.Compound = compound != 0
	e.Construction = construction.String
	e.Etymology = etymology.String
	e.Citation = dpd.Citation{
		Source:  source.String,
		Sutta:   sutta.String,
		Example: example.String,
	}
	return &e, nil
}

func (s *Store) attachSpellings(ctx context.Context, byID map[dpd.EntryID]*dpd.Entry) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, spelling
		FROM alt_spellings
		ORDER BY entry_id, spelling`)
	if err != nil {
		return fmt.Errorf("querying alternate spellings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id dpd.EntryID
		var spelling string
		if err := rows.Scan(&id, &spelling); err != nil {
			return fmt.Errorf("scanning alternate spelling: %w", err)
		}
		if e, ok := byID[id]; ok {
			e.AltSpellings = append(e.AltSpellings, spelling)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading alternate spellings: %w", err)
	}
	return nil
}

func (s *Store) attachSenses(ctx context.Context, byID map[dpd.EntryID]*dpd.Entry) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, position, gloss
		FROM senses
		ORDER BY entry_id, position`)
	if err != nil {
		return fmt.Errorf("querying senses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id dpd.EntryID
		var sense dpd.Sense
		if err := rows.Scan(&id, &sense.Position, &sense.Gloss); err != nil {
			return fmt.Errorf("scanning sense: %w", err)
		}
		if e, ok := byID[id]; ok {
			e.Senses = append(e.Senses, sense)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading senses: %w", err)
	}

	return s.attachRefs(ctx, byID)
}

func (s *Store) attachRefs(ctx context.Context, byID map[dpd.EntryID]*dpd.Entry) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, sense_position, kind, target
		FROM cross_refs
		ORDER BY entry_id, sense_position, kind, target`)
	if err != nil {
		return fmt.Errorf("querying cross-references: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id dpd.EntryID
		var pos int
		var kind, target string
		if err := rows.Scan(&id, &pos, &kind, &target); err != nil {
			return fmt.Errorf("scanning cross-reference: %w", err)
		}
		e, ok := byID[id]
		if !ok || pos < 0 || pos >= len(e.Senses) {
			continue
		}
		e.Senses[pos].Refs = append(e.Senses[pos].Refs, dpd.Reference{
			Kind:   dpd.RelKind(kind),
			Target: target,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading cross-references: %w", err)
	}
	return nil
}
