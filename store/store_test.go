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

package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/internal/testutil"
	"github.com/windwerfer/dpd-db/store"
)

func fixtureEntries() []*dpd.Entry {
	return []*dpd.Entry{
		{
			ID:              1,
			Headword:        "dhamma",
			Lemma:           "dhamma",
			POS:             "masc",
			InflectionClass: "a masc",
			Stem:            "dhamm",
			Construction:    "√dhar + ma",
			Etymology:       "dharati",
			Citation: dpd.Citation{
				Source:  "DN 16",
				Sutta:   "mahāparinibbānasutta",
				Example: "dhammo have rakkhati dhammacāriṃ",
			},
			AltSpellings: []string{"dhaṃma"},
			Senses: []dpd.Sense{
				{Position: 0, Gloss: "nature", Refs: []dpd.Reference{
					{Kind: dpd.RelSeeAlso, Target: "sabhāva"},
				}},
				{Position: 1, Gloss: "teaching"},
			},
		},
		{
			ID:       2,
			Headword: "cakka",
			Lemma:    "cakka",
			POS:      "nt",
			Senses: []dpd.Sense{
				{Position: 0, Gloss: "wheel"},
			},
		},
		{
			ID:       3,
			Headword: "dhammacakka",
			Lemma:    "dhammacakka",
			POS:      "nt",
			Compound: true,
		},
	}
}

func TestStore_FetchAll(t *testing.T) {
	t.Parallel()

	want := fixtureEntries()
	s, err := store.Open(testutil.MakeStoreDB(t, want))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got, err := s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	// Ordered by id with spellings, senses and references attached.
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchAll (-want, +got):\n%s", diff)
	}
}

func TestStore_FetchByID(t *testing.T) {
	t.Parallel()

	entries := fixtureEntries()
	s, err := store.Open(testutil.MakeStoreDB(t, entries))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got, err := s.FetchByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchByID: %v", err)
	}
	if diff := cmp.Diff(entries[0], got); diff != "" {
		t.Errorf("FetchByID(1) (-want, +got):\n%s", diff)
	}

	if _, err := s.FetchByID(context.Background(), 99); !errors.Is(err, dpd.ErrNotFound) {
		t.Errorf("FetchByID(99) = %v; want ErrNotFound", err)
	}
}

func TestOpen_missing(t *testing.T) {
	t.Parallel()

	_, err := store.Open(filepath.Join(t.TempDir(), "missing.db"))
	if !errors.Is(err, dpd.ErrStoreUnavailable) {
		t.Errorf("Open = %v; want ErrStoreUnavailable", err)
	}
}
