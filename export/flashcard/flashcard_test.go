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

package flashcard_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/k3a/html2text"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/export/flashcard"
	"github.com/windwerfer/dpd-db/pali"
)

func rendered(id dpd.EntryID, headword, pos string, glosses ...string) *dpd.RenderedEntry {
	re := &dpd.RenderedEntry{
		ID:       id,
		Headword: headword,
		POS:      pos,
	}
	for _, g := range glosses {
		re.Glosses = append(re.Glosses, []dpd.Span{{Kind: dpd.SpanText, Text: g}})
	}
	return re
}

// readDeck parses an exported deck, skipping import directives.
func readDeck(t *testing.T, path string) [][]string {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	for _, line := range strings.Split(string(b), "\n") {
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		lines = append(lines, line)
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.Comma = '\t'
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestExport(t *testing.T) {
	t.Parallel()

	entries := []*dpd.RenderedEntry{
		rendered(2, "cakka", "nt", "wheel"),
		rendered(1, "dhamma", "masc", "law", "teaching"),
	}

	path := filepath.Join(t.TempDir(), "deck.txt")
	artifact, warnings, err := flashcard.Export(entries, path, flashcard.Options{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v; want none", warnings)
	}
	if artifact.Records != 2 {
		t.Errorf("Records = %d; want 2", artifact.Records)
	}

	rows := readDeck(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d; want 2", len(rows))
	}

	// Pāli collation: cakka (c) before dhamma (dh).
	if got := []string{rows[0][0], rows[1][0]}; !cmp.Equal(got, []string{"cakka", "dhamma"}) {
		t.Errorf("card order = %v; want [cakka dhamma]", got)
	}

	// Multiple senses are grouped onto one card, in sense order.
	back := rows[1][1]
	if !strings.Contains(back, "1. law") || !strings.Contains(back, "2. teaching") {
		t.Errorf("dhamma back = %q; want numbered glosses in order", back)
	}

	if got, want := rows[1][2], "dpd masc"; got != want {
		t.Errorf("tags = %q; want %q", got, want)
	}
}

// TestExport_dedup checks the exported deck property: no two cards share
// the same (stripped headword, stripped gloss) pair.
func TestExport_dedup(t *testing.T) {
	t.Parallel()

	entries := []*dpd.RenderedEntry{
		rendered(1, "dhamma", "masc", "law"),
		// Same headword and gloss after markup stripping.
		{
			ID:       2,
			Headword: "dhamma",
			POS:      "masc",
			Glosses: [][]dpd.Span{
				{{Kind: dpd.SpanEmphasis, Text: "law"}},
			},
		},
		// Same headword, different gloss: kept.
		rendered(3, "dhamma", "masc", "teaching"),
	}

	path := filepath.Join(t.TempDir(), "deck.txt")
	artifact, _, err := flashcard.Export(entries, path, flashcard.Options{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if artifact.Records != 2 {
		t.Errorf("Records = %d; want 2 after dedup", artifact.Records)
	}

	rows := readDeck(t, path)
	seen := map[[2]string]bool{}
	for _, row := range rows {
		key := [2]string{pali.FoldKey(html2text.HTML2Text(row[0])), pali.FoldKey(html2text.HTML2Text(row[1]))}
		if seen[key] {
			t.Errorf("duplicate card: %v", row)
		}
		seen[key] = true
	}
}

func TestExport_truncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("dīgha gloss ", 100)
	entries := []*dpd.RenderedEntry{
		rendered(1, "dīghanikāya", "masc", long),
	}

	path := filepath.Join(t.TempDir(), "deck.txt")
	_, warnings, err := flashcard.Export(entries, path, flashcard.Options{FieldLimit: 256})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(warnings) != 1 || warnings[0].Kind != dpd.WarnFieldTruncated {
		t.Fatalf("warnings = %v; want one field-truncated warning", warnings)
	}
	if warnings[0].EntryID != 1 {
		t.Errorf("warning entry = %d; want 1", warnings[0].EntryID)
	}

	rows := readDeck(t, path)
	back := rows[0][1]
	if len(back) > 256 {
		t.Errorf("back field is %d bytes; want <= 256", len(back))
	}
	if !strings.Contains(back, "see full entry") {
		t.Errorf("back = %q; want truncation notice", back)
	}
}

// TestExport_truncationTinyLimit checks the limit is honored even when
// the truncation notice itself does not fit.
func TestExport_truncationTinyLimit(t *testing.T) {
	t.Parallel()

	const limit = 16
	entries := []*dpd.RenderedEntry{
		rendered(1, "dīghanikāya", "masc", strings.Repeat("gloss ", 50)),
	}

	path := filepath.Join(t.TempDir(), "deck.txt")
	_, warnings, err := flashcard.Export(entries, path, flashcard.Options{FieldLimit: limit})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Kind != dpd.WarnFieldTruncated {
		t.Fatalf("warnings = %v; want one field-truncated warning", warnings)
	}

	for _, row := range readDeck(t, path) {
		for i, field := range row[:2] {
			if len(field) > limit {
				t.Errorf("field %d is %d bytes; want <= %d", i, len(field), limit)
			}
		}
	}
}
