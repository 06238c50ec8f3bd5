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

package stardict_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/export/stardict"
	"github.com/windwerfer/dpd-db/internal/testutil"
)

func testEntries() []*dpd.RenderedEntry {
	return []*dpd.RenderedEntry{
		{
			ID:          1,
			Headword:    "dhamma",
			LookupForms: []string{"dhamma", "dhammo", "dhammaṃ"},
			Body: []dpd.Span{
				{Kind: dpd.SpanEmphasis, Text: "dhamma"},
				{Kind: dpd.SpanText, Text: ". law & teaching"},
			},
		},
		{
			ID:          2,
			Headword:    "cakka",
			LookupForms: []string{"cakka", "cakra"},
			Body: []dpd.Span{
				{Kind: dpd.SpanEmphasis, Text: "cakka"},
				{Kind: dpd.SpanText, Text: ". wheel, see "},
				{Kind: dpd.SpanCrossLink, Text: "dhamma", Target: 1},
			},
		},
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact, err := stardict.Export(testEntries(), dir, stardict.Options{
		Bookname: "Test Pāli Dictionary",
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if artifact.Records != 2 {
		t.Errorf("Records = %d; want 2", artifact.Records)
	}

	base := filepath.Join(dir, "dpd", "dpd")

	ifo := testutil.ReadIfo(t, base+".ifo")
	if got, want := ifo["magic"], "StarDict's dict ifo file"; got != want {
		t.Errorf("magic = %q; want %q", got, want)
	}
	if got, want := ifo["bookname"], "Test Pāli Dictionary"; got != want {
		t.Errorf("bookname = %q; want %q", got, want)
	}
	if got, want := ifo["wordcount"], "2"; got != want {
		t.Errorf("wordcount = %q; want %q", got, want)
	}
	if got, want := ifo["sametypesequence"], "h"; got != want {
		t.Errorf("sametypesequence = %q; want %q", got, want)
	}

	// Index is sorted and its offsets address the dict data.
	idx := testutil.ReadIdx(t, base+".idx")
	var words []string
	for _, w := range idx {
		words = append(words, w.Word)
	}
	if diff := cmp.Diff([]string{"cakka", "dhamma"}, words); diff != "" {
		t.Errorf("idx words (-want +got):\n%s", diff)
	}

	data := testutil.ReadDictZip(t, base+".dict.dz")
	article := string(testutil.DictArticle(t, data, idx[1]))
	if !strings.Contains(article, "<b>dhamma</b>") {
		t.Errorf("dhamma article = %q; want headword in bold", article)
	}
	if !strings.Contains(article, "law &amp; teaching") {
		t.Errorf("dhamma article = %q; want escaped ampersand", article)
	}

	cakka := string(testutil.DictArticle(t, data, idx[0]))
	if !strings.Contains(cakka, `<a href="bword://dhamma">dhamma</a>`) {
		t.Errorf("cakka article = %q; want bword link", cakka)
	}
}

// TestExport_synonyms checks that every lookup form is indexed to its
// record: a dictionary-reader format requires exact-match lookup by any
// spelling variant.
func TestExport_synonyms(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := stardict.Export(testEntries(), dir, stardict.Options{Bookname: "Test"}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	base := filepath.Join(dir, "dpd", "dpd")
	idx := testutil.ReadIdx(t, base+".idx")
	syn := testutil.ReadSyn(t, base+".syn")

	ifo := testutil.ReadIfo(t, base+".ifo")
	if got, want := ifo["synwordcount"], "3"; got != want {
		t.Errorf("synwordcount = %q; want %q", got, want)
	}

	// Every synonym resolves to the right headword.
	expected := map[string]string{
		"dhammo":  "dhamma",
		"dhammaṃ": "dhamma",
		"cakra":   "cakka",
	}
	if len(syn) != len(expected) {
		t.Fatalf("syn entries = %d; want %d", len(syn), len(expected))
	}
	for _, s := range syn {
		want, ok := expected[s.Word]
		if !ok {
			t.Errorf("unexpected synonym %q", s.Word)
			continue
		}
		if int(s.WordIndex) >= len(idx) {
			t.Fatalf("synonym %q index %d out of range", s.Word, s.WordIndex)
		}
		if got := idx[s.WordIndex].Word; got != want {
			t.Errorf("synonym %q resolves to %q; want %q", s.Word, got, want)
		}
	}
}

func TestExport_missingBookname(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := stardict.Export(testEntries(), dir, stardict.Options{})

	var exportErr *dpd.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("Export: expected ExportError, got %v", err)
	}
	if exportErr.Target != "stardict" {
		t.Errorf("ExportError.Target = %q; want %q", exportErr.Target, "stardict")
	}

	// No partial output.
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("output dir not empty after failed export: %v", files)
	}
}

// TestExport_idempotent checks byte-identical artifacts across runs on
// unchanged input.
func TestExport_idempotent(t *testing.T) {
	t.Parallel()

	read := func(t *testing.T) map[string][]byte {
		dir := t.TempDir()
		if _, err := stardict.Export(testEntries(), dir, stardict.Options{Bookname: "Test"}); err != nil {
			t.Fatalf("Export: %v", err)
		}
		out := map[string][]byte{}
		files, err := os.ReadDir(filepath.Join(dir, "dpd"))
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range files {
			path := filepath.Join(dir, "dpd", f.Name())
			if strings.HasSuffix(f.Name(), ".dict.dz") {
				// Compare article data, not the compression container.
				out[f.Name()] = testutil.ReadDictZip(t, path)
				continue
			}
			b, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			out[f.Name()] = b
		}
		return out
	}

	first := read(t)
	second := read(t)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("artifacts differ between runs (-first +second):\n%s", diff)
	}
}
