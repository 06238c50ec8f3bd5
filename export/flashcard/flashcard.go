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

// Package flashcard exports rendered entries as a tab-separated flashcard
// deck importable into spaced-repetition apps.
//
// Senses are grouped into one card per entry. Near-identical cards (same
// headword and same gloss after markup stripping) are deduplicated so
// that spelling-variant entries do not produce duplicate reviews.
package flashcard

import (
	"encoding/csv"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/k3a/html2text"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/pali"
)

// DefaultFieldLimit is the per-field byte limit applied when Options does
// not set one.
const DefaultFieldLimit = 2048

// truncationNotice is appended to truncated fields. Oversized fields are
// cut, never silently dropped.
const truncationNotice = "… <i>see full entry: %s</i>"

// Options configure the exported deck.
type Options struct {
	// DeckName tags every card. Defaults to "dpd".
	DeckName string

	// FieldLimit is the per-field size limit in bytes imposed by the
	// target format. Defaults to DefaultFieldLimit.
	FieldLimit int
}

func (o *Options) deckName() string {
	if o.DeckName != "" {
		return o.DeckName
	}
	return "dpd"
}

func (o *Options) fieldLimit() int {
	if o.FieldLimit > 0 {
		return o.FieldLimit
	}
	return DefaultFieldLimit
}

// Export writes the deck to path. It returns the artifact, per-card
// warnings (truncated fields), and an error on unrecoverable failures.
// Partial output is never left behind.
func Export(entries []*dpd.RenderedEntry, path string, opts Options) (*dpd.Artifact, []dpd.Warning, error) {
	var warnings []dpd.Warning

	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b *dpd.RenderedEntry) int {
		if c := pali.Compare(a.Headword, b.Headword); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})

	seen := map[[2]string]bool{}
	var rows [][]string
	for _, re := range sorted {
		front := html.EscapeString(re.Headword)
		back := backHTML(re)

		key := [2]string{pali.FoldKey(re.Headword), pali.FoldKey(html2text.HTML2Text(back))}
		if seen[key] {
			continue
		}
		seen[key] = true

		limit := opts.fieldLimit()
		for _, field := range []*string{&front, &back} {
			truncated, ok := truncate(*field, re.Headword, limit)
			if !ok {
				warnings = append(warnings, dpd.Warning{
					Kind:    dpd.WarnFieldTruncated,
					Stage:   "exporting",
					EntryID: re.ID,
					Detail:  fmt.Sprintf("field cut to %d bytes", limit),
				})
			}
			*field = truncated
		}

		tags := opts.deckName()
		if re.POS != "" {
			tags += " " + strings.ReplaceAll(re.POS, " ", "_")
		}
		rows = append(rows, []string{front, back, tags})
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".flashcard-*")
	if err != nil {
		return nil, warnings, &dpd.ExportError{Target: "flashcard", Err: err}
	}
	defer func() {
		f.Close()
		os.Remove(f.Name())
	}()

	// Import directives understood by Anki-style deck importers.
	if _, err := fmt.Fprintf(f, "#separator:tab\n#html:true\n#tags column:3\n"); err != nil {
		return nil, warnings, &dpd.ExportError{Target: "flashcard", Err: err}
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.WriteAll(rows); err != nil {
		return nil, warnings, &dpd.ExportError{Target: "flashcard", Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, warnings, &dpd.ExportError{Target: "flashcard", Err: err}
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return nil, warnings, &dpd.ExportError{Target: "flashcard", Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, warnings, &dpd.ExportError{Target: "flashcard", Err: err}
	}

	return &dpd.Artifact{
		Target:  "flashcard",
		Name:    filepath.Base(path),
		Path:    path,
		Size:    info.Size(),
		Records: len(rows),
	}, warnings, nil
}

// backHTML renders the card back: summary line plus numbered glosses.
func backHTML(re *dpd.RenderedEntry) string {
	var b strings.Builder
	writeSpans(&b, re.Summary)
	for i, gloss := range re.Glosses {
		if b.Len() > 0 {
			b.WriteString("<br/>")
		}
		if len(re.Glosses) > 1 {
			fmt.Fprintf(&b, "%d. ", i+1)
		}
		writeSpans(&b, gloss)
	}
	return b.String()
}

func writeSpans(b *strings.Builder, spans []dpd.Span) {
	for _, span := range spans {
		switch span.Kind {
		case dpd.SpanEmphasis:
			b.WriteString("<b>" + html.EscapeString(span.Text) + "</b>")
		case dpd.SpanCrossLink:
			// Flashcards have no link targets; keep the label text.
			b.WriteString("<i>" + html.EscapeString(span.Text) + "</i>")
		case dpd.SpanGrammarRef:
			// Grammar tables are too large for a card; the notice points
			// at the full entry instead.
		default:
			b.WriteString(html.EscapeString(span.Text))
		}
	}
}

// truncate cuts a field to the byte limit at a rune boundary and appends
// a notice pointing at the full dictionary entry. The result never
// exceeds the limit, even when the notice itself does not fit. ok is
// false when the field was cut.
func truncate(field, headword string, limit int) (string, bool) {
	if len(field) <= limit {
		return field, true
	}

	notice := fmt.Sprintf(truncationNotice, html.EscapeString(headword))
	keep := limit - len(notice)
	if keep < 0 {
		keep = 0
	}
	for keep > 0 && !utf8.RuneStart(field[keep]) {
		keep--
	}

	out := field[:keep] + notice
	for len(out) > limit {
		_, size := utf8.DecodeLastRuneInString(out)
		out = out[:len(out)-size]
	}
	return out, false
}
