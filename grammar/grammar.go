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

// Package grammar expands entries into their inflected forms using an
// external, versioned rule table. The table is loaded once per run and
// treated as immutable for the run's duration.
package grammar

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	dpd "github.com/windwerfer/dpd-db"
)

// Rule is a single morphological rule: append Suffix to the stem to
// produce the form named by Label.
type Rule struct {
	Label  string
	Suffix string

	// Truncate is the number of trailing runes removed from the lemma when
	// the entry carries no explicit stem.
	Truncate int
}

// RuleTable maps inflection classes to their rules. Rules keep table file
// order so that expansion is byte-identical across runs.
type RuleTable struct {
	version string
	classes map[string][]Rule
}

// Load reads a rule table from a tab-separated file.
//
// The first line must be a version pragma ("#version: <version>"). Each
// following non-comment line holds class, label, truncate count and
// suffix. A "-" suffix marks an endingless form.
func Load(path string) (*RuleTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rule table: %w", err)
	}
	defer f.Close()
	t, err := New(f)
	if err != nil {
		return nil, fmt.Errorf("reading rule table %q: %w", path, err)
	}
	return t, nil
}

// New reads a rule table from r.
func New(r io.Reader) (*RuleTable, error) {
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("reading rule table: %w", err)
	}
	content := buf.String()

	first, rest, _ := strings.Cut(content, "\n")
	version, ok := strings.CutPrefix(strings.TrimSpace(first), "#version:")
	if !ok {
		return nil, fmt.Errorf("missing version pragma")
	}
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, fmt.Errorf("empty rule table version")
	}

	cr := csv.NewReader(strings.NewReader(rest))
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = 4

	t := &RuleTable{
		version: version,
		classes: map[string][]Rule{},
	}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing rule table: %w", err)
		}

		truncate, err := strconv.Atoi(record[2])
		if err != nil || truncate < 0 {
			return nil, fmt.Errorf("bad truncate count %q for class %q", record[2], record[0])
		}
		suffix := record[3]
		if suffix == "-" {
			suffix = ""
		}
		t.classes[record[0]] = append(t.classes[record[0]], Rule{
			Label:    record[1],
			Suffix:   suffix,
			Truncate: truncate,
		})
	}

	return t, nil
}

// Version returns the rule table version. It participates in derivation
// cache keys so that a rule change invalidates cached forms even for
// unchanged entries.
func (t *RuleTable) Version() string {
	return t.version
}

// Build expands an entry into its grammar forms. It returns ok=false when
// the entry's inflection class is not in the table; the entry then
// produces zero forms and the caller records the warning.
//
// Entries without an inflection class (indeclinables) produce zero forms
// with ok=true.
func (t *RuleTable) Build(e *dpd.Entry) ([]dpd.GrammarForm, bool) {
	if e.InflectionClass == "" || e.Stem == "-" {
		return nil, true
	}

	rules, ok := t.classes[e.InflectionClass]
	if !ok {
		return nil, false
	}

	forms := make([]dpd.GrammarForm, 0, len(rules))
	for _, rule := range rules {
		base := e.Stem
		if base == "" {
			base = truncateRunes(e.Lemma, rule.Truncate)
		}
		forms = append(forms, dpd.GrammarForm{
			EntryID: e.ID,
			Class:   e.InflectionClass,
			Label:   rule.Label,
			Surface: base + rule.Suffix,
		})
	}
	return forms, true
}

func truncateRunes(s string, n int) string {
	for ; n > 0 && len(s) > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}
