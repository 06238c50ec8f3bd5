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

// Package deconstruct decomposes compound headwords into their constituent
// entries. A decomposition is produced only when every constituent
// resolves to an existing entry; partial decompositions corrupt downstream
// cross-reference counts and are never emitted.
package deconstruct

import (
	"fmt"
	"strings"
	"unicode/utf8"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/pali"
)

// Segmenter splits compound headwords against the known headword set using
// longest-match-first segmentation with backtracking.
type Segmenter struct {
	// bySpelling maps each known spelling to the entry it resolves to.
	// Duplicate spellings keep the entry with the smallest canonical
	// headword, matching the resolver's tie-break.
	bySpelling map[string]*dpd.Entry

	// maxLen is the byte length of the longest indexed spelling.
	maxLen int
}

// NewSegmenter indexes the given entries for constituent lookup.
func NewSegmenter(entries []*dpd.Entry) *Segmenter {
	s := &Segmenter{
		bySpelling: map[string]*dpd.Entry{},
	}
	for _, e := range entries {
		for _, spelling := range append([]string{e.Lemma}, e.AltSpellings...) {
			spelling = strings.TrimSpace(spelling)
			if spelling == "" {
				continue
			}
			prev, ok := s.bySpelling[spelling]
			if !ok || canonicalLess(e, prev) {
				s.bySpelling[spelling] = e
			}
			if len(spelling) > s.maxLen {
				s.maxLen = len(spelling)
			}
		}
	}
	return s
}

// canonicalLess orders entries by canonical headword in Pāli collation,
// then by id, so duplicate spellings resolve deterministically.
func canonicalLess(a, b *dpd.Entry) bool {
	if c := pali.Compare(a.Headword, b.Headword); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

// Deconstruct decomposes a compound entry. It returns a
// [dpd.DeconstructionError] when no segmentation resolves every
// constituent.
func (s *Segmenter) Deconstruct(e *dpd.Entry) (*dpd.Deconstruction, error) {
	word := strings.ToLower(strings.TrimSpace(e.Lemma))
	if word == "" {
		return nil, &dpd.DeconstructionError{
			EntryID:  e.ID,
			Headword: e.Headword,
			Reason:   "empty headword",
		}
	}

	seg := &segmentation{
		segmenter: s,
		exclude:   e.ID,
		word:      word,
		failed:    map[int]bool{},
	}
	constituents, ok := seg.segment(0)
	if !ok {
		return nil, &dpd.DeconstructionError{
			EntryID:  e.ID,
			Headword: e.Headword,
			Reason: fmt.Sprintf("no segmentation resolves every constituent (unmatched from %q)",
				word[seg.deepest:]),
		}
	}
	if len(constituents) < 2 {
		return nil, &dpd.DeconstructionError{
			EntryID:  e.ID,
			Headword: e.Headword,
			Reason:   "headword is not a compound of known words",
		}
	}

	return &dpd.Deconstruction{
		EntryID:      e.ID,
		Constituents: constituents,
	}, nil
}

type segmentation struct {
	segmenter *Segmenter
	exclude   dpd.EntryID
	word      string

	// failed memoizes offsets from which no segmentation completes.
	failed map[int]bool

	// deepest is the furthest offset any attempt reached, kept for the
	// error report.
	deepest int
}

// segment matches constituents from offset to the end of the word, longest
// candidate first.
func (g *segmentation) segment(offset int) ([]dpd.EntryID, bool) {
	if offset > g.deepest {
		g.deepest = offset
	}
	if offset == len(g.word) {
		return nil, true
	}
	if g.failed[offset] {
		return nil, false
	}

	rest := g.word[offset:]
	limit := len(rest)
	if limit > g.segmenter.maxLen {
		limit = g.segmenter.maxLen
	}

	for end := limit; end > 0; end-- {
		if !utf8.RuneStart(rest[0]) {
			break
		}
		prefix := rest[:end]
		if end < len(rest) && !utf8.RuneStart(rest[end]) {
			// Not a rune boundary.
			continue
		}

		for _, candidate := range junctionForms(prefix, end == len(rest)) {
			e, ok := g.segmenter.bySpelling[candidate]
			if !ok || e.ID == g.exclude {
				continue
			}
			tail, ok := g.segment(offset + end)
			if !ok {
				continue
			}
			return append([]dpd.EntryID{e.ID}, tail...), true
		}
	}

	g.failed[offset] = true
	return nil, false
}

// junctionForms returns the dictionary spellings a compound segment may
// correspond to. At an internal junction a constituent's final vowel may
// surface lengthened (deva + ā + ... ) or shortened, so both quantities
// are tried after the exact spelling.
func junctionForms(segment string, final bool) []string {
	forms := []string{segment}
	if final {
		return forms
	}

	r, size := utf8.DecodeLastRuneInString(segment)
	head := segment[:len(segment)-size]
	switch r {
	case 'ā':
		forms = append(forms, head+"a")
	case 'ī':
		forms = append(forms, head+"i")
	case 'ū':
		forms = append(forms, head+"u")
	case 'a':
		forms = append(forms, head+"ā")
	case 'i':
		forms = append(forms, head+"ī")
	case 'u':
		forms = append(forms, head+"ū")
	}
	return forms
}
