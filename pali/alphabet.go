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

// Package pali implements Pāli script ordering and text folding used
// throughout the export pipeline. Dictionary artifacts are collated in the
// traditional alphabet order, not byte order.
package pali

import (
	"strings"
	"unicode/utf8"
)

// Alphabet is the traditional Pāli alphabet in sort order. Aspirated
// consonants (kh, gh, ...) are distinct letters that sort after their
// unaspirated counterparts.
var Alphabet = []string{
	"a", "ā", "i", "ī", "u", "ū", "e", "o",
	"k", "kh", "g", "gh", "ṅ",
	"c", "ch", "j", "jh", "ñ",
	"ṭ", "ṭh", "ḍ", "ḍh", "ṇ",
	"t", "th", "d", "dh", "n",
	"p", "ph", "b", "bh", "m",
	"y", "r", "l", "v", "s", "h", "ḷ", "ṃ",
}

var letterRank = func() map[string]int {
	m := make(map[string]int, len(Alphabet))
	for i, l := range Alphabet {
		m[l] = i
	}
	return m
}()

// unknownRankBase places runes outside the alphabet after every Pāli
// letter, ordered by code point.
const unknownRankBase = 1 << 16

// SortKey returns the collation key for a word. Keys compare
// lexicographically element by element.
func SortKey(word string) []int {
	var key []int
	s := strings.ToLower(word)
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)

		// Aspirated digraphs take precedence over the single letter.
		if len(s) > size && s[size] == 'h' {
			if rank, ok := letterRank[s[:size+1]]; ok {
				key = append(key, rank)
				s = s[size+1:]
				continue
			}
		}
		if rank, ok := letterRank[s[:size]]; ok {
			key = append(key, rank)
			s = s[size:]
			continue
		}

		// Spaces, hyphens and digits separate words without outranking
		// any letter.
		key = append(key, unknownRankBase+int(r))
		s = s[size:]
	}
	return key
}

// Compare orders two words by Pāli collation. Words equal under collation
// fall back to byte order so the ordering is total and stable across runs.
func Compare(a, b string) int {
	ka, kb := SortKey(a), SortKey(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if ka[i] != kb[i] {
			if ka[i] < kb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ka) < len(kb):
		return -1
	case len(ka) > len(kb):
		return 1
	}
	return strings.Compare(a, b)
}

// FirstLetter returns the first Pāli letter of a word, used to group ebook
// entries into per-letter pages. Leading characters outside the alphabet
// (hyphens, digits) are skipped. The empty string is returned if the word
// contains no Pāli letter.
func FirstLetter(word string) string {
	s := strings.ToLower(word)
	for len(s) > 0 {
		_, size := utf8.DecodeRuneInString(s)
		if len(s) > size && s[size] == 'h' {
			if _, ok := letterRank[s[:size+1]]; ok {
				return s[:size+1]
			}
		}
		if _, ok := letterRank[s[:size]]; ok {
			return s[:size]
		}
		s = s[size:]
	}
	return ""
}
