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

package dpd

// EntryID is the stable identifier of a dictionary entry. It is assigned by
// the authoring system, never changes once assigned, and is the join key
// for all derived data.
type EntryID int64

// RelKind is the kind of semantic relation a cross-reference declares.
type RelKind string

const (
	RelSynonym     RelKind = "synonym"
	RelAntonym     RelKind = "antonym"
	RelVariant     RelKind = "variant"
	RelSeeAlso     RelKind = "see also"
	RelDerivedFrom RelKind = "derived from"
	RelConstituent RelKind = "constituent"
)

// Entry is one headword's canonical record in the dictionary. Entries are
// authored upstream and read-only to the pipeline.
type Entry struct {
	ID EntryID

	// Headword is the canonical headword, including a trailing homonym
	// number when several entries share a spelling (e.g. "nibbāna 1").
	Headword string

	// Lemma is the headword without the homonym number.
	Lemma string

	// AltSpellings are alternate spellings of the lemma. Dictionary-reader
	// formats index all of them to the same record.
	AltSpellings []string

	POS string

	// InflectionClass names the morphological paradigm used to expand
	// grammar forms. Empty for indeclinables.
	InflectionClass string

	// Stem is the inflectional stem. "-" marks an indeclinable.
	Stem string

	// Compound is set for headwords that decompose into constituent words.
	Compound bool

	// Construction describes how the word is built from its parts, one
	// variant per line.
	Construction string

	// Etymology is an optional reference to the root family.
	Etymology string

	Citation Citation

	// Senses are ordered; the order is meaningful for display.
	Senses []Sense
}

// Citation is the source citation attached to an entry.
type Citation struct {
	Source  string
	Sutta   string
	Example string
}

// Sense is one distinct meaning belonging to an entry.
type Sense struct {
	// Position is the sense's ordered position within its entry, starting
	// at zero.
	Position int

	Gloss string

	// Refs are outbound cross-reference declarations. Targets are headword
	// spellings as authored; they are resolved to entry ids by the xref
	// package.
	Refs []Reference
}

// Reference is a declared, unresolved cross-reference.
type Reference struct {
	Kind   RelKind
	Target string
}

// GrammarForm is a single inflected form derived from an entry by a
// morphological rule. Regenerated wholesale on every run.
type GrammarForm struct {
	EntryID EntryID

	// Class is the inflection class that produced the form.
	Class string

	// Label names the grammatical slot, e.g. "nom sg".
	Label string

	// Surface is the fully inflected surface form.
	Surface string
}

// Deconstruction is the decomposition of a compound headword into an
// ordered sequence of constituent entries. Every constituent resolved, or
// no Deconstruction at all.
type Deconstruction struct {
	EntryID      EntryID
	Constituents []EntryID
}

// CrossReference is a resolved directed edge in the cross-reference graph.
type CrossReference struct {
	Source EntryID

	// Sense is the position of the originating sense, or -1 for
	// entry-level references (constituent links, etymology).
	Sense int

	Target EntryID
	Kind   RelKind
}
