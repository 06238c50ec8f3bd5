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

// SpanKind is the kind of a markup span in a rendered entry. Spans are
// format neutral; exporters translate them into their own markup dialect
// and apply target-specific escaping.
type SpanKind int

const (
	// SpanText is plain text.
	SpanText SpanKind = iota

	// SpanEmphasis is emphasized text.
	SpanEmphasis

	// SpanCrossLink is a link to another entry. Target is set and the span
	// text is the link's display label.
	SpanCrossLink

	// SpanGrammarRef marks the position of the entry's grammar table.
	// Target is the owning entry.
	SpanGrammarRef
)

// Span is a run of text with a single markup kind.
type Span struct {
	Kind   SpanKind
	Text   string
	Target EntryID
}

// Link is a materialized outbound link. The label is the target's
// canonical display label captured at render time so that exporters never
// re-resolve references.
type Link struct {
	Target EntryID
	Label  string
	Kind   RelKind
}

// RenderedEntry is the format-neutral representation of one entry. Every
// entry produces exactly one RenderedEntry, even when some inputs are
// empty.
type RenderedEntry struct {
	ID       EntryID
	Headword string

	// POS is the entry's part of speech, carried through for exporters
	// that tag or group records by it.
	POS string

	// LookupForms are all spellings under which dictionary readers should
	// find this entry: the lemma, alternate spellings, a diacritic-free
	// form, and every inflected surface form.
	LookupForms []string

	// Summary is the one-line summary shown in compact listings.
	Summary []Span

	// Glosses holds one span sequence per sense, in sense order.
	Glosses [][]Span

	// Body is the full article body.
	Body []Span

	GrammarForms []GrammarForm

	Links []Link
}

// Artifact describes one exported artifact.
type Artifact struct {
	// Target is the exporter that produced the artifact.
	Target string

	// Name is the artifact's file name within a release archive.
	Name string

	// Path is the artifact's location on disk.
	Path string

	Size    int64
	Records int
}
