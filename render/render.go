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

// Package render turns entries into their format-neutral representation.
//
// Rendering is pure and total: every entry produces exactly one
// RenderedEntry, even when some inputs are empty. Markup spans carry
// format-neutral tags; target-specific escaping is deferred to the
// exporters. Adding a new export target therefore never requires
// re-deriving grammar or cross-reference data.
package render

import (
	"fmt"
	"strings"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/pali"
	"github.com/windwerfer/dpd-db/xref"
)

// Transliterator converts text between scripts. It is a pure synchronous
// function; implementations wrap external transliteration services.
type Transliterator func(text string) (string, error)

// Renderer renders entries against a resolved cross-reference graph.
// Renderers are safe for concurrent use: rendering one entry touches no
// mutable shared state.
type Renderer struct {
	Resolver *xref.Resolver
	Graph    *xref.Graph

	// Translit, when set, contributes a transliterated lookup form per
	// entry. A failing service degrades to pass-through plus a warning,
	// never an aborted run.
	Translit Transliterator
}

// Render produces the RenderedEntry for one entry and its grammar forms.
func (r *Renderer) Render(e *dpd.Entry, forms []dpd.GrammarForm) (*dpd.RenderedEntry, []dpd.Warning) {
	var warnings []dpd.Warning

	re := &dpd.RenderedEntry{
		ID:           e.ID,
		Headword:     e.Headword,
		POS:          e.POS,
		GrammarForms: forms,
	}

	re.LookupForms, warnings = r.lookupForms(e, forms, warnings)
	re.Summary = r.summary(e)
	re.Glosses = r.glosses(e, re)
	re.Body = r.body(e, re)

	return re, warnings
}

// lookupForms collects every spelling a dictionary reader should find the
// entry under, in deterministic order and without duplicates.
func (r *Renderer) lookupForms(e *dpd.Entry, forms []dpd.GrammarForm, warnings []dpd.Warning) ([]string, []dpd.Warning) {
	var out []string
	seen := map[string]bool{}
	add := func(form string) {
		form = strings.TrimSpace(form)
		if form == "" || seen[form] {
			return
		}
		seen[form] = true
		out = append(out, form)
	}

	add(e.Lemma)
	for _, alt := range e.AltSpellings {
		add(alt)
	}
	add(pali.FoldDiacritics(e.Lemma))
	if r.Translit != nil {
		t, err := r.Translit(e.Lemma)
		if err != nil {
			warnings = append(warnings, dpd.Warning{
				Kind:    dpd.WarnTransliterationFailed,
				Stage:   "rendering",
				EntryID: e.ID,
				Detail:  fmt.Sprintf("transliterating %q: %v", e.Lemma, err),
			})
		} else {
			add(t)
		}
	}
	for _, f := range forms {
		add(f.Surface)
	}
	return out, warnings
}

// summary builds the one-line summary: part of speech, glosses and a
// construction summary, following the layout of the printed dictionary.
func (r *Renderer) summary(e *dpd.Entry) []dpd.Span {
	var spans []dpd.Span
	if e.POS != "" {
		spans = append(spans, dpd.Span{Kind: dpd.SpanEmphasis, Text: e.POS + "."})
	}

	glosses := make([]string, 0, len(e.Senses))
	for _, sense := range e.Senses {
		if sense.Gloss != "" {
			glosses = append(glosses, sense.Gloss)
		}
	}
	if len(glosses) > 0 {
		text := strings.Join(glosses, "; ")
		if len(spans) > 0 {
			text = " " + text
		}
		spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: text})
	}

	if constr := summarizeConstruction(e.Construction); constr != "" {
		spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: " [" + constr + "]"})
	}
	return spans
}

// summarizeConstruction reduces a multi-variant construction to its first
// variant.
func summarizeConstruction(construction string) string {
	first, _, _ := strings.Cut(construction, "\n")
	return strings.TrimSpace(first)
}

// glosses renders one span sequence per sense, in sense order. Resolved
// references become cross-link spans; unresolved references keep their
// text as plain spans.
func (r *Renderer) glosses(e *dpd.Entry, re *dpd.RenderedEntry) [][]dpd.Span {
	out := make([][]dpd.Span, 0, len(e.Senses))
	for _, sense := range e.Senses {
		spans := []dpd.Span{{Kind: dpd.SpanText, Text: sense.Gloss}}
		for _, ref := range sense.Refs {
			spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: " (" + string(ref.Kind) + " "})
			spans = append(spans, r.linkSpan(re, ref))
			spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: ")"})
		}
		out = append(out, spans)
	}
	return out
}

// linkSpan resolves one declared reference into either a cross-link span,
// materializing the link on the rendered entry, or a plain text span when
// the target is missing.
func (r *Renderer) linkSpan(re *dpd.RenderedEntry, ref dpd.Reference) dpd.Span {
	target, _, ok := r.Resolver.Lookup(ref.Target)
	if !ok {
		// Omit the link, keep the text.
		return dpd.Span{Kind: dpd.SpanText, Text: ref.Target}
	}
	r.addLink(re, target.ID, target.Headword, ref.Kind)
	return dpd.Span{Kind: dpd.SpanCrossLink, Text: target.Headword, Target: target.ID}
}

// body assembles the full article: headword, summary, senses, grammar
// table reference and entry-level links.
func (r *Renderer) body(e *dpd.Entry, re *dpd.RenderedEntry) []dpd.Span {
	spans := []dpd.Span{{Kind: dpd.SpanEmphasis, Text: e.Headword}}

	if len(re.Summary) > 0 {
		spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: ". "})
		spans = append(spans, re.Summary...)
	}

	for i, gloss := range re.Glosses {
		if len(re.Glosses) > 1 {
			spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: fmt.Sprintf(" %d. ", i+1)})
		} else {
			spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: " "})
		}
		spans = append(spans, gloss...)
	}

	if len(re.GrammarForms) > 0 {
		spans = append(spans, dpd.Span{Kind: dpd.SpanGrammarRef, Text: "grammar", Target: e.ID})
	}

	// Entry-level edges: etymology and constituents resolved by the xref
	// stage.
	for _, edge := range r.Graph.Outbound(e.ID) {
		if edge.Sense != -1 {
			continue
		}
		target, ok := r.Resolver.Entry(edge.Target)
		if !ok {
			continue
		}
		spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: " (" + string(edge.Kind) + " "})
		spans = append(spans, dpd.Span{Kind: dpd.SpanCrossLink, Text: target.Headword, Target: target.ID})
		spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: ")"})
		r.addLink(re, target.ID, target.Headword, edge.Kind)
	}

	if e.Citation.Example != "" {
		spans = append(spans, dpd.Span{Kind: dpd.SpanText, Text: " " + e.Citation.Example})
		if e.Citation.Sutta != "" {
			spans = append(spans, dpd.Span{Kind: dpd.SpanEmphasis, Text: " " + e.Citation.Sutta})
		}
	}

	return spans
}

// addLink materializes an outbound link, deduplicating on (target, kind).
func (r *Renderer) addLink(re *dpd.RenderedEntry, target dpd.EntryID, label string, kind dpd.RelKind) {
	for _, l := range re.Links {
		if l.Target == target && l.Kind == kind {
			return
		}
	}
	re.Links = append(re.Links, dpd.Link{Target: target, Label: label, Kind: kind})
}
