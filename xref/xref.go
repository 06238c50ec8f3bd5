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

// Package xref resolves declared cross-references into a global directed
// graph. Resolution always completes: unresolved references become
// warnings, never errors, and downstream renderers degrade the link to
// plain text while keeping it.
package xref

import (
	"fmt"
	"slices"
	"strings"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/pali"
)

// Resolver maps headword spellings to entries.
type Resolver struct {
	byID map[dpd.EntryID]*dpd.Entry

	// bySpelling holds candidates per spelling sorted by canonical
	// headword (Pāli collation, then id) so ambiguous references resolve
	// deterministically to the smallest.
	bySpelling map[string][]*dpd.Entry
}

// NewResolver builds the spelling index over all entries in a single pass.
// Each entry is reachable under its canonical headword, its lemma, its
// alternate spellings, and the diacritic-free fold of each.
func NewResolver(entries []*dpd.Entry) *Resolver {
	r := &Resolver{
		byID:       make(map[dpd.EntryID]*dpd.Entry, len(entries)),
		bySpelling: map[string][]*dpd.Entry{},
	}

	for _, e := range entries {
		r.byID[e.ID] = e

		seen := map[string]bool{}
		spellings := append([]string{e.Headword, e.Lemma}, e.AltSpellings...)
		for _, spelling := range spellings {
			spelling = strings.TrimSpace(spelling)
			for _, key := range []string{spelling, pali.FoldDiacritics(spelling)} {
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				r.bySpelling[key] = append(r.bySpelling[key], e)
			}
		}
	}

	for _, candidates := range r.bySpelling {
		slices.SortFunc(candidates, func(a, b *dpd.Entry) int {
			if c := pali.Compare(a.Headword, b.Headword); c != 0 {
				return c
			}
			return int(a.ID - b.ID)
		})
	}

	return r
}

// Entry returns the entry with the given id.
func (r *Resolver) Entry(id dpd.EntryID) (*dpd.Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Lookup resolves a headword spelling. When several entries match, the one
// with the lexicographically smallest canonical headword wins and
// ambiguous is true.
func (r *Resolver) Lookup(spelling string) (entry *dpd.Entry, ambiguous, ok bool) {
	candidates := r.bySpelling[strings.TrimSpace(spelling)]
	if len(candidates) == 0 {
		return nil, false, false
	}
	return candidates[0], len(candidates) > 1, true
}

// Graph is the resolved cross-reference graph. Every edge's target is
// known to exist in the entry store.
type Graph struct {
	edges    []dpd.CrossReference
	bySource map[dpd.EntryID][]dpd.CrossReference
}

// Edges returns all edges in deterministic order.
func (g *Graph) Edges() []dpd.CrossReference {
	return g.edges
}

// Outbound returns the resolved edges originating at an entry, in
// declaration order.
func (g *Graph) Outbound(id dpd.EntryID) []dpd.CrossReference {
	return g.bySource[id]
}

// Build resolves every declared reference from senses, etymologies and
// deconstructions into a graph. Unresolved and ambiguous references are
// collected as warnings; the graph is always usable, possibly incomplete.
func (r *Resolver) Build(entries []*dpd.Entry, decons []*dpd.Deconstruction) (*Graph, []dpd.Warning) {
	g := &Graph{
		bySource: map[dpd.EntryID][]dpd.CrossReference{},
	}
	var warnings []dpd.Warning

	addEdge := func(edge dpd.CrossReference) {
		g.edges = append(g.edges, edge)
		g.bySource[edge.Source] = append(g.bySource[edge.Source], edge)
	}

	resolve := func(source *dpd.Entry, sense int, kind dpd.RelKind, target string) {
		e, ambiguous, ok := r.Lookup(target)
		if !ok {
			warnings = append(warnings, dpd.Warning{
				Kind:    dpd.WarnUnresolvedReference,
				Stage:   "resolving",
				EntryID: source.ID,
				Detail:  fmt.Sprintf("%s reference %q does not resolve", kind, target),
			})
			return
		}
		if ambiguous {
			warnings = append(warnings, dpd.Warning{
				Kind:    dpd.WarnAmbiguousReference,
				Stage:   "resolving",
				EntryID: source.ID,
				Detail: fmt.Sprintf("%s reference %q matches multiple entries; resolved to %q (id %d)",
					kind, target, e.Headword, e.ID),
			})
		}
		addEdge(dpd.CrossReference{
			Source: source.ID,
			Sense:  sense,
			Target: e.ID,
			Kind:   kind,
		})
	}

	for _, e := range entries {
		if e.Etymology != "" {
			resolve(e, -1, dpd.RelDerivedFrom, e.Etymology)
		}
		for _, sense := range e.Senses {
			for _, ref := range sense.Refs {
				resolve(e, sense.Position, ref.Kind, ref.Target)
			}
		}
	}

	for _, d := range decons {
		for _, c := range d.Constituents {
			// Constituents were resolved by the deconstructor; validate
			// anyway so a stale deconstruction cannot smuggle in a dangling
			// id.
			if _, ok := r.byID[c]; !ok {
				warnings = append(warnings, dpd.Warning{
					Kind:    dpd.WarnUnresolvedReference,
					Stage:   "resolving",
					EntryID: d.EntryID,
					Detail:  fmt.Sprintf("constituent id %d does not exist", c),
				})
				continue
			}
			addEdge(dpd.CrossReference{
				Source: d.EntryID,
				Sense:  -1,
				Target: c,
				Kind:   dpd.RelConstituent,
			})
		}
	}

	return g, warnings
}
