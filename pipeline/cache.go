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

package pipeline

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	gocache "github.com/patrickmn/go-cache"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/grammar"
)

// derivation is the cached per-entry grammar expansion. The ok flag is
// stored as data so that a cache hit re-emits the same unknown-class
// warning as the original derivation.
//
// Deconstructions are never cached: segmentation depends on the whole
// headword set, so a per-entry key cannot see a deleted constituent.
type derivation struct {
	sum uint64

	forms   []dpd.GrammarForm
	formsOK bool
}

// derivationCache memoizes grammar expansions across runs, keyed by a
// hash of the entry content and the rule table version. A stale mapping
// (hash collision on key, content mismatch on value) falls through to a
// fresh derivation.
type derivationCache struct {
	c *gocache.Cache
}

func newDerivationCache() *derivationCache {
	return &derivationCache{c: gocache.New(gocache.NoExpiration, 0)}
}

func (dc *derivationCache) forms(e *dpd.Entry, table *grammar.RuleTable) ([]dpd.GrammarForm, bool) {
	sum := fingerprint(e, table.Version())
	key := strconv.FormatUint(sum, 16)

	if v, ok := dc.c.Get(key); ok {
		if d, ok := v.(*derivation); ok && d.sum == sum {
			return d.forms, d.formsOK
		}
	}

	d := &derivation{sum: sum}
	d.forms, d.formsOK = table.Build(e)

	dc.c.Set(key, d, gocache.NoExpiration)
	return d.forms, d.formsOK
}

// fingerprint hashes every entry field that derivation depends on, plus
// the rule table version so that a table change invalidates all entries.
func fingerprint(e *dpd.Entry, tableVersion string) uint64 {
	h := xxhash.New()
	sep := []byte{0}
	write := func(s string) {
		h.WriteString(s)
		h.Write(sep)
	}

	write(strconv.FormatInt(int64(e.ID), 10))
	write(e.Headword)
	write(e.Lemma)
	for _, alt := range e.AltSpellings {
		write(alt)
	}
	write(e.POS)
	write(e.InflectionClass)
	write(e.Stem)
	write(strconv.FormatBool(e.Compound))
	write(tableVersion)
	return h.Sum64()
}
