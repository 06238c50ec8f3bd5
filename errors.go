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

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable indicates the entry store could not be opened. This
// is fatal to the whole run: cross-reference resolution needs the full
// entry set, so no partial run is attempted.
var ErrStoreUnavailable = errors.New("entry store unavailable")

// ErrNotFound indicates an entry id does not exist in the store.
var ErrNotFound = errors.New("entry not found")

// DeconstructionError reports a compound headword for which no
// segmentation resolves every constituent. Partial decompositions are
// never produced.
type DeconstructionError struct {
	EntryID  EntryID
	Headword string
	Reason   string
}

func (e *DeconstructionError) Error() string {
	return fmt.Sprintf("deconstructing %q (id %d): %s", e.Headword, e.EntryID, e.Reason)
}

// ExportError reports an unrecoverable format constraint in one exporter.
// It aborts only that target's artifact; other targets continue.
type ExportError struct {
	Target string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporting %s: %v", e.Target, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// PackagingError reports a failure assembling the release archive. It is
// fatal: a half-packaged release is never published.
type PackagingError struct {
	Err error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging: %v", e.Err)
}

func (e *PackagingError) Unwrap() error {
	return e.Err
}

// WarningKind classifies per-item issues. Warnings accumulate into the run
// report and never change the pipeline's path.
type WarningKind string

const (
	// WarnUnknownInflectionClass marks an entry whose inflection class is
	// missing from the rule table; the entry produced zero grammar forms.
	WarnUnknownInflectionClass WarningKind = "unknown inflection class"

	// WarnUnresolvedReference marks a cross-reference whose target could
	// not be found. The link is degraded to plain text, never followed.
	WarnUnresolvedReference WarningKind = "unresolved reference"

	// WarnAmbiguousReference marks a reference spelling that matched more
	// than one entry. Resolution picked the entry with the smallest
	// canonical headword; the ambiguity needs human review.
	WarnAmbiguousReference WarningKind = "ambiguous reference"

	// WarnDeconstructionFailed marks a compound with no fully resolving
	// segmentation.
	WarnDeconstructionFailed WarningKind = "deconstruction failed"

	// WarnFieldTruncated marks a flashcard field cut to the format's size
	// limit.
	WarnFieldTruncated WarningKind = "field truncated"

	// WarnTransliterationFailed marks text passed through untransformed
	// after a transliteration service failure.
	WarnTransliterationFailed WarningKind = "transliteration failed"
)

// Warning is a per-item issue with enough identifying context to be
// actionable by a human editor without re-running the pipeline.
type Warning struct {
	Kind    WarningKind
	Stage   string
	EntryID EntryID
	Detail  string
}

func (w Warning) String() string {
	if w.EntryID != 0 {
		return fmt.Sprintf("[%s] %s: entry %d: %s", w.Stage, w.Kind, w.EntryID, w.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Stage, w.Kind, w.Detail)
}
