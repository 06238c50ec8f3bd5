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

// Package dpd defines the data model shared by the Digital Pāli Dictionary
// export pipeline.
//
// The canonical dictionary is authored upstream and read here through the
// store package. The pipeline derives secondary data from it and renders
// each entry into a format-neutral representation consumed by the
// exporters:
//
//  1. Entries, senses, cross-reference declarations and compound flags are
//     read from the entry store.
//  2. Grammar forms are expanded from the rule table (package grammar) and
//     compound headwords are decomposed into constituents (package
//     deconstruct).
//  3. Cross-references are resolved into a global graph (package xref).
//  4. Each entry is rendered into a RenderedEntry (package render).
//  5. Exporters (export/stardict, export/flashcard, export/ebook) turn the
//     rendered entries into target artifacts.
//
// GrammarForm and RenderedEntry are rebuilt on every run. They are derived
// caches, never authoritative data.
package dpd
