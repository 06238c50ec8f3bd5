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

package ebook_test

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/export/ebook"
)

var buildTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func rendered(id dpd.EntryID, headword string, body ...dpd.Span) *dpd.RenderedEntry {
	if len(body) == 0 {
		body = []dpd.Span{
			{Kind: dpd.SpanEmphasis, Text: headword},
			{Kind: dpd.SpanText, Text: ". a word"},
		}
	}
	return &dpd.RenderedEntry{ID: id, Headword: headword, Body: body}
}

// readBook opens an exported EPUB and returns its members in archive
// order, mapped to their contents.
func readBook(t *testing.T, path string) ([]string, map[string]string) {
	t.Helper()

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var names []string
	contents := map[string]string{}
	for _, f := range r.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		contents[f.Name] = string(b)
	}
	return names, contents
}

// pageFor finds the letter page containing the given entry anchor.
func pageFor(t *testing.T, contents map[string]string, id dpd.EntryID) (string, string) {
	t.Helper()

	anchor := fmt.Sprintf("id=\"e%d\"", id)
	for name, body := range contents {
		if strings.HasPrefix(name, "OEBPS/text/") && strings.Contains(body, anchor) {
			return name, body
		}
	}
	t.Fatalf("no page contains anchor %s", anchor)
	return "", ""
}

func TestExport(t *testing.T) {
	t.Parallel()

	entries := []*dpd.RenderedEntry{
		rendered(1, "dhamma"),
		rendered(2, "cakka"),
		rendered(3, "añjali"),
	}

	path := filepath.Join(t.TempDir(), "dict.epub")
	artifact, warnings, err := ebook.Export(entries, path, ebook.Options{
		Title:     "Test Dictionary",
		BuildTime: buildTime,
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v; want none", warnings)
	}
	if artifact.Records != 3 {
		t.Errorf("Records = %d; want 3", artifact.Records)
	}

	names, contents := readBook(t, path)

	// The mimetype member must come first.
	if names[0] != "mimetype" {
		t.Errorf("first member = %q; want mimetype", names[0])
	}
	if got := contents["mimetype"]; got != "application/epub+zip" {
		t.Errorf("mimetype = %q", got)
	}
	if _, ok := contents["META-INF/container.xml"]; !ok {
		t.Error("missing META-INF/container.xml")
	}

	opf := contents["OEBPS/content.opf"]
	if !strings.Contains(opf, "<dc:title>Test Dictionary</dc:title>") {
		t.Errorf("content.opf missing title:\n%s", opf)
	}
	if !strings.Contains(opf, "<dc:date>2024-06-01T12:00:00Z</dc:date>") {
		t.Errorf("content.opf missing build date:\n%s", opf)
	}

	// One page per letter with entries, each entry anchored by ID.
	aPage, aBody := pageFor(t, contents, 3)
	cPage, _ := pageFor(t, contents, 2)
	dPage, _ := pageFor(t, contents, 1)
	if aPage == cPage || cPage == dPage {
		t.Errorf("letters share a page: a=%q c=%q dh=%q", aPage, cPage, dPage)
	}
	if !strings.Contains(aBody, "<b>añjali</b>") {
		t.Errorf("añjali page missing entry markup:\n%s", aBody)
	}

	// Letter pages appear in the spine in Pāli alphabet order.
	aPos := strings.Index(opf, filepath.Base(aPage))
	cPos := strings.Index(opf, filepath.Base(cPage))
	dPos := strings.Index(opf, filepath.Base(dPage))
	if !(aPos < cPos && cPos < dPos) {
		t.Errorf("manifest order a=%d c=%d dh=%d; want a < c < dh", aPos, cPos, dPos)
	}
}

func TestExport_crossLinks(t *testing.T) {
	t.Parallel()

	entries := []*dpd.RenderedEntry{
		rendered(1, "dhamma",
			dpd.Span{Kind: dpd.SpanText, Text: "see "},
			dpd.Span{Kind: dpd.SpanCrossLink, Text: "cakka", Target: 2},
		),
		rendered(2, "cakka"),
		rendered(3, "cakkavatti",
			dpd.Span{Kind: dpd.SpanText, Text: "see "},
			dpd.Span{Kind: dpd.SpanCrossLink, Text: "cakka", Target: 2},
		),
	}

	path := filepath.Join(t.TempDir(), "dict.epub")
	_, _, err := ebook.Export(entries, path, ebook.Options{Title: "t", BuildTime: buildTime})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	_, contents := readBook(t, path)

	// Link from another letter page carries the target page file name.
	cPage, _ := pageFor(t, contents, 2)
	_, dBody := pageFor(t, contents, 1)
	want := fmt.Sprintf("<a href=\"%s#e2\">cakka</a>", filepath.Base(cPage))
	if !strings.Contains(dBody, want) {
		t.Errorf("dhamma page missing cross-page link %q:\n%s", want, dBody)
	}

	// Link within the same page is a bare fragment.
	_, cBody := pageFor(t, contents, 3)
	if !strings.Contains(cBody, "<a href=\"#e2\">cakka</a>") {
		t.Errorf("cakkavatti page missing same-page link:\n%s", cBody)
	}
}

func TestExport_filterDegradesLinks(t *testing.T) {
	t.Parallel()

	entries := []*dpd.RenderedEntry{
		rendered(1, "dhamma",
			dpd.Span{Kind: dpd.SpanText, Text: "see "},
			dpd.Span{Kind: dpd.SpanCrossLink, Text: "cakka", Target: 2},
		),
		rendered(2, "cakka"),
	}

	path := filepath.Join(t.TempDir(), "dict.epub")
	artifact, _, err := ebook.Export(entries, path, ebook.Options{
		Title:     "t",
		BuildTime: buildTime,
		Filter:    func(id dpd.EntryID) bool { return id == 1 },
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if artifact.Records != 1 {
		t.Errorf("Records = %d; want 1", artifact.Records)
	}

	_, contents := readBook(t, path)
	_, dBody := pageFor(t, contents, 1)
	if strings.Contains(dBody, "<a ") {
		t.Errorf("excluded target still linked:\n%s", dBody)
	}
	if !strings.Contains(dBody, "cakka") {
		t.Errorf("degraded link lost its text:\n%s", dBody)
	}
}

func TestExport_escapesAmpersand(t *testing.T) {
	t.Parallel()

	entries := []*dpd.RenderedEntry{
		rendered(1, "dhamma", dpd.Span{Kind: dpd.SpanText, Text: "law & order"}),
	}

	path := filepath.Join(t.TempDir(), "dict.epub")
	_, _, err := ebook.Export(entries, path, ebook.Options{Title: "t", BuildTime: buildTime})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	_, contents := readBook(t, path)
	_, body := pageFor(t, contents, 1)
	if !strings.Contains(body, "law  and  order") {
		t.Errorf("ampersand not spelled out:\n%s", body)
	}
}

func TestExport_missingTitle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dict.epub")
	_, _, err := ebook.Export(nil, path, ebook.Options{BuildTime: buildTime})

	var exportErr *dpd.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("err = %v; want ExportError", err)
	}
	if exportErr.Target != "ebook" {
		t.Errorf("Target = %q; want ebook", exportErr.Target)
	}

	// No partial output.
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial output left behind: %v", err)
	}
}

func TestExport_idempotent(t *testing.T) {
	t.Parallel()

	entries := []*dpd.RenderedEntry{
		rendered(1, "dhamma"),
		rendered(2, "cakka"),
	}

	dir := t.TempDir()
	opts := ebook.Options{Title: "t", BuildTime: buildTime}

	first := filepath.Join(dir, "a.epub")
	second := filepath.Join(dir, "b.epub")
	if _, _, err := ebook.Export(entries, first, opts); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ebook.Export(entries, second, opts); err != nil {
		t.Fatal(err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("repeated exports with a fixed build time differ")
	}
}
