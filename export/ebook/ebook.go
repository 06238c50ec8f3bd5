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

// Package ebook exports rendered entries as an EPUB dictionary for ebook
// readers.
//
// Entries are grouped into one XHTML page per letter of the Pāli
// alphabet, ordered by Pāli collation rather than byte order. Internal
// cross-links resolve to in-document anchors; links whose target was
// excluded from a filtered export degrade to plain text so the book never
// contains a dangling anchor.
package ebook

import (
	"archive/zip"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/pali"
)

var errMissingTitle = errors.New("title is required")

// miscLetter is the page for headwords with no Pāli first letter.
const miscLetter = "misc"

// Options configure the exported book.
type Options struct {
	// Title is the book title. Required.
	Title string

	Author string

	// BuildTime is stamped into the book metadata and the archive. Using
	// a fixed time keeps repeated exports byte-identical.
	BuildTime time.Time

	// Filter restricts the export to entries for which it returns true.
	// nil exports everything.
	Filter func(dpd.EntryID) bool
}

// Export writes the EPUB to path. Partial output is discarded on failure.
func Export(entries []*dpd.RenderedEntry, path string, opts Options) (*dpd.Artifact, []dpd.Warning, error) {
	if opts.Title == "" {
		return nil, nil, &dpd.ExportError{Target: "ebook", Err: errMissingTitle}
	}

	included := make([]*dpd.RenderedEntry, 0, len(entries))
	includedIDs := map[dpd.EntryID]bool{}
	for _, re := range entries {
		if opts.Filter != nil && !opts.Filter(re.ID) {
			continue
		}
		included = append(included, re)
		includedIDs[re.ID] = true
	}

	slices.SortFunc(included, func(a, b *dpd.RenderedEntry) int {
		if c := pali.Compare(a.Headword, b.Headword); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})

	pages, pageOf := paginate(included)

	f, err := os.CreateTemp(filepath.Dir(path), ".ebook-*")
	if err != nil {
		return nil, nil, &dpd.ExportError{Target: "ebook", Err: err}
	}
	defer func() {
		f.Close()
		os.Remove(f.Name())
	}()

	if err := writeEpub(f, pages, pageOf, includedIDs, &opts); err != nil {
		return nil, nil, &dpd.ExportError{Target: "ebook", Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, nil, &dpd.ExportError{Target: "ebook", Err: err}
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return nil, nil, &dpd.ExportError{Target: "ebook", Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, &dpd.ExportError{Target: "ebook", Err: err}
	}
	return &dpd.Artifact{
		Target:  "ebook",
		Name:    filepath.Base(path),
		Path:    path,
		Size:    info.Size(),
		Records: len(included),
	}, nil, nil
}

// page is one per-letter XHTML file.
type page struct {
	letter  string
	file    string
	entries []*dpd.RenderedEntry
}

// paginate groups sorted entries into per-letter pages in alphabet order
// and returns the page file each entry landed on, needed to resolve
// cross-page anchors.
func paginate(sorted []*dpd.RenderedEntry) ([]*page, map[dpd.EntryID]string) {
	byLetter := map[string][]*dpd.RenderedEntry{}
	for _, re := range sorted {
		letter := pali.FirstLetter(re.Headword)
		if letter == "" {
			letter = miscLetter
		}
		byLetter[letter] = append(byLetter[letter], re)
	}

	letters := append(slices.Clone(pali.Alphabet), miscLetter)
	var pages []*page
	pageOf := map[dpd.EntryID]string{}
	for i, letter := range letters {
		es := byLetter[letter]
		if len(es) == 0 {
			continue
		}
		p := &page{
			letter:  letter,
			file:    fmt.Sprintf("text/%02d_%s.xhtml", i, pali.FoldDiacritics(letter)),
			entries: es,
		}
		pages = append(pages, p)
		for _, re := range es {
			pageOf[re.ID] = p.file
		}
	}
	return pages, pageOf
}

func writeEpub(f *os.File, pages []*page, pageOf map[dpd.EntryID]string, included map[dpd.EntryID]bool, opts *Options) error {
	w := zip.NewWriter(f)

	// The mimetype member must come first and be stored uncompressed.
	mt, err := w.CreateHeader(&zip.FileHeader{
		Name:     "mimetype",
		Method:   zip.Store,
		Modified: opts.BuildTime,
	})
	if err != nil {
		return err
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		return err
	}

	add := func(name, content string) error {
		fw, err := w.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: opts.BuildTime,
		})
		if err != nil {
			return err
		}
		_, err = fw.Write([]byte(content))
		return err
	}

	if err := add("META-INF/container.xml", containerXML); err != nil {
		return err
	}
	if err := add("OEBPS/content.opf", contentOPF(pages, opts)); err != nil {
		return err
	}
	if err := add("OEBPS/text/titlepage.xhtml", titlePage(opts)); err != nil {
		return err
	}
	for _, p := range pages {
		if err := add("OEBPS/"+p.file, letterPage(p, pageOf, included)); err != nil {
			return err
		}
	}

	return w.Close()
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

func contentOPF(pages []*page, opts *Options) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)
	fmt.Fprintf(&b, "    <dc:identifier id=\"uid\">%s</dc:identifier>\n", html.EscapeString(opts.Title))
	fmt.Fprintf(&b, "    <dc:title>%s</dc:title>\n", html.EscapeString(opts.Title))
	if opts.Author != "" {
		fmt.Fprintf(&b, "    <dc:creator>%s</dc:creator>\n", html.EscapeString(opts.Author))
	}
	b.WriteString("    <dc:language>pi</dc:language>\n")
	fmt.Fprintf(&b, "    <dc:date>%s</dc:date>\n", opts.BuildTime.UTC().Format("2006-01-02T15:04:05Z"))
	b.WriteString("  </metadata>\n  <manifest>\n")
	b.WriteString("    <item id=\"titlepage\" href=\"text/titlepage.xhtml\" media-type=\"application/xhtml+xml\"/>\n")
	for i, p := range pages {
		fmt.Fprintf(&b, "    <item id=\"page%d\" href=\"%s\" media-type=\"application/xhtml+xml\"/>\n", i, p.file)
	}
	b.WriteString("  </manifest>\n  <spine>\n")
	b.WriteString("    <itemref idref=\"titlepage\"/>\n")
	for i := range pages {
		fmt.Fprintf(&b, "    <itemref idref=\"page%d\"/>\n", i)
	}
	b.WriteString("  </spine>\n</package>\n")
	return b.String()
}

func titlePage(opts *Options) string {
	return xhtmlPage(opts.Title, fmt.Sprintf(
		"<h1>%s</h1>\n<p>%s</p>",
		html.EscapeString(opts.Title),
		opts.BuildTime.UTC().Format("2006-01-02 15:04"),
	))
}

func letterPage(p *page, pageOf map[dpd.EntryID]string, included map[dpd.EntryID]bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(p.letter))
	for _, re := range p.entries {
		fmt.Fprintf(&b, "<p id=\"e%d\">", re.ID)
		b.WriteString(entryHTML(re, p.file, pageOf, included))
		b.WriteString("</p>\n")
	}
	return xhtmlPage(p.letter, b.String())
}

func xhtmlPage(title, body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>%s</title></head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body)
}

// entryHTML renders an entry's spans into the ebook markup dialect.
// Cross-links to entries in this export become anchors; links to excluded
// entries degrade to plain text.
func entryHTML(re *dpd.RenderedEntry, file string, pageOf map[dpd.EntryID]string, included map[dpd.EntryID]bool) string {
	var b strings.Builder
	for _, span := range re.Body {
		switch span.Kind {
		case dpd.SpanEmphasis:
			b.WriteString("<b>" + escapeText(span.Text) + "</b>")
		case dpd.SpanCrossLink:
			if !included[span.Target] {
				b.WriteString(escapeText(span.Text))
				continue
			}
			href := fmt.Sprintf("#e%d", span.Target)
			if target := pageOf[span.Target]; target != file {
				// Anchor lives on another letter page. All letter pages
				// share a directory, so the base name is the relative path.
				href = filepath.Base(target) + href
			}
			b.WriteString(fmt.Sprintf("<a href=\"%s\">%s</a>", href, escapeText(span.Text)))
		case dpd.SpanGrammarRef:
			b.WriteString(grammarTable(re.GrammarForms))
		default:
			b.WriteString(escapeText(span.Text))
		}
	}
	return b.String()
}

// escapeText escapes text for XHTML. Ampersands are spelled out because
// some ereader converters mangle entities inside dictionary entries.
func escapeText(s string) string {
	return html.EscapeString(strings.ReplaceAll(s, "&", " and "))
}

func grammarTable(forms []dpd.GrammarForm) string {
	if len(forms) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<table>")
	for _, f := range forms {
		b.WriteString("<tr><td>" + escapeText(f.Label) + "</td><td>" + escapeText(f.Surface) + "</td></tr>")
	}
	b.WriteString("</table>")
	return b.String()
}
