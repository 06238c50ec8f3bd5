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

// Package stardict exports rendered entries as a StarDict dictionary.
//
// A StarDict dictionary is a set of files sharing a base name:
//
//  1. An .ifo file with metadata about the dictionary.
//  2. An .idx file mapping search words to offsets into the .dict file.
//  3. A .dict.dz file with the article data, dictzip compressed.
//  4. A .syn file linking synonym words to index entries. Every alternate
//     spelling, diacritic-free form and inflected form of an entry is
//     written here so that exact-match lookup works from any variant.
package stardict

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"html"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ianlewis/go-dictzip"

	dpd "github.com/windwerfer/dpd-db"
)

const (
	ifoMagic = "StarDict's dict ifo file"

	// formatVersion is the dictionary format version. Version 3.0.0 is
	// required for .syn support.
	formatVersion = "3.0.0"
)

var errMissingBookname = errors.New("bookname is required")

// Options configure the exported dictionary's metadata.
type Options struct {
	// Bookname is the dictionary display name. Required by the format.
	Bookname string

	// Basename is the base file name of the dictionary files. Defaults to
	// "dpd".
	Basename string

	Author      string
	Email       string
	Website     string
	Description string
}

func (o *Options) basename() string {
	if o.Basename != "" {
		return o.Basename
	}
	return "dpd"
}

// Export writes a StarDict dictionary for the rendered entries into a
// directory under dir. Entries are written in index order; the artifact is
// byte-identical across runs for identical inputs.
//
// On failure all partial output is discarded; the target directory is
// only created on success.
func Export(entries []*dpd.RenderedEntry, dir string, opts Options) (*dpd.Artifact, error) {
	if opts.Bookname == "" {
		return nil, &dpd.ExportError{Target: "stardict", Err: errMissingBookname}
	}

	// Build into a staging directory; rename into place only when every
	// file is complete.
	staging, err := os.MkdirTemp(dir, ".stardict-*")
	if err != nil {
		return nil, &dpd.ExportError{Target: "stardict", Err: err}
	}
	defer os.RemoveAll(staging)

	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b *dpd.RenderedEntry) int {
		return idxCompare(a.Headword, b.Headword)
	})

	size, err := writeFiles(sorted, staging, &opts)
	if err != nil {
		return nil, &dpd.ExportError{Target: "stardict", Err: err}
	}

	target := filepath.Join(dir, opts.basename())
	if err := os.RemoveAll(target); err != nil {
		return nil, &dpd.ExportError{Target: "stardict", Err: err}
	}
	if err := os.Rename(staging, target); err != nil {
		return nil, &dpd.ExportError{Target: "stardict", Err: err}
	}

	return &dpd.Artifact{
		Target:  "stardict",
		Name:    opts.basename(),
		Path:    target,
		Size:    size,
		Records: len(sorted),
	}, nil
}

func writeFiles(sorted []*dpd.RenderedEntry, staging string, opts *Options) (int64, error) {
	var dictBuf bytes.Buffer
	var idxBuf bytes.Buffer

	// entryIndex maps each entry to its .idx position for .syn links.
	entryIndex := make(map[dpd.EntryID]uint32, len(sorted))

	for i, re := range sorted {
		article := articleHTML(re)

		offset := dictBuf.Len()
		if int64(offset)+int64(len(article)) > math.MaxUint32 {
			return 0, fmt.Errorf("dict data exceeds 32-bit offsets at %q", re.Headword)
		}
		dictBuf.Write(article)

		idxBuf.WriteString(re.Headword)
		idxBuf.WriteByte(0)
		var fixed [8]byte
		binary.BigEndian.PutUint32(fixed[:4], uint32(offset))
		binary.BigEndian.PutUint32(fixed[4:], uint32(len(article)))
		idxBuf.Write(fixed[:])

		entryIndex[re.ID] = uint32(i)
	}

	synBuf, synCount := writeSyn(sorted, entryIndex)

	base := filepath.Join(staging, opts.basename())

	dictFile, err := os.Create(base + ".dict.dz")
	if err != nil {
		return 0, err
	}
	z, err := dictzip.NewWriter(dictFile)
	if err != nil {
		dictFile.Close()
		return 0, err
	}
	if _, err := z.Write(dictBuf.Bytes()); err != nil {
		z.Close()
		dictFile.Close()
		return 0, err
	}
	if err := z.Close(); err != nil {
		dictFile.Close()
		return 0, err
	}
	if err := dictFile.Close(); err != nil {
		return 0, err
	}

	if err := os.WriteFile(base+".idx", idxBuf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	if synCount > 0 {
		if err := os.WriteFile(base+".syn", synBuf, 0o644); err != nil {
			return 0, err
		}
	}

	ifo := renderIfo(opts, len(sorted), synCount, idxBuf.Len())
	if err := os.WriteFile(base+".ifo", []byte(ifo), 0o644); err != nil {
		return 0, err
	}

	var size int64
	files, err := os.ReadDir(staging)
	if err != nil {
		return 0, err
	}
	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			return 0, err
		}
		size += info.Size()
	}
	return size, nil
}

// writeSyn writes every lookup form except the headword itself as a
// synonym pointing at the entry's index position.
func writeSyn(sorted []*dpd.RenderedEntry, entryIndex map[dpd.EntryID]uint32) ([]byte, int) {
	type synEntry struct {
		word  string
		index uint32
	}

	var syns []synEntry
	for _, re := range sorted {
		seen := map[string]bool{re.Headword: true}
		for _, form := range re.LookupForms {
			if seen[form] {
				continue
			}
			seen[form] = true
			syns = append(syns, synEntry{word: form, index: entryIndex[re.ID]})
		}
	}

	slices.SortFunc(syns, func(a, b synEntry) int {
		if c := idxCompare(a.word, b.word); c != 0 {
			return c
		}
		return int(a.index) - int(b.index)
	})

	var buf bytes.Buffer
	for _, s := range syns {
		buf.WriteString(s.word)
		buf.WriteByte(0)
		var fixed [4]byte
		binary.BigEndian.PutUint32(fixed[:], s.index)
		buf.Write(fixed[:])
	}
	return buf.Bytes(), len(syns)
}

func renderIfo(opts *Options, wordcount, synwordcount, idxfilesize int) string {
	var b strings.Builder
	b.WriteString(ifoMagic + "\n")
	b.WriteString("version=" + formatVersion + "\n")
	b.WriteString("bookname=" + opts.Bookname + "\n")
	fmt.Fprintf(&b, "wordcount=%d\n", wordcount)
	if synwordcount > 0 {
		fmt.Fprintf(&b, "synwordcount=%d\n", synwordcount)
	}
	fmt.Fprintf(&b, "idxfilesize=%d\n", idxfilesize)
	b.WriteString("sametypesequence=h\n")
	if opts.Author != "" {
		b.WriteString("author=" + opts.Author + "\n")
	}
	if opts.Email != "" {
		b.WriteString("email=" + opts.Email + "\n")
	}
	if opts.Website != "" {
		b.WriteString("website=" + opts.Website + "\n")
	}
	if opts.Description != "" {
		b.WriteString("description=" + opts.Description + "\n")
	}
	return b.String()
}

// idxCompare orders index words the way StarDict requires: ASCII
// case-insensitive comparison first, byte comparison as tie break.
func idxCompare(a, b string) int {
	if c := strings.Compare(asciiLower(a), asciiLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// articleHTML renders the format-neutral spans into the HTML dialect
// ('h' data type) stored in the .dict file.
func articleHTML(re *dpd.RenderedEntry) []byte {
	var b strings.Builder
	for _, span := range re.Body {
		switch span.Kind {
		case dpd.SpanEmphasis:
			b.WriteString("<b>" + html.EscapeString(span.Text) + "</b>")
		case dpd.SpanCrossLink:
			// bword:// links trigger an in-dictionary lookup in StarDict
			// compatible readers.
			b.WriteString(`<a href="bword://` + html.EscapeString(span.Text) + `">` +
				html.EscapeString(span.Text) + "</a>")
		case dpd.SpanGrammarRef:
			b.WriteString(grammarTable(re.GrammarForms))
		default:
			b.WriteString(html.EscapeString(span.Text))
		}
	}
	return []byte(b.String())
}

func grammarTable(forms []dpd.GrammarForm) string {
	if len(forms) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<table>")
	for _, f := range forms {
		b.WriteString("<tr><td>" + html.EscapeString(f.Label) + "</td><td>" +
			html.EscapeString(f.Surface) + "</td></tr>")
	}
	b.WriteString("</table>")
	return b.String()
}
