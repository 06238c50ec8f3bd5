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

package testutil

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"os"
	"strings"
	"testing"

	"github.com/ianlewis/go-dictzip"
)

// IdxWord is one .idx file entry read back from an exported dictionary.
type IdxWord struct {
	Word   string
	Offset uint32
	Size   uint32
}

// SynWord is one .syn file entry read back from an exported dictionary.
type SynWord struct {
	Word      string
	WordIndex uint32
}

// ReadIfo parses an exported .ifo file into its key/value metadata. The
// magic line is returned under the key "magic".
func ReadIfo(t *testing.T, path string) map[string]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	metadata := map[string]string{}
	s := bufio.NewScanner(f)
	if s.Scan() {
		metadata["magic"] = s.Text()
	}
	for s.Scan() {
		line := s.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			t.Fatalf("malformed ifo line: %q", line)
		}
		metadata[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	return metadata
}

// ReadIdx reads back every entry of an exported 32-bit offset .idx file.
func ReadIdx(t *testing.T, path string) []IdxWord {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var words []IdxWord
	for len(b) > 0 {
		i := bytes.IndexByte(b, 0)
		if i < 0 || len(b) < i+1+8 {
			t.Fatalf("truncated idx entry at %d remaining bytes", len(b))
		}
		words = append(words, IdxWord{
			Word:   string(b[:i]),
			Offset: binary.BigEndian.Uint32(b[i+1:]),
			Size:   binary.BigEndian.Uint32(b[i+5:]),
		})
		b = b[i+9:]
	}
	return words
}

// ReadSyn reads back every entry of an exported .syn file.
func ReadSyn(t *testing.T, path string) []SynWord {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var words []SynWord
	for len(b) > 0 {
		i := bytes.IndexByte(b, 0)
		if i < 0 || len(b) < i+1+4 {
			t.Fatalf("truncated syn entry at %d remaining bytes", len(b))
		}
		words = append(words, SynWord{
			Word:      string(b[:i]),
			WordIndex: binary.BigEndian.Uint32(b[i+1:]),
		})
		b = b[i+5:]
	}
	return words
}

// ReadDictZip decompresses an exported .dict.dz file.
func ReadDictZip(t *testing.T, path string) []byte {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	z, err := dictzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer z.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(z); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// DictArticle extracts the article bytes for one idx entry from
// decompressed dict data.
func DictArticle(t *testing.T, data []byte, w IdxWord) []byte {
	t.Helper()

	if int(w.Offset)+int(w.Size) > len(data) {
		t.Fatalf("idx entry %q outside dict data: offset %d size %d len %d",
			w.Word, w.Offset, w.Size, len(data))
	}
	return data[w.Offset : w.Offset+w.Size]
}
