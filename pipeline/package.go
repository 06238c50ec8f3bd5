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
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	dpd "github.com/windwerfer/dpd-db"
)

// pack assembles the release archive from the exported artifacts. The
// archive is written to a temp file and renamed in on success; a failure
// leaves no partial archive behind.
//
// Artifacts are packed in target order regardless of which export
// goroutine finished first, so the archive is byte-identical across runs.
func (r *Runner) pack(artifacts []dpd.Artifact) error {
	if len(artifacts) == 0 {
		return fmt.Errorf("no artifacts to package")
	}

	artifacts = slices.Clone(artifacts)
	slices.SortFunc(artifacts, func(a, b dpd.Artifact) int {
		if c := strings.Compare(a.Target, b.Target); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	path := r.cfg.archive()
	f, err := os.CreateTemp(filepath.Dir(path), ".archive-*")
	if err != nil {
		return err
	}
	defer func() {
		f.Close()
		os.Remove(f.Name())
	}()

	w := zip.NewWriter(f)
	for _, artifact := range artifacts {
		if err := r.addArtifact(w, artifact); err != nil {
			return fmt.Errorf("adding %s: %w", artifact.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	r.log.Info("packaged release", "path", path, "bytes", info.Size())
	return nil
}

// addArtifact adds one artifact to the archive. Directory artifacts are
// walked in lexical order so the archive layout is deterministic; every
// member carries the configured build time instead of file mtimes.
func (r *Runner) addArtifact(w *zip.Writer, artifact dpd.Artifact) error {
	info, err := os.Stat(artifact.Path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return r.addFile(w, artifact.Path, artifact.Name)
	}

	return filepath.WalkDir(artifact.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(artifact.Path, path)
		if err != nil {
			return err
		}
		return r.addFile(w, path, filepath.ToSlash(filepath.Join(artifact.Name, rel)))
	})
}

func (r *Runner) addFile(w *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := w.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: r.cfg.buildTime(),
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
