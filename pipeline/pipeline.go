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

// Package pipeline drives a full export run: load entries, derive grammar
// forms and deconstructions, resolve cross-references, render, export and
// package.
//
// Stages run strictly in order with a barrier between them; inside the
// derivation and rendering stages entries are processed by a bounded
// worker pool. A failed exporter aborts only its own target; store and
// packaging failures abort the run. Every run, including a failed one,
// produces a Report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	dpd "github.com/windwerfer/dpd-db"
	"github.com/windwerfer/dpd-db/deconstruct"
	"github.com/windwerfer/dpd-db/export/ebook"
	"github.com/windwerfer/dpd-db/export/flashcard"
	"github.com/windwerfer/dpd-db/export/stardict"
	"github.com/windwerfer/dpd-db/grammar"
	"github.com/windwerfer/dpd-db/pali"
	"github.com/windwerfer/dpd-db/render"
	"github.com/windwerfer/dpd-db/store"
	"github.com/windwerfer/dpd-db/xref"
)

// State is a pipeline run state. A run moves through the states in order;
// StateFailed is terminal.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateDeriving
	StateResolving
	StateRendering
	StateExporting
	StatePackaging
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateLoading:   "loading",
	StateDeriving:  "deriving",
	StateResolving: "resolving",
	StateRendering: "rendering",
	StateExporting: "exporting",
	StatePackaging: "packaging",
	StateDone:      "done",
	StateFailed:    "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Report summarizes one run. It is emitted on every run, including
// failed ones, so that operators always see how far the run got.
type Report struct {
	State State

	// FailedStage names the stage a failed run stopped in.
	FailedStage string

	Entries         int
	GrammarForms    int
	Deconstructions int

	Warnings []dpd.Warning

	Artifacts []dpd.Artifact

	// FailedTargets maps export targets to the error that aborted them.
	FailedTargets map[string]error

	Elapsed time.Duration
}

// WarningCounts aggregates warnings by kind.
func (r *Report) WarningCounts() map[dpd.WarningKind]int {
	counts := map[dpd.WarningKind]int{}
	for _, w := range r.Warnings {
		counts[w.Kind]++
	}
	return counts
}

// Runner executes pipeline runs. The derivation cache persists across
// runs of the same Runner, so a rerun over mostly unchanged entries skips
// most derivation work.
type Runner struct {
	cfg *Config
	log *slog.Logger

	cache *derivationCache

	mu     sync.Mutex
	state  State
	report *Report
}

// New returns a Runner for the config. The config must have been
// validated.
func New(cfg *Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:   cfg,
		log:   logger,
		cache: newDerivationCache(),
		state: StateIdle,
	}
}

// State returns the current run state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.report.State = s
	r.mu.Unlock()
	r.log.Info("stage", "state", s.String())
}

func (r *Runner) fail(stage string, err error) error {
	r.mu.Lock()
	r.state = StateFailed
	r.report.State = StateFailed
	r.report.FailedStage = stage
	r.mu.Unlock()
	r.log.Error("run failed", "stage", stage, "err", err)
	return err
}

func (r *Runner) addWarnings(ws ...dpd.Warning) {
	if len(ws) == 0 {
		return
	}
	r.mu.Lock()
	r.report.Warnings = append(r.report.Warnings, ws...)
	r.mu.Unlock()
}

// Run executes one full pipeline run. The report is non-nil even when an
// error is returned.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	r.mu.Lock()
	r.report = &Report{State: StateIdle, FailedTargets: map[string]error{}}
	report := r.report
	r.mu.Unlock()
	defer func() {
		report.Elapsed = time.Since(start)
	}()

	// Loading.
	r.setState(StateLoading)
	entries, err := r.load(ctx)
	if err != nil {
		return report, r.fail("loading", err)
	}
	report.Entries = len(entries)
	r.log.Info("loaded entries", "count", len(entries))

	table, err := grammar.Load(r.cfg.RuleTable)
	if err != nil {
		return report, r.fail("loading", err)
	}

	// Deriving.
	r.setState(StateDeriving)
	forms, decons, err := r.derive(ctx, entries, table)
	if err != nil {
		return report, r.fail("deriving", err)
	}
	for _, fs := range forms {
		report.GrammarForms += len(fs)
	}

	// Resolving.
	r.setState(StateResolving)
	resolver := xref.NewResolver(entries)
	var deconList []*dpd.Deconstruction
	for _, d := range decons {
		if d != nil {
			deconList = append(deconList, d)
		}
	}
	report.Deconstructions = len(deconList)
	graph, warns := resolver.Build(entries, deconList)
	r.addWarnings(warns...)

	// Rendering.
	r.setState(StateRendering)
	rendered, err := r.render(ctx, entries, forms, resolver, graph)
	if err != nil {
		return report, r.fail("rendering", err)
	}

	// Exporting.
	r.setState(StateExporting)
	if err := r.export(ctx, rendered, report); err != nil {
		return report, r.fail("exporting", err)
	}

	// Packaging.
	r.setState(StatePackaging)
	if err := r.pack(report.Artifacts); err != nil {
		return report, r.fail("packaging", &dpd.PackagingError{Err: err})
	}

	r.setState(StateDone)
	return report, nil
}

func (r *Runner) load(ctx context.Context) ([]*dpd.Entry, error) {
	s, err := store.Open(r.cfg.DB)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.FetchAll(ctx)
}

// derive computes grammar forms and deconstructions for every entry with
// a bounded worker pool. Results are positional; warnings accumulate on
// the report. Grammar expansions are cached across runs keyed by entry
// content and rule table version; deconstructions are recomputed every
// run because they depend on the full headword set.
func (r *Runner) derive(ctx context.Context, entries []*dpd.Entry, table *grammar.RuleTable) ([][]dpd.GrammarForm, []*dpd.Deconstruction, error) {
	segmenter := deconstruct.NewSegmenter(entries)

	forms := make([][]dpd.GrammarForm, len(entries))
	decons := make([]*dpd.Deconstruction, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.workers())
	for i, e := range entries {
		g.Go(func() error {
			// Cancellation is cooperative between entries.
			if err := ctx.Err(); err != nil {
				return err
			}

			var ws []dpd.Warning

			var formsOK bool
			forms[i], formsOK = r.cache.forms(e, table)
			if !formsOK {
				ws = append(ws, dpd.Warning{
					Kind:    dpd.WarnUnknownInflectionClass,
					Stage:   "deriving",
					EntryID: e.ID,
					Detail:  fmt.Sprintf("class %q not in rule table", e.InflectionClass),
				})
			}

			if e.Compound {
				decon, err := segmenter.Deconstruct(e)
				if err != nil {
					ws = append(ws, dpd.Warning{
						Kind:    dpd.WarnDeconstructionFailed,
						Stage:   "deriving",
						EntryID: e.ID,
						Detail:  deconstructionReason(err),
					})
				} else {
					decons[i] = decon
				}
			}

			r.addWarnings(ws...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return forms, decons, nil
}

func deconstructionReason(err error) string {
	var dErr *dpd.DeconstructionError
	if errors.As(err, &dErr) {
		return dErr.Reason
	}
	return err.Error()
}

// render produces the format-neutral entry representations with a bounded
// worker pool.
func (r *Runner) render(ctx context.Context, entries []*dpd.Entry, forms [][]dpd.GrammarForm, resolver *xref.Resolver, graph *xref.Graph) ([]*dpd.RenderedEntry, error) {
	renderer := &render.Renderer{
		Resolver: resolver,
		Graph:    graph,
		Translit: func(text string) (string, error) {
			return pali.ToVelthuis(text), nil
		},
	}

	rendered := make([]*dpd.RenderedEntry, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.workers())
	for i, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			re, ws := renderer.Render(e, forms[i])
			rendered[i] = re
			r.addWarnings(ws...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rendered, nil
}

// export runs every configured target. A failing target is recorded on
// the report and does not stop the others.
func (r *Runner) export(ctx context.Context, rendered []*dpd.RenderedEntry, report *Report) error {
	if err := os.MkdirAll(r.cfg.Output, 0o755); err != nil {
		return err
	}

	filter, err := r.cfg.loadFilter()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, target := range r.cfg.targets() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			artifact, warnings, err := r.exportTarget(target, rendered, filter)
			r.addWarnings(warnings...)
			if err != nil {
				// A format constraint aborts only this target.
				r.log.Error("target failed", "target", target, "err", err)
				r.mu.Lock()
				report.FailedTargets[target] = err
				r.mu.Unlock()
				return nil
			}

			r.log.Info("exported", "target", target, "path", artifact.Path,
				"records", artifact.Records, "bytes", artifact.Size)
			r.mu.Lock()
			report.Artifacts = append(report.Artifacts, *artifact)
			r.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) exportTarget(target string, rendered []*dpd.RenderedEntry, filter map[dpd.EntryID]bool) (*dpd.Artifact, []dpd.Warning, error) {
	switch target {
	case TargetStardict:
		artifact, err := stardict.Export(rendered, r.cfg.Output, stardict.Options{
			Bookname: r.cfg.Bookname,
			Author:   r.cfg.Author,
		})
		return artifact, nil, err

	case TargetFlashcard:
		path := filepath.Join(r.cfg.Output, "dpd-flashcards.txt")
		return flashcard.Export(rendered, path, flashcard.Options{
			DeckName:   r.cfg.DeckName,
			FieldLimit: r.cfg.FieldLimit,
		})

	case TargetEbook:
		var filterFunc func(dpd.EntryID) bool
		if filter != nil {
			filterFunc = func(id dpd.EntryID) bool { return filter[id] }
		}
		path := filepath.Join(r.cfg.Output, "dpd.epub")
		return ebook.Export(rendered, path, ebook.Options{
			Title:     r.cfg.Bookname,
			Author:    r.cfg.Author,
			BuildTime: r.cfg.buildTime(),
			Filter:    filterFunc,
		})

	default:
		return nil, nil, fmt.Errorf("unknown target %q", target)
	}
}
