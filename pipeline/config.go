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
	"bufio"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	dpd "github.com/windwerfer/dpd-db"
)

// Known export targets.
const (
	TargetStardict  = "stardict"
	TargetFlashcard = "flashcard"
	TargetEbook     = "ebook"
)

var allTargets = []string{TargetStardict, TargetFlashcard, TargetEbook}

// Config configures a pipeline run. The zero value is not usable; use
// DefaultConfig or LoadConfig.
type Config struct {
	// DB is the path to the dictionary database.
	DB string `yaml:"db"`

	// RuleTable is the path to the inflection rule table.
	RuleTable string `yaml:"rule_table"`

	// Output is the directory artifacts are written into.
	Output string `yaml:"output"`

	// Archive is the release archive path. Empty means
	// <output>/dpd-export.zip.
	Archive string `yaml:"archive"`

	// Targets selects the exporters to run. Empty means all.
	Targets []string `yaml:"targets"`

	// Workers bounds per-stage concurrency. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// Bookname is the dictionary display name, required by the
	// dictionary-reader format.
	Bookname string `yaml:"bookname"`

	Author string `yaml:"author"`

	// DeckName tags exported flashcards.
	DeckName string `yaml:"deck_name"`

	// FieldLimit is the flashcard per-field byte limit. Zero uses the
	// exporter default.
	FieldLimit int `yaml:"field_limit"`

	// Filter is the path to a file of entry ids, one per line, restricting
	// the ebook export. Empty exports everything.
	Filter string `yaml:"filter"`

	// BuildTime is stamped into time-bearing artifacts. Setting it makes
	// repeated runs byte-identical; the zero value means the current time.
	BuildTime time.Time `yaml:"build_time"`
}

// DefaultConfig returns a config with defaults filled in.
func DefaultConfig() *Config {
	return &Config{
		Output:   "exports",
		Targets:  slices.Clone(allTargets),
		Workers:  runtime.GOMAXPROCS(0),
		Bookname: "Digital Pāli Dictionary",
		DeckName: "dpd",
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config before a run.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("config: db is required")
	}
	if c.RuleTable == "" {
		return fmt.Errorf("config: rule_table is required")
	}
	for _, target := range c.Targets {
		if !slices.Contains(allTargets, target) {
			return fmt.Errorf("config: unknown target %q (known: %s)",
				target, strings.Join(allTargets, ", "))
		}
	}
	return nil
}

func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c *Config) targets() []string {
	if len(c.Targets) > 0 {
		return c.Targets
	}
	return allTargets
}

func (c *Config) archive() string {
	if c.Archive != "" {
		return c.Archive
	}
	return c.Output + "/dpd-export.zip"
}

func (c *Config) buildTime() time.Time {
	if !c.BuildTime.IsZero() {
		return c.BuildTime
	}
	return time.Now().UTC().Truncate(time.Second)
}

// loadFilter reads an entry id set from the config's filter file. A nil
// set means no filtering.
func (c *Config) loadFilter() (map[dpd.EntryID]bool, error) {
	if c.Filter == "" {
		return nil, nil
	}

	f, err := os.Open(c.Filter)
	if err != nil {
		return nil, fmt.Errorf("opening filter: %w", err)
	}
	defer f.Close()

	ids := map[dpd.EntryID]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing filter line %q: %w", line, err)
		}
		ids[dpd.EntryID(id)] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading filter: %w", err)
	}
	return ids, nil
}
