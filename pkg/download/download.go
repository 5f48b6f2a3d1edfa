// Copyright 2025 walteh LLC
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

package download

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/repopack/pkg/locator"
	"golang.org/x/sync/semaphore"
)

// 🎯 Outcome is the terminal state of one file's unit of work.
type Outcome int

const (
	OutcomeDownloaded Outcome = iota
	OutcomeSkipped
	OutcomeFailed
	OutcomeCancelled
)

// 🎯 Fetcher retrieves the raw bytes of one repository file.
type Fetcher interface {
	DownloadFile(ctx context.Context, loc *locator.Locator, path string) ([]byte, error)
}

// 📦 FileError pairs a file path with the error that sank it.
type FileError struct {
	Path string
	Err  error
}

// 📦 Result aggregates per-file outcomes for one run. Built by the
// orchestrator as completions arrive; immutable once returned.
type Result struct {
	Downloaded int
	Skipped    int
	Failed     int
	Cancelled  bool
	Errors     []FileError
}

// Incomplete returns how many of total files never reached a recorded
// downloaded/skipped/failed outcome (meaningful after cancellation).
func (r *Result) Incomplete(total int) int {
	return total - r.Downloaded - r.Skipped - r.Failed
}

// 🎯 Options configures a download run.
type Options struct {
	// BaseDir is the anchor component for output paths: the last path
	// segment of the resolved listing directory. Empty mirrors full
	// repository paths.
	BaseDir string

	// OutputDir is the root every written file must stay under.
	OutputDir string

	// Concurrency bounds the number of in-flight downloads.
	Concurrency int64

	// Resume skips files that already exist at their target path.
	Resume bool

	// OnProgress, when set, is called once per recorded outcome. Called
	// from the aggregating goroutine only, never concurrently.
	OnProgress func(path string, outcome Outcome, err error)
}

type fileOutcome struct {
	path    string
	outcome Outcome
	err     error
}

// 🏃 Run downloads files concurrently, bounded by opts.Concurrency.
//
// Each unit of work checks for cancellation before and after acquiring
// its concurrency slot; cancellation is cooperative, so work already past
// those checks runs to completion. Outcomes are aggregated as they
// complete, in no particular order, by a single consumer — the units of
// work share nothing but the semaphore and the cancellation flag. When
// ctx is cancelled the run stops waiting for further completions and
// returns with Cancelled set.
func Run(ctx context.Context, fetcher Fetcher, loc *locator.Locator, files []string, opts Options) *Result {
	logger := zerolog.Ctx(ctx)

	sem := semaphore.NewWeighted(opts.Concurrency)
	var cancelled atomic.Bool

	// Buffered so completions never block once the aggregator stops
	// consuming after cancellation.
	outcomes := make(chan fileOutcome, len(files))

	var wg sync.WaitGroup
	for _, filePath := range files {
		wg.Add(1)
		go func(filePath string) {
			defer wg.Done()
			outcomes <- processFile(ctx, fetcher, loc, sem, &cancelled, filePath, opts)
		}(filePath)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &Result{}

	for {
		select {
		case <-ctx.Done():
			cancelled.Store(true)
			result.Cancelled = true
			logger.Debug().Int("completed", result.Downloaded+result.Skipped+result.Failed).Msg("download cancelled")
			return result

		case outcome, ok := <-outcomes:
			if !ok {
				return result
			}
			record(result, outcome)
			if opts.OnProgress != nil {
				opts.OnProgress(outcome.path, outcome.outcome, outcome.err)
			}
		}
	}
}

func record(result *Result, o fileOutcome) {
	switch o.outcome {
	case OutcomeDownloaded:
		result.Downloaded++
	case OutcomeSkipped:
		result.Skipped++
	case OutcomeFailed:
		result.Failed++
		result.Errors = append(result.Errors, FileError{Path: o.path, Err: o.err})
	case OutcomeCancelled:
		// not counted; Incomplete covers these
	}
}

// processFile is one unit of work: cancellation check, slot acquisition,
// re-check, optional resume skip, then fetch and save.
func processFile(ctx context.Context, fetcher Fetcher, loc *locator.Locator, sem *semaphore.Weighted, cancelled *atomic.Bool, filePath string, opts Options) fileOutcome {
	if cancelled.Load() {
		return fileOutcome{path: filePath, outcome: OutcomeCancelled}
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		// Context cancelled while waiting for a slot.
		return fileOutcome{path: filePath, outcome: OutcomeCancelled}
	}
	defer sem.Release(1)

	if cancelled.Load() {
		return fileOutcome{path: filePath, outcome: OutcomeCancelled}
	}

	if opts.Resume {
		if relative, err := ExtractRelativePath(opts.BaseDir, filePath); err == nil {
			if _, statErr := os.Stat(filepath.Join(opts.OutputDir, filepath.FromSlash(relative))); statErr == nil {
				return fileOutcome{path: filePath, outcome: OutcomeSkipped}
			}
		}
	}

	content, err := fetcher.DownloadFile(ctx, loc, filePath)
	if err != nil {
		return fileOutcome{path: filePath, outcome: OutcomeFailed, err: err}
	}

	if _, err := Save(opts.BaseDir, filePath, content, opts.OutputDir); err != nil {
		return fileOutcome{path: filePath, outcome: OutcomeFailed, err: err}
	}

	return fileOutcome{path: filePath, outcome: OutcomeDownloaded}
}

// 🔍 FilterIgnored drops paths matching any of the doublestar patterns.
// Patterns that fail to compile are skipped with a debug log.
func FilterIgnored(ctx context.Context, files []string, patterns []string) []string {
	if len(patterns) == 0 {
		return files
	}

	logger := zerolog.Ctx(ctx)

	var kept []string
	for _, file := range files {
		ignored := false
		for _, pattern := range patterns {
			matched, err := doublestar.Match(pattern, file)
			if err != nil {
				logger.Debug().Str("pattern", pattern).Err(err).Msg("error matching pattern")
				continue
			}
			if matched {
				logger.Debug().Str("file", file).Str("pattern", pattern).Msg("file ignored by pattern")
				ignored = true
				break
			}
		}
		if !ignored {
			kept = append(kept, file)
		}
	}

	return kept
}
