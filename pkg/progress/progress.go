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

package progress

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/walteh/repopack/pkg/download"
)

const currentFileWidth = 40

// 🎯 Reporter renders download progress to the terminal.
//
// Three modes: a progress bar with the current file as its title
// (default), one line per completed file (verbose), or nothing until the
// final summary (quiet). Methods are called from the orchestrator's
// aggregating goroutine only, so no locking is needed.
type Reporter struct {
	bar     *pterm.ProgressbarPrinter
	total   int
	count   int
	verbose bool
	quiet   bool
	noBar   bool
}

// 🏭 NewReporter creates a reporter for total files.
func NewReporter(total int, verbose, quiet, noBar bool) *Reporter {
	return &Reporter{
		total:   total,
		verbose: verbose && !quiet,
		quiet:   quiet,
		noBar:   noBar || verbose || quiet,
	}
}

// Start begins rendering. Must be called before Record.
func (r *Reporter) Start() {
	if r.verbose {
		fmt.Printf("Downloading %d files...\n", r.total)
	}

	if r.noBar {
		return
	}

	bar, err := pterm.DefaultProgressbar.
		WithTotal(r.total).
		WithTitle("Downloading").
		WithRemoveWhenDone(true).
		Start()
	if err != nil {
		// Degrade to bar-less output rather than failing the run.
		r.noBar = true
		return
	}
	r.bar = bar
}

// Record renders one completed outcome.
func (r *Reporter) Record(path string, outcome download.Outcome, err error) {
	r.count++

	if r.verbose {
		switch outcome {
		case download.OutcomeDownloaded:
			fmt.Printf("  [%d/%d] %s %s\n", r.count, r.total, path, color.GreenString("✓"))
		case download.OutcomeSkipped:
			fmt.Printf("  [%d/%d] %s %s\n", r.count, r.total, path, color.CyanString("skipped"))
		case download.OutcomeFailed:
			fmt.Printf("  [%d/%d] %s %s %v\n", r.count, r.total, path, color.RedString("✗"), err)
		}
	}

	if r.bar != nil {
		r.bar.UpdateTitle("Downloading " + truncatePath(path, currentFileWidth))
		r.bar.Increment()
	}
}

// Finish stops the bar. Safe to call in every mode.
func (r *Reporter) Finish() {
	if r.bar != nil {
		_, _ = r.bar.Stop()
		r.bar = nil
	}
}

// Warnf prints a highlighted warning, bypassing quiet mode.
func (r *Reporter) Warnf(format string, args ...any) {
	pterm.Warning.Printfln(format, args...)
}

// truncatePath shortens long paths from the left, keeping the tail and
// cutting at a separator when one is in reach.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	const ellipsis = "…/"
	available := maxLen - len(ellipsis)
	tail := path[len(path)-available:]

	if idx := strings.Index(tail, "/"); idx >= 0 {
		return ellipsis + tail[idx+1:]
	}
	return ellipsis + tail
}
