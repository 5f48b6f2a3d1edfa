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

package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/repopack/pkg/config"
	"github.com/walteh/repopack/pkg/download"
	"github.com/walteh/repopack/pkg/github"
	"github.com/walteh/repopack/pkg/locator"
	"github.com/walteh/repopack/pkg/progress"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	token          string
	outputDir      string
	limit          int64
	dryRun         bool
	resume         bool
	verbose        bool
	quiet          bool
	noProgress     bool
	debug          bool
	ignorePatterns []string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repopack <url>",
		Short: "Download files from GitHub repository directories",
		Long: "Repopack downloads the files under a GitHub repository directory,\n" +
			"preserving the directory structure, without cloning the repository.\n\n" +
			"Example: repopack https://github.com/owner/repo/tree/main/path/to/dir",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "GitHub personal access token (defaults to GITHUB_TOKEN, then the configured token file)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory for downloaded files")
	cmd.Flags().Int64VarP(&limit, "limit", "l", 0, "concurrent download limit (defaults to the configured value)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "preview files without downloading")
	cmd.Flags().BoolVarP(&resume, "resume", "r", false, "skip files that already exist locally")
	cmd.Flags().StringArrayVar(&ignorePatterns, "ignore", nil, "glob pattern of files to skip (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each file as it completes")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	return cmd
}

func run(cmd *cobra.Command, rawURL string) error {
	logLevel := zerolog.ErrorLevel
	if debug {
		logLevel = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(logLevel).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("loading config, falling back to defaults")
		cfg = config.Default()
	}

	if !cmd.Flags().Changed("limit") {
		limit = cfg.ConcurrentDownloadLimit
	}
	if limit < 1 {
		return errors.Errorf("concurrent download limit must be positive, got %d", limit)
	}
	if limit > 100 && !quiet {
		fmt.Fprintf(os.Stderr, "%s: high concurrent download limit (%d) may cause rate limiting\n",
			color.New(color.FgYellow, color.Bold).Sprint("warning"), limit)
	}

	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		token = cfg.ReadToken()
	}

	loc, err := locator.Parse(rawURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return err
	}

	client := github.New(ctx, token)

	// Listing resolves the default branch and slash-containing refs,
	// updating loc in place.
	files, err := client.ListFiles(ctx, loc)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return err
	}

	files = download.FilterIgnored(ctx, files, ignorePatterns)
	if len(files) == 0 {
		if !quiet {
			fmt.Printf("No files found under %s\n", loc)
		}
		return nil
	}

	if dryRun {
		fmt.Printf("Would download %d files from %s:\n", len(files), loc)
		for _, file := range files {
			fmt.Printf("  %s\n", file)
		}
		return nil
	}

	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return errors.Errorf("resolving output directory: %w", err)
	}

	baseDir := ""
	if loc.Dir != "" {
		baseDir = path.Base(loc.Dir)
	}

	reporter := progress.NewReporter(len(files), verbose, quiet, noProgress)
	reporter.Start()

	result := download.Run(ctx, client, loc, files, download.Options{
		BaseDir:     baseDir,
		OutputDir:   absOutput,
		Concurrency: limit,
		Resume:      resume,
		OnProgress:  reporter.Record,
	})

	reporter.Finish()
	printSummary(result, len(files))

	// Per-file failures still exit zero; only listing-time errors and
	// invalid input fail the process.
	return nil
}

func printSummary(result *download.Result, total int) {
	if !quiet {
		fmt.Printf("%s %d downloaded", color.GreenString("Done:"), result.Downloaded)
		if result.Skipped > 0 {
			fmt.Printf(", %d skipped", result.Skipped)
		}
		if result.Failed > 0 {
			fmt.Printf(", %s", color.RedString("%d failed", result.Failed))
		}
		fmt.Println()
	}

	if result.Failed > 0 {
		if verbose {
			for _, fileErr := range result.Errors {
				fmt.Fprintf(os.Stderr, "  %s %s: %v\n", color.RedString("✗"), fileErr.Path, fileErr.Err)
			}
		} else if !quiet {
			fmt.Fprintln(os.Stderr, "Run with --verbose to see per-file errors")
		}
	}

	if result.Cancelled {
		fmt.Fprintf(os.Stderr, "%s %d files left incomplete\n",
			color.YellowString("Cancelled:"), result.Incomplete(total))
	}
}
