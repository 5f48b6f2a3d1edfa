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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ⚠️ PathTraversalError indicates a file path that cannot be safely
// placed under the output directory. Never coerced to a safe path.
type PathTraversalError struct {
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path traversal detected: %s", e.Path)
}

// ⚠️ IOError indicates a filesystem failure while writing a file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to save file %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// 🔍 ExtractRelativePath locates baseDir as a component sequence inside
// filePath and returns the suffix starting at that component, inclusive.
//
// For example, "path/to/nvim/lua/config.lua" with base "nvim" yields
// "nvim/lua/config.lua" — the output mirrors the requested subtree's own
// folder name, not its upstream ancestry. A match that consumes the whole
// path (a single matched leaf) yields the empty suffix. An empty baseDir
// anchors at the repository root and returns filePath unchanged.
//
// If baseDir does not occur as a component sequence the path cannot be
// safely placed and a PathTraversalError is returned.
func ExtractRelativePath(baseDir, filePath string) (string, error) {
	baseParts := components(baseDir)
	fileParts := components(filePath)

	if len(baseParts) == 0 {
		return strings.Join(fileParts, "/"), nil
	}

	for i := 0; i+len(baseParts) <= len(fileParts); i++ {
		if !matchesAt(fileParts, baseParts, i) {
			continue
		}
		if i+len(baseParts) == len(fileParts) {
			return "", nil
		}
		return strings.Join(fileParts[i:], "/"), nil
	}

	return "", &PathTraversalError{
		Path: fmt.Sprintf("base directory %s not found in file path %s", baseDir, filePath),
	}
}

// 💾 Save writes content under outputDir at the location derived from
// filePath, creating intermediate directories as needed. The resolved
// path is validated to stay inside outputDir before anything touches the
// filesystem; `..` segments anywhere in the derived suffix that would
// escape the root are rejected. Returns the path written.
func Save(baseDir, filePath string, content []byte, outputDir string) (string, error) {
	relative, err := ExtractRelativePath(baseDir, filePath)
	if err != nil {
		return "", err
	}

	target, err := containedPath(outputDir, relative)
	if err != nil {
		return "", &PathTraversalError{
			Path: fmt.Sprintf("%s is outside output directory %s", filePath, outputDir),
		}
	}

	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", &IOError{Path: parent, Err: err}
	}

	if err := os.WriteFile(target, content, 0o644); err != nil {
		return "", &IOError{Path: target, Err: err}
	}

	return target, nil
}

// containedPath joins relative onto outputDir and verifies, purely
// lexically, that the result stays under outputDir. Both sides are
// normalized (`.` dropped, `..` resolved against preceding components)
// and compared position by position.
func containedPath(outputDir, relative string) (string, error) {
	rooted := filepath.IsAbs(outputDir)

	outParts := normalizeComponents(strings.Split(filepath.ToSlash(outputDir), "/"))
	fullParts := normalizeComponents(append(
		strings.Split(filepath.ToSlash(outputDir), "/"),
		strings.Split(relative, "/")...,
	))

	if len(fullParts) < len(outParts) {
		return "", fmt.Errorf("escapes output directory")
	}
	for i, part := range outParts {
		if fullParts[i] != part {
			return "", fmt.Errorf("escapes output directory")
		}
	}
	// Any `..` surviving normalization beyond the root's own prefix
	// climbs out of the output directory.
	for _, part := range fullParts[len(outParts):] {
		if part == ".." {
			return "", fmt.Errorf("escapes output directory")
		}
	}

	joined := strings.Join(fullParts, "/")
	if rooted {
		joined = "/" + joined
	}
	if joined == "" {
		joined = "."
	}

	return filepath.FromSlash(joined), nil
}

// normalizeComponents resolves `.` and `..` lexically, without touching
// the filesystem. A `..` with no normal component before it is preserved.
func normalizeComponents(parts []string) []string {
	var out []string
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else {
				out = append(out, part)
			}
		default:
			out = append(out, part)
		}
	}
	return out
}

// components splits a slash path into its normal components, dropping
// empty and `.` segments but keeping `..` for the caller to judge.
func components(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}

func matchesAt(haystack, needle []string, at int) bool {
	for j, part := range needle {
		if haystack[at+j] != part {
			return false
		}
	}
	return true
}
