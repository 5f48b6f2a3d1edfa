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

package locator

import (
	"fmt"
	"net/url"
	"strings"
)

// 🎯 Locator identifies a directory inside a remote repository.
//
// Ref is a branch, tag, or commit. An empty Ref means the repository's
// default branch must be resolved before listing. Dir is relative to the
// repository root with no leading or trailing separator.
type Locator struct {
	Owner string
	Repo  string
	Ref   string
	Dir   string
}

// ⚠️ InvalidLocatorError indicates a locator string that could not be
// parsed into owner/repo/ref/dir components.
type InvalidLocatorError struct {
	Locator string
	Hint    string
}

func (e *InvalidLocatorError) Error() string {
	return fmt.Sprintf("invalid locator: %s (%s)", e.Locator, e.Hint)
}

// 🔍 Parse parses a repository URL into its components.
//
// Two path shapes are accepted:
//   - explicit ref: https://github.com/{owner}/{repo}/tree/{ref}/{dir}
//   - default branch: https://github.com/{owner}/{repo}/{dir}
//
// URLs pointing at a single file (/blob/) are rejected. The hostname is
// deliberately not validated, so self-hosted instances with a compatible
// path layout parse fine.
func Parse(raw string) (*Locator, error) {
	withScheme := raw
	if !strings.Contains(withScheme, "://") {
		withScheme = "https://" + withScheme
	}

	u, err := url.Parse(withScheme)
	if err != nil {
		return nil, &InvalidLocatorError{
			Locator: raw,
			Hint:    "expected format: https://github.com/owner/repo[/tree/ref][/path]",
		}
	}

	if strings.Contains(u.Path, "/blob/") {
		return nil, &InvalidLocatorError{
			Locator: raw,
			Hint:    "use '/tree/' for directories, not '/blob/' (which is for single files)",
		}
	}

	parts := splitPath(u.Path)
	if len(parts) < 2 {
		return nil, &InvalidLocatorError{
			Locator: raw,
			Hint:    "URL must include owner and repo: https://github.com/owner/repo",
		}
	}

	loc := &Locator{
		Owner: parts[0],
		Repo:  parts[1],
	}

	if len(parts) > 2 && parts[2] == "tree" {
		if len(parts) < 4 {
			return nil, &InvalidLocatorError{
				Locator: raw,
				Hint:    "missing ref after /tree/",
			}
		}
		loc.Ref = parts[3]
		loc.Dir = strings.Join(parts[4:], "/")
		return loc, nil
	}

	loc.Dir = strings.Join(parts[2:], "/")
	return loc, nil
}

// NeedsDefaultRef reports whether the locator has no explicit ref and the
// repository default branch must be fetched before listing.
func (l *Locator) NeedsDefaultRef() bool {
	return l.Ref == ""
}

// String renders the locator in owner/repo[@ref][/dir] form for logging.
func (l *Locator) String() string {
	var b strings.Builder
	b.WriteString(l.Owner)
	b.WriteString("/")
	b.WriteString(l.Repo)
	if l.Ref != "" {
		b.WriteString("@")
		b.WriteString(l.Ref)
	}
	if l.Dir != "" {
		b.WriteString("/")
		b.WriteString(l.Dir)
	}
	return b.String()
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
