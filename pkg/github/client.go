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

package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/walteh/repopack/pkg/locator"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
)

const (
	defaultRawBase   = "https://raw.githubusercontent.com"
	defaultMediaBase = "https://media.githubusercontent.com/media"

	requestTimeout = 30 * time.Second
)

// apiClient is the slice of the GitHub API we need. Kept as an interface
// so the listing logic can be exercised against a fake without a live
// network dependency.
type apiClient interface {
	GetRepository(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
	GetTree(ctx context.Context, owner, repo, ref string, recursive bool) (*github.Tree, *github.Response, error)
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
}

// githubAPIWrapper adapts *github.Client to the apiClient interface.
type githubAPIWrapper struct {
	client *github.Client
}

func (w *githubAPIWrapper) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error) {
	return w.client.Repositories.Get(ctx, owner, repo)
}

func (w *githubAPIWrapper) GetTree(ctx context.Context, owner, repo, ref string, recursive bool) (*github.Tree, *github.Response, error) {
	return w.client.Git.GetTree(ctx, owner, repo, ref, recursive)
}

func (w *githubAPIWrapper) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	return w.client.Repositories.GetContents(ctx, owner, repo, path, opts)
}

// 🎯 Client lists and downloads repository contents over the GitHub API
// and the raw/media content endpoints.
type Client struct {
	api        apiClient
	httpClient *http.Client
	token      string
	rawBase    string
	mediaBase  string
}

// 🏭 New creates a new client. An empty token means unauthenticated
// access (public repositories, low rate limit).
func New(ctx context.Context, token string) *Client {
	var apiHTTP *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		apiHTTP = oauth2.NewClient(ctx, ts)
	}

	return &Client{
		api:        &githubAPIWrapper{client: github.NewClient(apiHTTP)},
		httpClient: &http.Client{Timeout: requestTimeout},
		token:      token,
		rawBase:    defaultRawBase,
		mediaBase:  defaultMediaBase,
	}
}

// 📂 ListFiles enumerates the files under loc.Dir on loc.Ref.
//
// Refs may contain slashes (e.g. feature/my-branch), which the initial
// URL parse cannot distinguish from ref="feature", dir="my-branch/...".
// On an unknown-ref not-found we shift the first dir segment onto the ref
// and probe again until the tree call succeeds or dir is exhausted. The
// locator is updated in place so the caller sees the resolved ref/dir.
//
// The recursive tree call is fast but truncates on very large trees; when
// it truncates and yields nothing usable, the slower per-directory
// contents listing is used instead.
func (c *Client) ListFiles(ctx context.Context, loc *locator.Locator) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	decoded, err := url.PathUnescape(loc.Dir)
	if err != nil {
		return nil, &locator.InvalidLocatorError{
			Locator: loc.Dir,
			Hint:    "failed to decode directory path",
		}
	}

	if loc.NeedsDefaultRef() {
		if err := c.resolveDefaultRef(ctx, loc); err != nil {
			return nil, err
		}
		logger.Debug().Str("ref", loc.Ref).Msg("resolved default branch")
	}

	dirParts := splitSegments(decoded)

	for {
		loc.Dir = strings.Join(dirParts, "/")

		files, truncated, err := c.listViaTree(ctx, loc)
		if err == nil {
			if len(files) == 0 && truncated {
				logger.Debug().Str("repo", loc.Owner+"/"+loc.Repo).Msg("tree listing truncated, falling back to contents listing")
				return c.listViaContents(ctx, loc, loc.Dir)
			}
			return files, nil
		}

		var notFound *NotFoundError
		if errors.As(err, &notFound) && len(dirParts) > 0 {
			loc.Ref = loc.Ref + "/" + dirParts[0]
			dirParts = dirParts[1:]
			logger.Debug().Str("ref", loc.Ref).Str("dir", strings.Join(dirParts, "/")).Msg("ref not found, probing slash-containing ref")
			continue
		}

		return nil, err
	}
}

// resolveDefaultRef fetches the repository's default branch into loc.Ref.
func (c *Client) resolveDefaultRef(ctx context.Context, loc *locator.Locator) error {
	repo, resp, err := c.api.GetRepository(ctx, loc.Owner, loc.Repo)
	if err != nil {
		return c.mapAPIError(resp, err, loc)
	}

	loc.Ref = repo.GetDefaultBranch()
	if loc.Ref == "" {
		loc.Ref = "main"
	}

	return nil
}

// listViaTree fetches the full recursive tree for loc.Ref and filters it
// to blob entries under loc.Dir.
func (c *Client) listViaTree(ctx context.Context, loc *locator.Locator) ([]string, bool, error) {
	tree, resp, err := c.api.GetTree(ctx, loc.Owner, loc.Repo, loc.Ref, true)
	if err != nil {
		return nil, false, c.mapAPIError(resp, err, loc)
	}

	prefix := ""
	if loc.Dir != "" {
		prefix = strings.TrimSuffix(loc.Dir, "/") + "/"
	}

	var files []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if prefix != "" && !strings.HasPrefix(path, prefix) {
			continue
		}
		files = append(files, path)
	}

	return files, tree.GetTruncated(), nil
}

// listViaContents lists dir one level at a time, recursing into
// subdirectories. One API call per directory, but no entry-count ceiling.
func (c *Client) listViaContents(ctx context.Context, loc *locator.Locator, dir string) ([]string, error) {
	_, entries, resp, err := c.api.GetContents(ctx, loc.Owner, loc.Repo, dir, &github.RepositoryContentGetOptions{
		Ref: loc.Ref,
	})
	if err != nil {
		return nil, c.mapAPIError(resp, err, loc)
	}

	var files []string
	for _, entry := range entries {
		switch entry.GetType() {
		case "file":
			files = append(files, entry.GetPath())
		case "dir":
			sub, err := c.listViaContents(ctx, loc, entry.GetPath())
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		default:
			// symlinks, submodules
		}
	}

	return files, nil
}

// mapAPIError translates go-github errors into the package taxonomy.
func (c *Client) mapAPIError(resp *github.Response, err error, loc *locator.Locator) error {
	var rateLimit *github.RateLimitError
	if errors.As(err, &rateLimit) {
		return &RateLimitedError{Reset: rateLimit.Rate.Reset.Format(time.RFC1123)}
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		reset := "unknown"
		if abuse.RetryAfter != nil {
			reset = abuse.RetryAfter.String()
		}
		return &RateLimitedError{Reset: reset}
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return &NotFoundError{Owner: loc.Owner, Repo: loc.Repo}
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrAuthRequired
		}
	}

	return &TransportError{Err: err}
}

func splitSegments(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
