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
	"testing"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/repopack/pkg/locator"
	"gitlab.com/tozd/go/errors"
)

// fakeAPI serves canned trees and directory listings, returning 404 for
// anything it does not know about.
type fakeAPI struct {
	defaultBranch string
	trees         map[string]*github.Tree                // keyed by ref
	contents      map[string][]*github.RepositoryContent // keyed by dir
	treeCalls     int
	contentCalls  int
}

func notFoundResponse() *github.Response {
	return &github.Response{Response: &http.Response{StatusCode: http.StatusNotFound}}
}

func okResponse() *github.Response {
	return &github.Response{Response: &http.Response{StatusCode: http.StatusOK}}
}

func (f *fakeAPI) GetRepository(_ context.Context, _, _ string) (*github.Repository, *github.Response, error) {
	if f.defaultBranch == "" {
		return nil, notFoundResponse(), errors.New("not found")
	}
	return &github.Repository{DefaultBranch: github.String(f.defaultBranch)}, okResponse(), nil
}

func (f *fakeAPI) GetTree(_ context.Context, _, _, ref string, _ bool) (*github.Tree, *github.Response, error) {
	f.treeCalls++
	tree, ok := f.trees[ref]
	if !ok {
		return nil, notFoundResponse(), errors.New("not found")
	}
	return tree, okResponse(), nil
}

func (f *fakeAPI) GetContents(_ context.Context, _, _, path string, _ *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	f.contentCalls++
	entries, ok := f.contents[path]
	if !ok {
		return nil, nil, notFoundResponse(), errors.New("not found")
	}
	return nil, entries, okResponse(), nil
}

func blobEntry(path string) *github.TreeEntry {
	return &github.TreeEntry{Type: github.String("blob"), Path: github.String(path)}
}

func treeEntry(path string) *github.TreeEntry {
	return &github.TreeEntry{Type: github.String("tree"), Path: github.String(path)}
}

func contentEntry(entryType, path string) *github.RepositoryContent {
	return &github.RepositoryContent{Type: github.String(entryType), Path: github.String(path)}
}

func newFakeClient(api apiClient) *Client {
	return &Client{api: api}
}

func TestListFilesPrefixFilter(t *testing.T) {
	api := &fakeAPI{
		trees: map[string]*github.Tree{
			"main": {
				Entries: []*github.TreeEntry{
					blobEntry("docs/a.md"),
					blobEntry("docs/sub/b.md"),
					blobEntry("other/c.md"),
					treeEntry("docs/sub"),
				},
				Truncated: github.Bool(false),
			},
		},
	}

	loc := &locator.Locator{Owner: "owner", Repo: "repo", Ref: "main", Dir: "docs"}
	files, err := newFakeClient(api).ListFiles(context.Background(), loc)

	require.NoError(t, err, "ListFiles should succeed")
	assert.Equal(t, []string{"docs/a.md", "docs/sub/b.md"}, files, "only blobs under the target directory should be listed")
}

func TestListFilesRepositoryRoot(t *testing.T) {
	api := &fakeAPI{
		trees: map[string]*github.Tree{
			"main": {
				Entries: []*github.TreeEntry{
					blobEntry("README.md"),
					blobEntry("src/main.go"),
				},
				Truncated: github.Bool(false),
			},
		},
	}

	loc := &locator.Locator{Owner: "owner", Repo: "repo", Ref: "main"}
	files, err := newFakeClient(api).ListFiles(context.Background(), loc)

	require.NoError(t, err, "ListFiles should succeed")
	assert.Equal(t, []string{"README.md", "src/main.go"}, files, "empty dir should match the whole repository")
}

func TestListFilesResolvesSlashContainingRef(t *testing.T) {
	api := &fakeAPI{
		trees: map[string]*github.Tree{
			"feature/branch": {
				Entries: []*github.TreeEntry{
					blobEntry("src/lib/a.rs"),
					blobEntry("src/lib/sub/b.rs"),
					blobEntry("src/other.rs"),
				},
				Truncated: github.Bool(false),
			},
		},
	}

	// The URL parse saw ref="feature", dir="branch/src/lib"; the true
	// ref is "feature/branch".
	loc := &locator.Locator{Owner: "owner", Repo: "repo", Ref: "feature", Dir: "branch/src/lib"}
	files, err := newFakeClient(api).ListFiles(context.Background(), loc)

	require.NoError(t, err, "ListFiles should succeed")
	assert.Equal(t, "feature/branch", loc.Ref, "ref should converge to the true branch name")
	assert.Equal(t, "src/lib", loc.Dir, "dir should shrink by the shifted segment")
	assert.Equal(t, []string{"src/lib/a.rs", "src/lib/sub/b.rs"}, files, "files should be filtered by the resolved dir")
	assert.LessOrEqual(t, api.treeCalls, 3, "resolution should take at most one probe per dir segment")
}

func TestListFilesRefProbingExhausted(t *testing.T) {
	api := &fakeAPI{trees: map[string]*github.Tree{}}

	loc := &locator.Locator{Owner: "owner", Repo: "repo", Ref: "nope", Dir: "a/b"}
	_, err := newFakeClient(api).ListFiles(context.Background(), loc)

	require.Error(t, err, "ListFiles should fail when every probe misses")
	var notFoundErr *NotFoundError
	assert.ErrorAs(t, err, &notFoundErr, "terminal failure should surface NotFoundError")
	assert.Equal(t, 3, api.treeCalls, "every split point should be probed exactly once")
}

func TestListFilesTruncatedFallsBackToContents(t *testing.T) {
	api := &fakeAPI{
		trees: map[string]*github.Tree{
			"main": {
				Entries:   []*github.TreeEntry{},
				Truncated: github.Bool(true),
			},
		},
		contents: map[string][]*github.RepositoryContent{
			"docs": {
				contentEntry("file", "docs/a.md"),
				contentEntry("dir", "docs/sub"),
				contentEntry("symlink", "docs/link"),
			},
			"docs/sub": {
				contentEntry("file", "docs/sub/b.md"),
			},
		},
	}

	loc := &locator.Locator{Owner: "owner", Repo: "repo", Ref: "main", Dir: "docs"}
	files, err := newFakeClient(api).ListFiles(context.Background(), loc)

	require.NoError(t, err, "ListFiles should succeed via the contents fallback")
	assert.Equal(t, []string{"docs/a.md", "docs/sub/b.md"}, files, "contents listing should recurse into subdirectories")
	assert.Equal(t, 1, api.treeCalls, "tree API should be tried once")
	assert.Equal(t, 2, api.contentCalls, "contents API should be called once per directory")
}

func TestListFilesTruncatedButNonEmptyIsAuthoritative(t *testing.T) {
	api := &fakeAPI{
		trees: map[string]*github.Tree{
			"main": {
				Entries:   []*github.TreeEntry{blobEntry("docs/a.md")},
				Truncated: github.Bool(true),
			},
		},
	}

	loc := &locator.Locator{Owner: "owner", Repo: "repo", Ref: "main", Dir: "docs"}
	files, err := newFakeClient(api).ListFiles(context.Background(), loc)

	require.NoError(t, err, "ListFiles should succeed")
	assert.Equal(t, []string{"docs/a.md"}, files, "a non-empty truncated result is treated as authoritative")
	assert.Equal(t, 0, api.contentCalls, "contents fallback should not run")
}

func TestListFilesResolvesDefaultBranch(t *testing.T) {
	api := &fakeAPI{
		defaultBranch: "develop",
		trees: map[string]*github.Tree{
			"develop": {
				Entries:   []*github.TreeEntry{blobEntry("docs/a.md")},
				Truncated: github.Bool(false),
			},
		},
	}

	loc := &locator.Locator{Owner: "owner", Repo: "repo", Dir: "docs"}
	files, err := newFakeClient(api).ListFiles(context.Background(), loc)

	require.NoError(t, err, "ListFiles should succeed")
	assert.Equal(t, "develop", loc.Ref, "default branch should be resolved before listing")
	assert.Equal(t, []string{"docs/a.md"}, files, "listing should use the resolved ref")
}

func TestMapAPIError(t *testing.T) {
	client := newFakeClient(nil)
	loc := &locator.Locator{Owner: "owner", Repo: "repo"}

	tests := []struct {
		name  string
		resp  *github.Response
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "rate_limit",
			err: &github.RateLimitError{
				Rate: github.Rate{Reset: github.Timestamp{Time: time.Unix(1700000000, 0)}},
			},
			check: func(t *testing.T, err error) {
				var rateLimitErr *RateLimitedError
				require.ErrorAs(t, err, &rateLimitErr, "should map to RateLimitedError")
				assert.NotEmpty(t, rateLimitErr.Reset, "reset time should be carried through")
			},
		},
		{
			name: "secondary_rate_limit",
			err:  &github.AbuseRateLimitError{},
			check: func(t *testing.T, err error) {
				var rateLimitErr *RateLimitedError
				assert.ErrorAs(t, err, &rateLimitErr, "should map to RateLimitedError")
			},
		},
		{
			name: "not_found",
			resp: notFoundResponse(),
			err:  errors.New("404"),
			check: func(t *testing.T, err error) {
				var notFoundErr *NotFoundError
				require.ErrorAs(t, err, &notFoundErr, "should map to NotFoundError")
				assert.Equal(t, "owner", notFoundErr.Owner, "owner should be carried through")
				assert.Equal(t, "repo", notFoundErr.Repo, "repo should be carried through")
			},
		},
		{
			name: "forbidden_means_auth",
			resp: &github.Response{Response: &http.Response{StatusCode: http.StatusForbidden}},
			err:  errors.New("403"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrAuthRequired, "plain 403 should map to ErrAuthRequired")
			},
		},
		{
			name: "anything_else_is_transport",
			resp: &github.Response{Response: &http.Response{StatusCode: http.StatusBadGateway}},
			err:  errors.New("502"),
			check: func(t *testing.T, err error) {
				var transportErr *TransportError
				assert.ErrorAs(t, err, &transportErr, "should map to TransportError")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, client.mapAPIError(tt.resp, tt.err, loc))
		})
	}
}
