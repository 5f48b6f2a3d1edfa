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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/repopack/pkg/locator"
	"gitlab.com/tozd/go/errors"
)

// Git LFS pointer stubs are tiny text files beginning with a fixed
// version line. The full pointer (version + oid + size) lands in a narrow
// byte range, so the length is checked before buffering anything large.
const (
	lfsPointerMinSize = 128
	lfsPointerMaxSize = 140
)

var lfsPointerPrefix = []byte("version https://git-lfs.github.com/spec/v1")

// 📥 DownloadFile retrieves the raw bytes of one file on loc.Ref.
//
// Content is served from the raw endpoint. If the response looks like a
// Git LFS pointer stub, the actual object is fetched from the media
// endpoint instead.
func (c *Client) DownloadFile(ctx context.Context, loc *locator.Locator, path string) ([]byte, error) {
	logger := zerolog.Ctx(ctx)

	rawURL := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawBase, loc.Owner, loc.Repo, loc.Ref, encodePath(path))

	resp, err := c.getContent(ctx, rawURL)
	if err != nil {
		return nil, &DownloadFailedError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadFailedError{Path: path, Err: errors.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	// Fast path: content length outside the pointer window, no need to
	// buffer the body just to check a signature that cannot apply.
	if !mightBeLFSPointer(resp.ContentLength) {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &DownloadFailedError{Path: path, Err: err}
		}
		return body, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadFailedError{Path: path, Err: err}
	}

	// The length check repeats on the actual body: a chunked response
	// reports no content length, and a big file that merely starts with
	// the signature is not a pointer.
	if !mightBeLFSPointer(int64(len(body))) || !isLFSPointer(body) {
		return body, nil
	}

	logger.Debug().Str("path", path).Msg("LFS pointer detected, fetching from media endpoint")

	mediaURL := fmt.Sprintf("%s/%s/%s/%s/%s", c.mediaBase, loc.Owner, loc.Repo, loc.Ref, encodePath(path))

	mediaResp, err := c.getContent(ctx, mediaURL)
	if err != nil {
		return nil, &DownloadFailedError{Path: path, Err: err}
	}
	defer mediaResp.Body.Close()

	if mediaResp.StatusCode != http.StatusOK {
		return nil, &DownloadFailedError{Path: path, Err: errors.Errorf("unexpected status code: %d", mediaResp.StatusCode)}
	}

	content, err := io.ReadAll(mediaResp.Body)
	if err != nil {
		return nil, &DownloadFailedError{Path: path, Err: err}
	}

	return content, nil
}

// getContent issues an authenticated GET with transient-failure retry.
func (c *Client) getContent(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Errorf("creating request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.doWithRetry(ctx, req)
}

// mightBeLFSPointer reports whether the content length falls in the LFS
// pointer window. A negative length (unknown) forces the body check.
func mightBeLFSPointer(contentLength int64) bool {
	if contentLength < 0 {
		return true
	}
	return contentLength >= lfsPointerMinSize && contentLength <= lfsPointerMaxSize
}

// isLFSPointer reports whether body starts with the LFS pointer version line.
func isLFSPointer(body []byte) bool {
	return bytes.HasPrefix(body, lfsPointerPrefix)
}

// encodePath percent-encodes each path segment, keeping separators intact.
func encodePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
