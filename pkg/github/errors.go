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
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// ⚠️ ErrAuthRequired indicates a private resource was requested without a
// usable credential. Surfaced for plain 401/403 responses that are not
// rate-limit related.
var ErrAuthRequired = errors.New("authentication required for private repository")

// ⚠️ RateLimitedError indicates the API rate limit was exhausted.
// Reset carries the server-reported reset moment verbatim.
type RateLimitedError struct {
	Reset string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s", e.Reset)
}

// ⚠️ NotFoundError indicates the repository (or the requested ref/tree
// within it) does not exist or is not visible with the current credential.
type NotFoundError struct {
	Owner string
	Repo  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("repository not found: %s/%s", e.Owner, e.Repo)
}

// ⚠️ DownloadFailedError indicates a single file could not be retrieved.
// Recorded per file by the orchestrator; does not abort sibling downloads.
type DownloadFailedError struct {
	Path string
	Err  error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.Path, e.Err)
}

func (e *DownloadFailedError) Unwrap() error {
	return e.Err
}

// ⚠️ TransportError covers any other non-success response or network
// failure while talking to the API.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
