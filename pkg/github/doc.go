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

/*
Package github talks to the GitHub API and content endpoints.

	+----------+     trees API      +-----------+
	|  Client  +------------------->+  listing  |
	|          |   contents API     | (2 tiers) |
	|          +------------------->+-----------+
	|          |
	|          |   raw / media      +-----------+
	|          +------------------->+  content  |
	+----------+                    +-----------+

🎯 Purpose:
- Enumerates files under a repository directory
- Resolves slash-containing refs by probing
- Retrieves raw file bytes, following Git LFS pointers
- Maps API responses to a typed error taxonomy

🔄 Flow:
1. Resolve the default branch when no ref was given
2. Probe the recursive trees API, shifting dir segments onto the ref
   until the tree is found
3. Fall back to the per-directory contents API when the tree listing
   truncates with nothing usable
4. Fetch each file from the raw endpoint, redirecting confirmed LFS
   pointer stubs to the media endpoint

⚡ Key Responsibilities:
- Two-tier listing (fast recursive tree, exhaustive contents walk)
- LFS pointer detection without buffering large files
- Transient-failure retry with exponential backoff
- Rate-limit / auth / not-found error classification
*/
package github
