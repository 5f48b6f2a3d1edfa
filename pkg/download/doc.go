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
Package download orchestrates concurrent file downloads and writes them
safely under an output root.

	 files --> [semaphore] --> fetch --> save --+
	 files --> [semaphore] --> fetch --> save --+--> outcomes --> Result
	 files --> [semaphore] --> fetch --> save --+

🎯 Purpose:
- Fans file paths out to bounded-concurrency units of work
- Anchors output paths at the requested subtree's own folder name
- Rejects any path that would resolve outside the output root
- Aggregates per-file outcomes without shared mutable counters

🔄 Flow:
1. Each unit of work checks cancellation, acquires a slot, re-checks
2. Resume mode skips files that already exist at their target path
3. Fetch then save; failures are recorded, siblings keep running
4. A single aggregator consumes outcome messages as they complete

⚡ Key Responsibilities:
- Concurrency budget enforcement (semaphore)
- Cooperative cancellation at defined points
- Lexical path containment (no filesystem resolution)
- Ignore-pattern filtering
*/
package download
