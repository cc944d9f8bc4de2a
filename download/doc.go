// Copyright 2023 Soda Tools

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package download accumulates a paginated dataset into a single local file.
//
// Pages are fetched strictly sequentially: the next offset depends on how
// many rows the previous page actually returned, and a page shorter than
// requested is the end-of-data signal. Overlapping requests would break both
// invariants, so the loop deliberately runs on a single goroutine. Memory
// use is bounded to one page at a time.
//
// The output file holds exactly what the server would return for a single
// unpaginated query: one header line followed by data lines in CSV mode, or
// one well-formed JSON array in JSON mode. A failed page fetch aborts the
// download and leaves the file as of the last committed page; in JSON mode
// the closing bracket is then missing, so an aborted download is not a valid
// file.
package download
