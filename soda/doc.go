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

// Package soda implements a client for the Socrata Open Data API (SODA).
//
// Official documentation is at https://dev.socrata.com/consumers/getting-started.html .
//
// Each dataset on a Socrata domain is addressed by an opaque id and exposed
// through the resource endpoint, which accepts a SoQL filter ($where),
// projection ($select) and ordering ($order), all passed through to the
// server verbatim. The endpoint returns at most a bounded number of rows per
// request; larger results are retrieved by paging with $limit and $offset.
// This package fetches one page at a time; the paging loop itself lives in
// the download package.
//
// Dataset discovery across domains is served by a separate catalog search
// API, wrapped by SearchCatalog.
package soda
