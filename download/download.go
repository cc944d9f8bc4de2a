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

package download

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/mikekutzma/sodatools/soda"
)

// DefaultPageSize is the page cap used when the request doesn't set one. It
// matches the server's maximum page size.
const DefaultPageSize = 10000

// DefaultConfirmThreshold is the row count above which an unbounded download
// requires operator confirmation.
const DefaultConfirmThreshold = 50000

// ErrCancelled is returned by Run when the operator declines the
// confirmation prompt. It is a graceful cancellation, not a failure; CLIs
// exit zero on it.
var ErrCancelled = errors.Reason("download cancelled by the operator")

// Source fetches one page of up to limit rows at the given zero-based
// offset. Implemented by soda.Query.
type Source interface {
	FetchPage(ctx context.Context, offset, limit int) (*soda.Page, error)
}

// Counter estimates the total number of matching rows. Implemented by
// soda.Query.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Request are the parameters of one download.
type Request struct {
	Format   soda.Format
	PageSize int    // rows per page; 0 = DefaultPageSize
	Limit    int    // max rows to download; < 0 = no limit
	Path     string // destination file
}

// Config tunes the confirmation gate.
type Config struct {
	Threshold   int                           // rows; 0 = DefaultConfirmThreshold
	SkipConfirm bool                          // never prompt, never pre-count
	Confirm     func(total int) (bool, error) // nil = PromptConfirm(os.Stdin, os.Stderr)
}

// Progress tracks the state of one download. It is created by Run and
// mutated once per committed page.
type Progress struct {
	Committed int // rows written to the destination so far
	Offset    int // offset of the next page request
	Pages     int // pages fetched so far
	Total     int // total rows expected; < 0 = unknown
}

// logPage emits one progress line after a committed page.
func (p *Progress) logPage(ctx context.Context) {
	if p.Total > 0 {
		pct := 100 * p.Committed / p.Total
		logging.Infof(ctx, "downloaded %d / %d rows (%d%%)",
			p.Committed, p.Total, pct)
		return
	}
	logging.Infof(ctx, "downloaded %d rows", p.Committed)
}

// PromptConfirm returns a Confirm function which prints a go/no-go question
// to w and reads a y/n answer from r. Anything but an affirmative answer,
// including EOF, declines.
func PromptConfirm(r io.Reader, w io.Writer) func(int) (bool, error) {
	return func(total int) (bool, error) {
		fmt.Fprintf(w, "About to download %d rows. Continue? [y/N] ", total)
		scanner := bufio.NewScanner(r)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, errors.Annotate(err, "failed to read the answer")
			}
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

// Run downloads all rows matching the source's query into req.Path.
//
// Without an explicit limit and with confirmation enabled, the total is
// pre-counted first, and a total above the threshold requires an affirmative
// answer before the first page is fetched; a negative answer returns
// ErrCancelled with no page fetched. The returned Progress is valid on all
// paths, including errors.
func Run(ctx context.Context, src Source, cnt Counter, req Request, cfg Config) (*Progress, error) {
	if req.PageSize == 0 {
		req.PageSize = DefaultPageSize
	}
	if req.PageSize < 0 {
		return nil, errors.Reason("page size [%d] must be positive", req.PageSize)
	}
	if !req.Format.Valid() {
		return nil, errors.Reason("unsupported format '%s'", req.Format)
	}
	if req.Path == "" {
		return nil, errors.Reason("missing destination path")
	}

	prog := &Progress{Total: -1}
	if req.Limit >= 0 {
		prog.Total = req.Limit
	} else if !cfg.SkipConfirm {
		total, err := cnt.Count(ctx)
		if err != nil {
			return prog, errors.Annotate(err, "failed to count matching rows")
		}
		prog.Total = total
		threshold := cfg.Threshold
		if threshold == 0 {
			threshold = DefaultConfirmThreshold
		}
		if total > threshold {
			confirm := cfg.Confirm
			if confirm == nil {
				confirm = PromptConfirm(os.Stdin, os.Stderr)
			}
			ok, err := confirm(total)
			if err != nil {
				return prog, errors.Annotate(err, "failed to confirm the download")
			}
			if !ok {
				return prog, ErrCancelled
			}
		}
	}

	if dir := filepath.Dir(req.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return prog, errors.Annotate(err, "failed to create directory %s", dir)
		}
	}
	f, err := os.OpenFile(req.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return prog, errors.Annotate(err, "failed to create output file %s", req.Path)
	}
	defer f.Close()

	if req.Format == soda.JSON {
		if _, err := f.WriteString("["); err != nil {
			return prog, errors.Annotate(err, "failed to write to %s", req.Path)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return prog, errors.Annotate(err, "download interrupted")
		}
		pageCap := req.PageSize
		if prog.Total >= 0 {
			if remaining := prog.Total - prog.Committed; remaining < pageCap {
				pageCap = remaining
			}
		}
		if pageCap <= 0 {
			break
		}
		page, err := src.FetchPage(ctx, prog.Offset, pageCap)
		if err != nil {
			return prog, errors.Annotate(err, "failed to fetch page %d", prog.Pages+1)
		}
		if page.Format != req.Format {
			return prog, errors.Reason("page %d format '%s' does not match requested '%s'",
				prog.Pages+1, page.Format, req.Format)
		}
		chunk, err := renderPage(page, prog.Pages == 0, prog.Committed)
		if err != nil {
			return prog, errors.Annotate(err, "failed to render page %d", prog.Pages+1)
		}
		// One write per page, so an aborted download never commits a
		// partial page.
		if _, err := f.Write(chunk); err != nil {
			return prog, errors.Annotate(err, "failed to write page %d to %s",
				prog.Pages+1, req.Path)
		}
		n := page.Rows()
		prog.Pages++
		prog.Committed += n
		prog.Offset += n
		prog.logPage(ctx)
		if n == 0 || n < pageCap {
			break
		}
	}

	if req.Format == soda.JSON {
		// The closing bracket is only written after a normal exit.
		if _, err := f.WriteString("\n]\n"); err != nil {
			return prog, errors.Annotate(err, "failed to write to %s", req.Path)
		}
	}
	return prog, nil
}

// renderPage serializes one page for appending to the output file. In CSV
// mode only the first page keeps its header line; later pages carry a
// structurally identical header which is dropped. In JSON mode each record
// becomes one array element, with the separating comma in front of every
// element but the very first of the whole download.
func renderPage(page *soda.Page, firstPage bool, committed int) ([]byte, error) {
	var buf bytes.Buffer
	switch page.Format {
	case soda.CSV:
		if firstPage && page.Header != "" {
			buf.WriteString(page.Header)
			buf.WriteByte('\n')
		}
		for _, line := range page.Lines {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	case soda.JSON:
		for i, rec := range page.Records {
			if committed+i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString("\n  ")
			b, err := json.Marshal(rec)
			if err != nil {
				return nil, errors.Annotate(err, "failed to encode record %d", i)
			}
			buf.Write(b)
		}
	}
	return buf.Bytes(), nil
}
