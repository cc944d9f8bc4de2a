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

// Package table renders catalog search results as readable text or CSV.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Table is a header plus rows of string cells.
//
// A typical use:
//
//	t := New("ID", "Name")
//	t.AddRow("abcd-1234", "Film Permits")
//	t.WriteText(os.Stdout, Params{MaxColWidth: 40})
type Table struct {
	Header []string // optional, may be nil
	Rows   [][]string
}

// New creates a new Table with optional column headers. When present, the
// number of headers must match the number of cells in each row.
func New(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow adds one row of cells to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

// WriteCSV writes the entire table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := cw.Write(r); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// widths computes per-column display widths over the header and the printed
// rows, capped at p.MaxColWidth.
func (t *Table) widths(p Params) ([]int, error) {
	var widths []int
	update := func(row []string) error {
		if len(row) == 0 {
			return errors.Reason("row size = 0")
		}
		if widths == nil {
			widths = make([]int, len(row))
		}
		if len(row) != len(widths) {
			return errors.Reason("row size [%d] != expected size [%d]",
				len(row), len(widths))
		}
		for i, s := range row {
			w := len([]rune(s))
			if p.MaxColWidth > 0 && w > p.MaxColWidth {
				w = p.MaxColWidth
			}
			if widths[i] < w {
				widths[i] = w
			}
		}
		return nil
	}
	if !p.NoHeader && len(t.Header) > 0 {
		if err := update(t.Header); err != nil {
			return nil, errors.Annotate(err, "failed to size header")
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := update(r); err != nil {
			return nil, errors.Annotate(err, "failed to size row %d", i)
		}
	}
	return widths, nil
}

// WriteText writes the table as left-aligned text formatted for ease of
// reading. Cells longer than MaxColWidth are truncated with "..".
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	widths, err := t.widths(p)
	if err != nil {
		return err
	}
	if widths == nil {
		return nil
	}
	write := func(row []string) error {
		cells := make([]string, len(row))
		for i, s := range row {
			r := []rune(s)
			if len(r) > widths[i] {
				s = string(r[:widths[i]-2]) + ".."
			}
			cells[i] = fmt.Sprintf("%-[2]*[1]s", s, widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.TrimRight(strings.Join(cells, "  "), " "))
		return err
	}
	if !p.NoHeader && len(t.Header) > 0 {
		if err := write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		sep := make([]string, len(widths))
		for i, n := range widths {
			sep[i] = strings.Repeat("-", n)
		}
		if err := write(sep); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := write(r); err != nil {
			return errors.Annotate(err, "failed to write row %d", i)
		}
	}
	return nil
}
