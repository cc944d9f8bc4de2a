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

// Package engine runs ad-hoc SQL over a downloaded dataset file by invoking
// a locally installed analytical engine as a subprocess.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/stockparfait/errors"
)

// Runner runs a script against the analytical engine, writing the engine's
// stdout to out. It isolates the query logic from the process-invocation
// detail, and makes the engine swappable in tests.
type Runner interface {
	Run(ctx context.Context, script string, out io.Writer) error
}

// Format of the engine output.
type Format string

// Supported output formats. Default leaves the formatting to the engine.
const (
	Default Format = ""
	CSV     Format = "csv"
	JSON    Format = "json"
)

// DuckDB runs scripts through the DuckDB command-line interface.
type DuckDB struct {
	Binary string // engine executable; "" = "duckdb"
	Format Format
}

var _ Runner = &DuckDB{}

func (d *DuckDB) binary() string {
	if d.Binary == "" {
		return "duckdb"
	}
	return d.Binary
}

// Check verifies that the engine executable is installed. A missing binary
// is a precondition failure with remediation instructions, not a crash
// later in Run.
func (d *DuckDB) Check() error {
	if _, err := exec.LookPath(d.binary()); err != nil {
		return errors.Annotate(err,
			"engine executable '%s' not found in PATH; install DuckDB from https://duckdb.org/docs/installation/ and retry",
			d.binary())
	}
	return nil
}

// Run passes the script to the engine as a single inline argument and
// streams the engine's stdout to out. Stderr is captured and surfaced in
// the error on failure.
func (d *DuckDB) Run(ctx context.Context, script string, out io.Writer) error {
	args := []string{"-batch"}
	switch d.Format {
	case CSV:
		args = append(args, "-csv")
	case JSON:
		args = append(args, "-json")
	}
	args = append(args, "-c", script)
	cmd := exec.CommandContext(ctx, d.binary(), args...)
	cmd.Stdout = out
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return errors.Annotate(err, "engine failed: %s", msg)
		}
		return errors.Annotate(err, "engine failed")
	}
	return nil
}

// Script builds the two-statement script run by the engine: materialize the
// file as an addressable relation named "dataset", then run the caller's
// query against it. The query string is passed through uninterpreted.
func Script(path, query string) string {
	escaped := strings.ReplaceAll(path, "'", "''")
	q := strings.TrimSpace(query)
	if !strings.HasSuffix(q, ";") {
		q += ";"
	}
	return fmt.Sprintf("CREATE VIEW dataset AS SELECT * FROM '%s'; %s", escaped, q)
}

// AppendQueryLog appends one executed query to the side-channel log at
// path: a tab-separated line of timestamp, dataset file and query text.
func AppendQueryLog(path, file, query string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Annotate(err, "failed to create directory %s", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to open query log %s", path)
	}
	defer f.Close()
	line := fmt.Sprintf("%s\t%s\t%s\n",
		time.Now().Format(time.RFC3339), file, strings.ReplaceAll(query, "\n", " "))
	if _, err := f.WriteString(line); err != nil {
		return errors.Annotate(err, "failed to append to query log %s", path)
	}
	return nil
}
