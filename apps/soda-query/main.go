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

package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/mikekutzma/sodatools/config"
	"github.com/mikekutzma/sodatools/engine"
)

type Flags struct {
	File     string // required, the materialized dataset file
	SQL      string // required
	Format   string // table, csv or json
	Out      string // write engine output to this file; default: stdout
	Engine   string // engine executable name
	Config   string
	LogLevel logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("soda-query", flag.ExitOnError)
	fs.StringVar(&flags.File, "file", "", "downloaded dataset file (required)")
	fs.StringVar(&flags.SQL, "sql", "", "query to run against the relation 'dataset' (required)")
	fs.StringVar(&flags.Format, "format", "table", "output format: table, csv or json")
	fs.StringVar(&flags.Out, "out", "", "write engine output to this file; default: stdout")
	fs.StringVar(&flags.Engine, "engine", "", "engine executable; default: duckdb")
	fs.StringVar(&flags.Config, "config", config.DefaultPath(), "path to config.toml")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.File == "" {
		return nil, errors.Reason("missing required -file argument")
	}
	if flags.SQL == "" {
		return nil, errors.Reason("missing required -sql argument")
	}
	switch flags.Format {
	case "table", "csv", "json":
	default:
		return nil, errors.Reason("-format must be table, csv or json, got '%s'",
			flags.Format)
	}
	return &flags, err
}

// engineFormat maps the flag value to the engine's output format; "table" is
// the engine's own default formatting.
func engineFormat(format string) engine.Format {
	switch format {
	case "csv":
		return engine.CSV
	case "json":
		return engine.JSON
	}
	return engine.Default
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	if _, err := os.Stat(flags.File); err != nil {
		return errors.Annotate(err, "dataset file '%s' is not readable", flags.File)
	}
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to load config")
	}

	d := &engine.DuckDB{Binary: flags.Engine, Format: engineFormat(flags.Format)}
	if err := d.Check(); err != nil {
		return err
	}

	out := w
	if flags.Out != "" {
		f, err := os.OpenFile(flags.Out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return errors.Annotate(err, "failed to create output file %s", flags.Out)
		}
		defer f.Close()
		out = f
	}
	script := engine.Script(flags.File, flags.SQL)
	logging.Debugf(ctx, "running script: %s", script)
	if err := d.Run(ctx, script, out); err != nil {
		return errors.Annotate(err, "failed to run query over %s", flags.File)
	}

	logPath := cfg.QueryLog
	if logPath == "" {
		logPath = config.DefaultQueryLog()
	}
	if err := engine.AppendQueryLog(logPath, flags.File, flags.SQL); err != nil {
		logging.Warningf(ctx, "failed to log the query: %s", err.Error())
	}
	return nil
}

// main is not tested, keep it short.
func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx := logging.Use(context.Background(), logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx := logging.Use(context.Background(), logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
