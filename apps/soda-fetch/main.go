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
	"os"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/mikekutzma/sodatools/config"
	"github.com/mikekutzma/sodatools/download"
	"github.com/mikekutzma/sodatools/soda"
)

type Flags struct {
	Dataset  string // required
	Domain   string // required here or in the config file
	Out      string // required
	Format   string // csv or json
	Where    string // SoQL filter, passed through verbatim
	Select   string // comma-separated column projection
	Order    string // ordering clause, passed through verbatim
	PageSize int
	Limit    int // negative = no limit
	Yes      bool
	Config   string
	Token    string
	LogLevel logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("soda-fetch", flag.ExitOnError)
	fs.StringVar(&flags.Dataset, "dataset", "", "dataset id (required)")
	fs.StringVar(&flags.Domain, "domain", "", "data domain, e.g. data.cityofnewyork.us")
	fs.StringVar(&flags.Out, "out", "", "destination file (required)")
	fs.StringVar(&flags.Format, "format", "csv", "output format: csv or json")
	fs.StringVar(&flags.Where, "where", "", "filter expression, passed to the server as-is")
	fs.StringVar(&flags.Select, "select", "", "comma-separated columns to download")
	fs.StringVar(&flags.Order, "order", "", "ordering clause, e.g. 'date DESC'")
	fs.IntVar(&flags.PageSize, "page-size", download.DefaultPageSize, "rows per page request")
	fs.IntVar(&flags.Limit, "limit", -1, "max rows to download; negative = no limit")
	fs.BoolVar(&flags.Yes, "yes", false, "skip the large-download confirmation")
	fs.StringVar(&flags.Config, "config", config.DefaultPath(), "path to config.toml")
	fs.StringVar(&flags.Token, "token", "", "app token; overrides the config file")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.Dataset == "" {
		return nil, errors.Reason("missing required -dataset argument")
	}
	if flags.Out == "" {
		return nil, errors.Reason("missing required -out argument")
	}
	if !soda.Format(flags.Format).Valid() {
		return nil, errors.Reason("-format must be csv or json, got '%s'", flags.Format)
	}
	if flags.PageSize <= 0 {
		return nil, errors.Reason("-page-size [%d] must be positive", flags.PageSize)
	}
	return &flags, err
}

func run(ctx context.Context, flags *Flags) error {
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to load config")
	}
	domain := flags.Domain
	if domain == "" {
		domain = cfg.Domain
	}
	if domain == "" {
		return errors.Reason("no domain: set -domain or the config file's domain")
	}
	token := flags.Token
	if token == "" {
		token = cfg.AppToken
	}
	ctx = soda.UseClient(ctx, domain, token)

	q := soda.NewQuery(flags.Dataset, soda.Format(flags.Format))
	if flags.Where != "" {
		q = q.Where(flags.Where)
	}
	if flags.Select != "" {
		q = q.Select(strings.Split(flags.Select, ",")...)
	}
	if flags.Order != "" {
		q = q.Order(flags.Order)
	}

	req := download.Request{
		Format:   soda.Format(flags.Format),
		PageSize: flags.PageSize,
		Limit:    flags.Limit,
		Path:     flags.Out,
	}
	prog, err := download.Run(ctx, q, q, req, download.Config{SkipConfirm: flags.Yes})
	if err != nil {
		return err
	}
	logging.Infof(ctx, "wrote %d rows to %s in %d page(s)",
		prog.Committed, flags.Out, prog.Pages)
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

	if err := run(ctx, flags); err != nil {
		if errors.Is(err, download.ErrCancelled) {
			logging.Infof(ctx, "download cancelled")
			return
		}
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
