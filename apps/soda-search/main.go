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
	"runtime"
	"sort"
	"strconv"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"

	"github.com/mikekutzma/sodatools/config"
	"github.com/mikekutzma/sodatools/soda"
	"github.com/mikekutzma/sodatools/table"
)

type Flags struct {
	Query    string // required
	Domain   string // restrict the search to one domain
	Limit    int
	Counts   bool // annotate each hit with its row count
	CSV      bool // dump CSV format; default: text
	Config   string
	Token    string
	LogLevel logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("soda-search", flag.ExitOnError)
	fs.StringVar(&flags.Query, "query", "", "free-text search terms (required)")
	fs.StringVar(&flags.Domain, "domain", "", "restrict results to this domain")
	fs.IntVar(&flags.Limit, "limit", 20, "max number of results")
	fs.BoolVar(&flags.Counts, "counts", false, "fetch the row count of every result")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")
	fs.StringVar(&flags.Config, "config", config.DefaultPath(), "path to config.toml")
	fs.StringVar(&flags.Token, "token", "", "app token; overrides the config file")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.Query == "" {
		return nil, errors.Reason("missing required -query argument")
	}
	if flags.Limit <= 0 {
		return nil, errors.Reason("-limit [%d] must be positive", flags.Limit)
	}
	return &flags, err
}

// countedHit is a search hit annotated with its row count, keeping the
// original result position for stable output order.
type countedHit struct {
	pos  int
	hit  soda.CatalogHit
	rows string
}

// fetchCounts estimates the row count of every hit concurrently. A failed
// count is reported as "?" rather than failing the whole search.
func fetchCounts(ctx context.Context, hits []soda.CatalogHit, token string) []countedHit {
	indexed := make([]countedHit, len(hits))
	for i, h := range hits {
		indexed[i] = countedHit{pos: i, hit: h}
	}
	f := func(c countedHit) countedHit {
		hctx := soda.UseClient(ctx, c.hit.Domain, token)
		n, err := soda.NewQuery(c.hit.ID, soda.JSON).Count(hctx)
		if err != nil {
			logging.Warningf(ctx, "failed to count rows of %s: %s", c.hit.ID, err.Error())
			c.rows = "?"
			return c
		}
		c.rows = strconv.Itoa(n)
		return c
	}
	pm := iterator.ParallelMap(ctx, 2*runtime.NumCPU(), iterator.FromSlice(indexed), f)
	defer pm.Close()

	counted := iterator.Reduce[countedHit, []countedHit](pm, []countedHit{},
		func(c countedHit, acc []countedHit) []countedHit { return append(acc, c) })
	sort.Slice(counted, func(i, j int) bool { return counted[i].pos < counted[j].pos })
	return counted
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to load config")
	}
	token := flags.Token
	if token == "" {
		token = cfg.AppToken
	}
	domain := flags.Domain
	if domain == "" {
		domain = cfg.Domain
	}
	if token != "" {
		ctx = soda.UseClient(ctx, domain, token)
	}

	hits, err := soda.SearchCatalog(ctx, soda.SearchSpec{
		Query:  flags.Query,
		Domain: domain,
		Limit:  flags.Limit,
	})
	if err != nil {
		return errors.Annotate(err, "failed to search for '%s'", flags.Query)
	}
	logging.Infof(ctx, "found %d dataset(s)", len(hits))

	var tbl *table.Table
	if flags.Counts {
		tbl = table.New("ID", "Domain", "Name", "Rows", "Updated")
		for _, c := range fetchCounts(ctx, hits, token) {
			tbl.AddRow(c.hit.ID, c.hit.Domain, c.hit.Name, c.rows, c.hit.UpdatedAt)
		}
	} else {
		tbl = table.New("ID", "Domain", "Name", "Updated")
		for _, h := range hits {
			tbl.AddRow(h.ID, h.Domain, h.Name, h.UpdatedAt)
		}
	}
	if flags.CSV {
		if err := tbl.WriteCSV(w, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, table.Params{MaxColWidth: 48}); err != nil {
		return errors.Annotate(err, "failed to print text")
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
