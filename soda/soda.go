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

package soda

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// Format of a dataset page and of the resulting output file.
type Format string

// Supported formats. The format is fixed for the life of one query; the
// destination file format must match it.
const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// Valid tests that the format is one of the supported values.
func (f Format) Valid() bool {
	return f == CSV || f == JSON
}

// Client for querying datasets on a single Socrata domain.
type Client struct {
	baseURL  string // scheme + domain of the server
	appToken string // optional application token, relaxes rate limits
}

// newClient creates a new client. A domain without a scheme defaults to
// https; tests pass a full URL of a local test server.
func newClient(domain, appToken string) *Client {
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return &Client{
		baseURL:  strings.TrimSuffix(domain, "/"),
		appToken: appToken,
	}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client for the given domain and injects it into
// the context. The app token may be empty.
func UseClient(ctx context.Context, domain, appToken string) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(domain, appToken))
}

// header returns the extra request headers for the client, nil when none.
func (c *Client) header() http.Header {
	if c.appToken == "" {
		return nil
	}
	return http.Header{"X-App-Token": []string{c.appToken}}
}

// resourceURL is the resource endpoint for a dataset in a given format.
func (c *Client) resourceURL(dataset string, f Format) string {
	return c.baseURL + "/resource/" + dataset + "." + string(f)
}

// Query is a builder for a single-dataset query.
type Query struct {
	dataset string // opaque dataset id, e.g. "tmnf-yvry"
	format  Format
	where   string   // SoQL filter, passed through verbatim
	columns []string // projection; nil = all columns
	order   string   // ordering clause, passed through verbatim
}

// NewQuery creates a new query for the dataset in the given format.
func NewQuery(dataset string, format Format) *Query {
	return &Query{dataset: dataset, format: format}
}

// Copy creates a deep copy of the query. It is primarily used in its builder
// methods.
func (q *Query) Copy() *Query {
	q2 := Query{dataset: q.dataset, format: q.format, where: q.where, order: q.order}
	if q.columns != nil {
		q2.columns = make([]string, len(q.columns))
		copy(q2.columns, q.columns)
	}
	return &q2
}

// Dataset returns the dataset id of the query.
func (q *Query) Dataset() string { return q.dataset }

// Format returns the page format of the query.
func (q *Query) Format() Format { return q.format }

// Where adds a filter expression. This and other builder methods always
// create a deep copy of the query, leaving the original intact.
func (q *Query) Where(expr string) *Query {
	q2 := q.Copy()
	q2.where = expr
	return q2
}

// Select constrains the query result to only these columns.
func (q *Query) Select(columns ...string) *Query {
	q2 := q.Copy()
	q2.columns = columns
	return q2
}

// Order sets the ordering clause, e.g. "date DESC".
func (q *Query) Order(clause string) *Query {
	q2 := q.Copy()
	q2.order = clause
	return q2
}

// Values returns the query values without paging parameters. Each call
// creates a new object, so the caller is free to modify it without affecting
// the query.
func (q *Query) Values() url.Values {
	v := make(url.Values)
	if q.where != "" {
		v["$where"] = []string{q.where}
	}
	if q.columns != nil {
		v["$select"] = []string{strings.Join(q.columns, ",")}
	}
	if q.order != "" {
		v["$order"] = []string{q.order}
	}
	return v
}

// Page is a single bounded-size response from the resource endpoint.
type Page struct {
	Format  Format
	Header  string   // CSV header line; empty in JSON mode or for an empty body
	Lines   []string // CSV data lines, header stripped
	Records []Record // JSON records
}

// Rows returns the number of data rows in the page.
func (p *Page) Rows() int {
	if p.Format == JSON {
		return len(p.Records)
	}
	return len(p.Lines)
}

// parseCSVPage splits a raw CSV body into the header line and data lines.
// Line contents are not interpreted, so the accumulated output stays
// byte-identical to what the server sent.
func parseCSVPage(body string) *Page {
	body = strings.TrimSuffix(body, "\n")
	if body == "" {
		return &Page{Format: CSV}
	}
	lines := strings.Split(body, "\n")
	return &Page{Format: CSV, Header: lines[0], Lines: lines[1:]}
}

// parseJSONPage parses a raw JSON body as an array of records.
func parseJSONPage(body []byte) (*Page, error) {
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, errors.Annotate(err, "failed to parse JSON page")
	}
	return &Page{Format: JSON, Records: records}, nil
}

// FetchPage executes the query using the Client from the context and
// downloads one page of up to limit rows starting at the zero-based offset.
func (q *Query) FetchPage(ctx context.Context, offset, limit int) (*Page, error) {
	client := GetClient(ctx)
	if client == nil {
		return nil, errors.Reason("Query.FetchPage: no client in context")
	}
	uri := client.resourceURL(q.dataset, q.format)
	query := q.Values()
	query["$limit"] = []string{strconv.Itoa(limit)}
	query["$offset"] = []string{strconv.Itoa(offset)}

	// fetch.GetRetry takes retry params, not headers; the fetch library has
	// no request-header support, so client.header() cannot be passed here.
	resp, err := fetch.GetRetry(ctx, uri, query, nil)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch page at offset %d", offset)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read page at offset %d", offset)
	}
	switch q.format {
	case CSV:
		return parseCSVPage(string(body)), nil
	case JSON:
		page, err := parseJSONPage(body)
		if err != nil {
			return nil, errors.Annotate(err, "malformed page at offset %d", offset)
		}
		return page, nil
	}
	return nil, errors.Reason("unsupported format '%s'", q.format)
}

// Count returns the total number of rows matching the query's filter. The
// server responds with a one-element array holding a single aggregate field;
// an absent or malformed count parses as zero.
func (q *Query) Count(ctx context.Context) (int, error) {
	client := GetClient(ctx)
	if client == nil {
		return 0, errors.Reason("Query.Count: no client in context")
	}
	uri := client.resourceURL(q.dataset, JSON)
	query := make(url.Values)
	if q.where != "" {
		query["$where"] = []string{q.where}
	}
	query["$select"] = []string{"count(*) AS count"}

	var rows []map[string]interface{}
	if err := fetch.FetchJSON(ctx, uri, &rows, query, nil); err != nil {
		return 0, errors.Annotate(err, "failed to count rows of %s", q.dataset)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return countValue(rows[0]), nil
}

// countValue extracts the aggregate count from the first response row. The
// server may return the count as a string or as a number depending on the
// dataset's API version.
func countValue(row map[string]interface{}) int {
	v, ok := row["count"]
	if !ok {
		if len(row) != 1 {
			return 0
		}
		for _, only := range row { // the aggregate under a server-chosen alias
			v = only
		}
	}
	switch n := v.(type) {
	case string:
		c, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return c
	case float64:
		return int(n)
	}
	return 0
}
