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
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_fetch_app")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	noConfig := filepath.Join(tmpdir, "no-config.toml")

	Convey("parseFlags", t, func() {
		Convey("accepts a full flag set", func() {
			flags, err := parseFlags([]string{
				"--dataset", "abcd-1234", "--domain", "data.example.gov",
				"--out", "rows.csv", "--format", "csv",
				"--where", "magnitude > 3.0", "--select", "id,magnitude",
				"--order", "id", "--page-size", "500", "--limit", "100",
				"--yes", "--log-level", "warning"})
			So(err, ShouldBeNil)
			So(flags.Dataset, ShouldEqual, "abcd-1234")
			So(flags.Domain, ShouldEqual, "data.example.gov")
			So(flags.Out, ShouldEqual, "rows.csv")
			So(flags.Where, ShouldEqual, "magnitude > 3.0")
			So(flags.PageSize, ShouldEqual, 500)
			So(flags.Limit, ShouldEqual, 100)
			So(flags.Yes, ShouldBeTrue)
			So(flags.LogLevel, ShouldEqual, logging.Warning)
		})

		Convey("requires -dataset and -out", func() {
			_, err := parseFlags([]string{"--out", "rows.csv"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"--dataset", "abcd-1234"})
			So(err, ShouldNotBeNil)
		})

		Convey("rejects a bad format and page size", func() {
			_, err := parseFlags([]string{
				"--dataset", "d", "--out", "f", "--format", "xml"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{
				"--dataset", "d", "--out", "f", "--page-size", "0"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("run downloads across pages", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		ctx := fetch.UseClient(context.Background(), server.Client())

		Convey("CSV mode strips repeated headers", func() {
			server.ResponseBody = []string{
				"id,val\n1,one\n2,two\n3,three\n",
				"id,val\n4,four\n5,five\n",
			}
			out := filepath.Join(tmpdir, "rows.csv")
			flags, err := parseFlags([]string{
				"--dataset", "abcd-1234", "--domain", server.URL(),
				"--out", out, "--page-size", "3", "--yes",
				"--config", noConfig})
			So(err, ShouldBeNil)
			So(run(ctx, flags), ShouldBeNil)
			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			So("\n"+string(data), ShouldEqual, `
id,val
1,one
2,two
3,three
4,four
5,five
`)
		})

		Convey("JSON mode produces one array", func() {
			server.ResponseBody = []string{`[{"id":"1"},{"id":"2"}]`}
			out := filepath.Join(tmpdir, "rows.json")
			flags, err := parseFlags([]string{
				"--dataset", "abcd-1234", "--domain", server.URL(),
				"--out", out, "--format", "json", "--yes",
				"--config", noConfig})
			So(err, ShouldBeNil)
			So(run(ctx, flags), ShouldBeNil)
			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "[\n  {\"id\":\"1\"},\n  {\"id\":\"2\"}\n]\n")
		})

		Convey("the config file supplies the domain", func() {
			server.ResponseBody = []string{"id\n1\n"}
			cfgPath := filepath.Join(tmpdir, "config.toml")
			So(testutil.WriteFile(cfgPath,
				"domain = \""+server.URL()+"\"\n"), ShouldBeNil)
			out := filepath.Join(tmpdir, "cfg.csv")
			flags, err := parseFlags([]string{
				"--dataset", "abcd-1234", "--out", out, "--yes",
				"--config", cfgPath})
			So(err, ShouldBeNil)
			So(run(ctx, flags), ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/resource/abcd-1234.csv")
		})

		Convey("no domain anywhere is an error", func() {
			flags, err := parseFlags([]string{
				"--dataset", "abcd-1234",
				"--out", filepath.Join(tmpdir, "x.csv"), "--yes",
				"--config", noConfig})
			So(err, ShouldBeNil)
			So(run(ctx, flags), ShouldNotBeNil)
		})
	})
}
