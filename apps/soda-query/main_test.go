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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stockparfait/testutil"

	"github.com/mikekutzma/sodatools/engine"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_query_app")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		Convey("accepts a full flag set", func() {
			flags, err := parseFlags([]string{
				"--file", "rows.csv", "--sql", "SELECT 1",
				"--format", "csv", "--out", "result.csv", "--engine", "duckdb"})
			So(err, ShouldBeNil)
			So(flags.File, ShouldEqual, "rows.csv")
			So(flags.SQL, ShouldEqual, "SELECT 1")
			So(flags.Format, ShouldEqual, "csv")
			So(flags.Out, ShouldEqual, "result.csv")
		})

		Convey("requires -file and -sql", func() {
			_, err := parseFlags([]string{"--sql", "SELECT 1"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"--file", "rows.csv"})
			So(err, ShouldNotBeNil)
		})

		Convey("rejects an unknown format", func() {
			_, err := parseFlags([]string{
				"--file", "rows.csv", "--sql", "SELECT 1", "--format", "xml"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("engineFormat", t, func() {
		So(engineFormat("table"), ShouldEqual, engine.Default)
		So(engineFormat("csv"), ShouldEqual, engine.CSV)
		So(engineFormat("json"), ShouldEqual, engine.JSON)
	})

	Convey("run", t, func() {
		ctx := context.Background()

		dataFile := filepath.Join(tmpdir, "rows.csv")
		So(testutil.WriteFile(dataFile, "id,val\n1,one\n"), ShouldBeNil)

		fakeBin := filepath.Join(tmpdir, "fakeduck")
		So(os.WriteFile(fakeBin,
			[]byte("#!/bin/sh\necho \"$@\"\n"), 0755), ShouldBeNil)

		logPath := filepath.Join(tmpdir, "query_log.tsv")
		cfgPath := filepath.Join(tmpdir, "config.toml")
		So(testutil.WriteFile(cfgPath, "query_log = \""+logPath+"\"\n"),
			ShouldBeNil)

		Convey("invokes the engine and logs the query", func() {
			flags, err := parseFlags([]string{
				"--file", dataFile, "--sql", "SELECT count(*) FROM dataset",
				"--engine", fakeBin, "--config", cfgPath})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring,
				"CREATE VIEW dataset AS SELECT * FROM '"+dataFile+"';")
			So(buf.String(), ShouldContainSubstring, "SELECT count(*) FROM dataset;")

			logged, err := os.ReadFile(logPath)
			So(err, ShouldBeNil)
			So(string(logged), ShouldContainSubstring, "SELECT count(*) FROM dataset")
		})

		Convey("writes the engine output to a file", func() {
			outFile := filepath.Join(tmpdir, "result.csv")
			flags, err := parseFlags([]string{
				"--file", dataFile, "--sql", "SELECT 1", "--format", "csv",
				"--out", outFile, "--engine", fakeBin, "--config", cfgPath})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldBeNil)
			So(buf.String(), ShouldEqual, "") // nothing on stdout
			written, err := os.ReadFile(outFile)
			So(err, ShouldBeNil)
			So(strings.HasPrefix(string(written), "-batch -csv -c "), ShouldBeTrue)
		})

		Convey("a missing dataset file is an error", func() {
			flags, err := parseFlags([]string{
				"--file", filepath.Join(tmpdir, "nonexistent.csv"),
				"--sql", "SELECT 1", "--engine", fakeBin, "--config", cfgPath})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldNotBeNil)
		})

		Convey("a missing engine is a precondition failure", func() {
			flags, err := parseFlags([]string{
				"--file", dataFile, "--sql", "SELECT 1",
				"--engine", "no-such-engine-binary", "--config", cfgPath})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			err = run(ctx, flags, &buf)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "install DuckDB")
		})
	})
}
