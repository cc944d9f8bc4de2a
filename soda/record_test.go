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
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRecord(t *testing.T) {
	t.Parallel()

	Convey("Record round-trips byte for byte", t, func() {
		Convey("field order is preserved", func() {
			in := `{"zulu":"1","alpha":2,"mike":null}`
			var r Record
			So(json.Unmarshal([]byte(in), &r), ShouldBeNil)
			So(r.Len(), ShouldEqual, 3)
			So(r.Fields()[0].Name, ShouldEqual, "zulu")
			So(r.Fields()[1].Name, ShouldEqual, "alpha")
			So(r.Fields()[2].Name, ShouldEqual, "mike")
			out, err := json.Marshal(r)
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, in)
		})

		Convey("number formatting survives", func() {
			// encoding/json would turn 1.50 into 1.5 through float64.
			in := `{"lat":1.50,"lon":-73.00}`
			var r Record
			So(json.Unmarshal([]byte(in), &r), ShouldBeNil)
			out, err := json.Marshal(r)
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, in)
		})

		Convey("nested values are kept intact", func() {
			in := `{"location":{"lat":"40.7","lon":"-73.9"},"tags":["a","b"]}`
			var r Record
			So(json.Unmarshal([]byte(in), &r), ShouldBeNil)
			out, err := json.Marshal(r)
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, in)
		})
	})

	Convey("Typed accessors", t, func() {
		var r Record
		So(json.Unmarshal([]byte(
			`{"s":"str","n":3.5,"b":true,"z":null}`), &r), ShouldBeNil)

		s, ok := r.String("s")
		So(ok, ShouldBeTrue)
		So(s, ShouldEqual, "str")
		_, ok = r.String("n")
		So(ok, ShouldBeFalse)

		n, ok := r.Number("n")
		So(ok, ShouldBeTrue)
		So(n, ShouldEqual, 3.5)

		b, ok := r.Bool("b")
		So(ok, ShouldBeTrue)
		So(b, ShouldBeTrue)

		So(r.IsNull("z"), ShouldBeTrue)
		So(r.IsNull("s"), ShouldBeFalse)
		So(r.IsNull("missing"), ShouldBeFalse)

		_, ok = r.Get("missing")
		So(ok, ShouldBeFalse)
	})

	Convey("Record rejects non-objects", t, func() {
		var r Record
		So(json.Unmarshal([]byte(`["not","an","object"]`), &r), ShouldNotBeNil)
	})
}
