package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const catalogJSON = `{
  "listings": [
    {"id": "sofa", "title": "Used Sofa", "county": "Nairobi", "createdAt": "2025-02-28T12:00:00Z", "views": 5, "price": "12000"},
    {"id": "seeds", "title": "Maize Seeds", "county": "Nyeri", "createdAt": "2025-03-10T10:00:00Z", "views": 600, "sellerId": "s-old", "price": 450.5}
  ],
  "sellers": [
    {"id": "s-old", "verified": true, "accountStatus": "active", "joinDate": "2024-01-01T00:00:00Z"}
  ]
}`

type rankedRow struct {
	ID         string         `json:"id"`
	MatchScore int            `json:"matchScore"`
	Breakdown  map[string]int `json:"breakdown"`
}

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRankCommand(t *testing.T) {
	convey.Convey("Given a catalog on stdin", t, func() {
		convey.Convey("When ranking for maize in Nyeri", func() {
			out, err := runRoot(t, catalogJSON, "rank", "--query", "maize", "--county", "Nyeri", "--at", "2025-03-10T12:00:00Z")
			convey.So(err, convey.ShouldBeNil)

			var rows []rankedRow
			convey.So(json.Unmarshal([]byte(out), &rows), convey.ShouldBeNil)

			convey.Convey("Then listings are ordered by score without breakdowns", func() {
				convey.So(rows, convey.ShouldHaveLength, 2)
				convey.So(rows[0].ID, convey.ShouldEqual, "seeds")
				convey.So(rows[0].MatchScore, convey.ShouldEqual, 33+20+40+30+18)
				convey.So(rows[1].ID, convey.ShouldEqual, "sofa")
				convey.So(rows[1].MatchScore, convey.ShouldEqual, 4+3)
				convey.So(rows[0].Breakdown, convey.ShouldBeNil)
			})
		})

		convey.Convey("When explain is requested", func() {
			out, err := runRoot(t, catalogJSON, "rank", "-q", "maize", "--explain", "--at", "2025-03-10T12:00:00Z")
			convey.So(err, convey.ShouldBeNil)

			var rows []rankedRow
			convey.So(json.Unmarshal([]byte(out), &rows), convey.ShouldBeNil)

			convey.Convey("Then each row carries points that sum to its score", func() {
				for _, r := range rows {
					sum := 0
					for _, v := range r.Breakdown {
						sum += v
					}
					convey.So(sum, convey.ShouldEqual, r.MatchScore)
				}
				convey.So(rows[0].Breakdown["trust"], convey.ShouldEqual, 40)
			})
		})
	})

	convey.Convey("Given a catalog file", t, func() {
		path := filepath.Join(t.TempDir(), "catalog.json")
		convey.So(os.WriteFile(path, []byte(catalogJSON), 0o600), convey.ShouldBeNil)

		convey.Convey("When ranking with --input", func() {
			out, err := runRoot(t, "", "rank", "--input", path, "--at", "2025-03-10T12:00:00Z")

			convey.Convey("Then the file is read instead of stdin", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"id": "seeds"`)
			})
		})
	})

	convey.Convey("Given bad input", t, func() {
		convey.Convey("When the document is not JSON", func() {
			_, err := runRoot(t, "{oops", "rank")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "decode input")
		})

		convey.Convey("When --at is malformed", func() {
			_, err := runRoot(t, catalogJSON, "rank", "--at", "yesterday")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "parse --at")
		})

		convey.Convey("When the input file is missing", func() {
			_, err := runRoot(t, "", "rank", "--input", "/no/such/catalog.json")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestServeCommand_BadConfig(t *testing.T) {
	convey.Convey("Given an invalid log format in the environment", t, func() {
		t.Setenv("PAMBO_LOG_FORMAT", "xml")

		convey.Convey("When serve starts", func() {
			_, err := runRoot(t, "", "serve")

			convey.Convey("Then it fails before touching the database", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "load config")
			})
		})
	})
}

func TestLoadtestCommand(t *testing.T) {
	convey.Convey("Given a healthy service that ranks consistently", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
			hub, _ := json.Marshal(r.URL.Query().Get("hub"))
			_, _ = w.Write([]byte(`{"success":true,"hub":` + string(hub) + `,"total":2,"listings":[{"id":"a","matchScore":50},{"id":"b","matchScore":20}]}`))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		convey.Convey("When loadtest runs against it", func() {
			_, err := runRoot(t, "", "loadtest", "--url", srv.URL, "-n", "12", "-w", "3")

			convey.Convey("Then it completes without violations", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

// recorder tracks start and stop calls of fake components.
type recorder struct {
	calls []string
}

func (r *recorder) component(name string, startErr error) component {
	return component{
		name: name,
		start: func(context.Context) error {
			r.calls = append(r.calls, "start "+name)
			return startErr
		},
		stop: func(context.Context) error {
			r.calls = append(r.calls, "stop "+name)
			return nil
		},
	}
}

func TestStartAll(t *testing.T) {
	convey.Convey("Given background components", t, func() {
		rec := &recorder{}
		ctx := context.Background()

		convey.Convey("When every component starts", func() {
			stop, err := startAll(ctx, rec.component("service", nil), rec.component("reporter", nil))
			convey.So(err, convey.ShouldBeNil)
			convey.So(stop(ctx), convey.ShouldBeNil)

			convey.Convey("Then they stop in reverse order", func() {
				convey.So(rec.calls, convey.ShouldResemble, []string{
					"start service", "start reporter", "stop reporter", "stop service",
				})
			})
		})

		convey.Convey("When a later component fails to start", func() {
			boom := errors.New("bad schedule")
			stop, err := startAll(ctx, rec.component("service", nil), rec.component("reporter", boom))

			convey.Convey("Then the started service is shut down and the error returned", func() {
				convey.So(stop, convey.ShouldBeNil)
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "start reporter")
				convey.So(rec.calls, convey.ShouldResemble, []string{
					"start service", "start reporter", "stop service",
				})
			})
		})

		convey.Convey("When the first component fails", func() {
			_, err := startAll(ctx, rec.component("service", errors.New("boom")), rec.component("reporter", nil))

			convey.Convey("Then nothing else is started or stopped", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(rec.calls, convey.ShouldResemble, []string{"start service"})
			})
		})
	})
}
