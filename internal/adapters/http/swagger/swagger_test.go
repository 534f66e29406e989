package swagger_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cadencelab/cadence/internal/adapters/http/swagger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegister(t *testing.T) {
	Convey("Given the docs routes", t, func() {
		mux := http.NewServeMux()
		swagger.Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("The OpenAPI spec is served as YAML", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldStartWith, "application/yaml")

			body, err := io.ReadAll(resp.Body)
			So(err, ShouldBeNil)
			spec := string(body)
			So(spec, ShouldContainSubstring, "openapi: 3.0.3")
			for _, path := range []string{"/sessions", "/sessions/{id}/audio", "/sessions/{id}/analysis", "/analyses", "/trends", "/blobs/{key}"} {
				So(spec, ShouldContainSubstring, path)
			}
		})

		Convey("The viewer page points at the spec", func() {
			resp, err := http.Get(srv.URL + "/api-docs")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			body, err := io.ReadAll(resp.Body)
			So(err, ShouldBeNil)
			So(strings.Contains(string(body), "/openapi.yaml"), ShouldBeTrue)
		})
	})
}
