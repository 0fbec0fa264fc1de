// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zintix-labs/statekeep/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{RouteNotFound{Path: "/x"}, 404},
		{fmt.Errorf("wrap: %w", MethodNotAllowed{Method: "PUT"}), 405},
		{context.DeadlineExceeded, 504},
		{context.Canceled, 408},
		{errs.NewKind(errs.KindNotFound, "load", "a.json", nil), 404},
		{errs.NewKind(errs.KindWriteFailure, "save", "a.json", nil), 503},
		{errs.NewWarn("bad by"), 400},
		{errs.NewFatal("boom"), 500},
		{errors.New("plain"), 500},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Fatalf("StatusCode(%v)=%d want %d", c.err, got, c.want)
		}
	}
}

func TestPageHidesInternalDetailsUnlessDetailed(t *testing.T) {
	err := errs.Wrap(errors.New("secret <path>"), "save state")

	rec := httptest.NewRecorder()
	Page(rec, err, false)
	if rec.Code != 500 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "500 Internal Server Error") || strings.Contains(body, "secret") {
		t.Fatalf("internal details leaked: %s", body)
	}

	rec = httptest.NewRecorder()
	Page(rec, err, true)
	body = rec.Body.String()
	if strings.Count(body, "<pre>") != 2 {
		t.Fatalf("expected full chain, got %s", body)
	}
	if !strings.Contains(body, "secret &lt;path&gt;") {
		t.Fatalf("details must be escaped: %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestRouteHandlers(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFoundHandler(false)(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != 404 || !strings.Contains(rec.Body.String(), "uri not found: /nope") {
		t.Fatalf("unexpected 404 page: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	MethodNotAllowedHandler(false)(rec, httptest.NewRequest(http.MethodDelete, "/v1/state", nil))
	if rec.Code != 405 || !strings.Contains(rec.Body.String(), "method not allowed: DELETE") {
		t.Fatalf("unexpected 405 page: %d %s", rec.Code, rec.Body.String())
	}
}

func TestErrsWritesPlainText(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.NewWarn("by must be integer"))
	if rec.Code != 400 || !strings.Contains(rec.Body.String(), "by must be integer") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	Errs(rec, nil)
	if rec.Code != 200 || rec.Body.Len() != 0 {
		t.Fatalf("nil error must not write")
	}
}
