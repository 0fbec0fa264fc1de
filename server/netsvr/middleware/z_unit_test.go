package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var payload = strings.Repeat(`{"counter":42}`, 64)

func textHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, payload)
}

func TestNegotiate(t *testing.T) {
	cases := map[string]string{
		"":                           "",
		"br":                         "",
		"gzip":                       "gzip",
		"gzip, zstd":                 "zstd",
		"zstd;q=0, gzip":             "gzip",
		"gzip;q=1.0, zstd;q=0.5":     "gzip",
		"GZIP;q=0":                   "",
		"deflate, gzip;q=0.3, zstd;": "zstd",
	}
	for in, want := range cases {
		if got := negotiate(in); got != want {
			t.Fatalf("negotiate(%q)=%q want %q", in, got, want)
		}
	}
}

func TestCompressionGzip(t *testing.T) {
	h := Compression(http.HandlerFunc(textHandler))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding")
	}
	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	got, err := io.ReadAll(gr)
	if err != nil || string(got) != payload {
		t.Fatalf("unexpected body %q err=%v", got, err)
	}
}

func TestCompressionZstd(t *testing.T) {
	h := Compression(http.HandlerFunc(textHandler))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, zstd")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "zstd" {
		t.Fatalf("expected zstd encoding")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	got, err := dec.DecodeAll(rec.Body.Bytes(), nil)
	if err != nil || string(got) != payload {
		t.Fatalf("unexpected body %q err=%v", got, err)
	}
}

func TestCompressionSkipsNoBody(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 204 || rec.Body.Len() != 0 || rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("204 must not carry compressed footer: %d %q", rec.Code, rec.Body.Bytes())
	}
}

func TestCompressionPassThrough(t *testing.T) {
	h := Compression(http.HandlerFunc(textHandler))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Content-Encoding") != "" || rec.Body.String() != payload {
		t.Fatalf("request without Accept-Encoding must not be compressed")
	}
}

func TestDrain(t *testing.T) {
	done := make(chan struct{})
	h := Drain(done)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != 200 || rec.Body.String() != "ok" {
		t.Fatalf("before drain: %d %q", rec.Code, rec.Body.String())
	}

	close(done)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != 503 || strings.TrimSpace(rec.Body.String()) != "draining" {
		t.Fatalf("after drain: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Connection") != "close" {
		t.Fatalf("drained response should close the connection")
	}
}

func TestRecoverRendersPage(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestID(Recover(log, false)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/state", nil))

	if rec.Code != 500 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Fatalf("panic value leaked without detailed errors")
	}
	if !strings.Contains(buf.String(), "http.panic") || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id header missing")
	}
}

func TestRecoverRethrowsAbort(t *testing.T) {
	h := Recover(nil, false)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler, got %v", r)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "tea")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/state/incr", nil))

	out := buf.String()
	for _, want := range []string{`"msg":"http.access"`, `"status":418`, `"level":"WARN"`, `"bytes":3`, `"path":"/v1/state/incr"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
	if AccessLog(nil)(http.NotFoundHandler()) == nil {
		t.Fatalf("nil logger should still return a handler")
	}
}
