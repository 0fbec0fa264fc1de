package netsvr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChiAdapterRoutes(t *testing.T) {
	c := NewChiServer(":0")
	if !c.Ready() {
		t.Fatalf("adapter should be ready")
	}
	c.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })
	c.Group("/v1", func(r NetRouter) {
		r.Post("/echo", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "echo") })
	})
	c.NotFound(func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "custom 404", 404) })
	c.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "custom 405", 405) })

	cases := []struct {
		method, path string
		code         int
		body         string
	}{
		{http.MethodGet, "/ping", 200, "pong"},
		{http.MethodPost, "/v1/echo", 200, "echo"},
		{http.MethodGet, "/nope", 404, "custom 404"},
		{http.MethodDelete, "/ping", 405, "custom 405"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.code || !strings.Contains(rec.Body.String(), tc.body) {
			t.Fatalf("%s %s: %d %q", tc.method, tc.path, rec.Code, rec.Body.String())
		}
	}
}

func TestChiAdapterLifecycle(t *testing.T) {
	c := NewChiServer("127.0.0.1:0")
	c.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	var addr string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := c.Address(); a != "127.0.0.1:0" {
			addr = a
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if addr == "" {
		t.Fatalf("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("unexpected body %q", body)
	}

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run should return nil after Shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
}

func TestChiAdapterListenError(t *testing.T) {
	c := NewChiServer("256.0.0.1:bad")
	if err := c.Run(); err == nil {
		t.Fatalf("expected listen error")
	}
}
