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

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/zintix-labs/statekeep/errs"
	"github.com/zintix-labs/statekeep/shutdown"
	"github.com/zintix-labs/statekeep/store"
)

type chanSource struct {
	ch chan shutdown.Event
}

func (c *chanSource) Subscribe([]os.Signal) (<-chan shutdown.Event, error) { return c.ch, nil }
func (c *chanSource) Close()                                               {}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSignal(t *testing.T) (*shutdown.Signal, chan shutdown.Event) {
	t.Helper()
	src := &chanSource{ch: make(chan shutdown.Event, 1)}
	sig, err := shutdown.Register(shutdown.WithSource(src), shutdown.WithLogger(quietLog()))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return sig, src.ch
}

// recorder 記錄事件順序
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type blockingComp struct {
	name string
	rec  *recorder
	stop chan struct{}
	once sync.Once
}

func newBlockingComp(name string, rec *recorder) *blockingComp {
	return &blockingComp{name: name, rec: rec, stop: make(chan struct{})}
}

func (b *blockingComp) Run() error {
	<-b.stop
	return nil
}

func (b *blockingComp) Shutdown(context.Context) error {
	b.rec.add("shutdown:" + b.name)
	b.once.Do(func() { close(b.stop) })
	return nil
}

type failingComp struct{ err error }

func (f failingComp) Run() error                     { return f.err }
func (f failingComp) Shutdown(context.Context) error { return nil }

func runAsync(a *App) <-chan *Summary {
	ch := make(chan *Summary, 1)
	go func() { ch <- a.Run() }()
	return ch
}

func await(t *testing.T, ch <-chan *Summary) *Summary {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
		return nil
	}
}

func TestPartialFailureFlush(t *testing.T) {
	sig, events := newSignal(t)
	a := New(sig, quietLog())
	rec := &recorder{}

	boom := errors.New("disk full")
	_ = a.RegisterFlush("first", func() error { rec.add("flush:first"); return nil })
	_ = a.RegisterFlush("second", func() error { rec.add("flush:second"); return boom })
	_ = a.RegisterFlush("third", func() error { rec.add("flush:third"); return nil })

	done := runAsync(a)
	time.Sleep(10 * time.Millisecond)
	if len(rec.list()) != 0 {
		t.Fatalf("flush must not run before the signal: %v", rec.list())
	}

	events <- shutdown.Event{Signal: syscall.SIGTERM}
	sum := await(t, done)

	want := []string{"flush:first", "flush:second", "flush:third"}
	got := rec.list()
	if len(got) != len(want) {
		t.Fatalf("unexpected flush order %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected flush order %v", got)
		}
	}
	if len(sum.Failures) != 1 || sum.Failures[0].Name != "second" || sum.Failures[0].Index != 1 {
		t.Fatalf("expected exactly one failure for second, got %+v", sum.Failures)
	}
	if len(sum.Flushed) != 2 || sum.Flushed[1] != "third" {
		t.Fatalf("unexpected flushed list %v", sum.Flushed)
	}
	if sum.OK() {
		t.Fatalf("summary should not be ok")
	}
	err := sum.Err()
	if !errors.Is(err, errs.ErrFlushFailure) || !errors.Is(err, boom) {
		t.Fatalf("unexpected summary err %v", err)
	}
	if sum.Trigger.Signal != syscall.SIGTERM {
		t.Fatalf("unexpected trigger %v", sum.Trigger)
	}
	if sum.RunID == "" {
		t.Fatalf("run id should be set")
	}
}

func TestStoresFlushedOnShutdown(t *testing.T) {
	type state struct {
		Counter int `json:"counter"`
	}
	dir := t.TempDir()
	a1 := store.New(filepath.Join(dir, "a.json"), state{Counter: 1})
	bad := store.New(filepath.Join(dir, "missing", "b.json"), state{Counter: 2})
	a3 := store.New(filepath.Join(dir, "c.yaml"), state{Counter: 3})

	sig, _ := newSignal(t)
	a := New(sig, quietLog())
	for _, s := range []Saver{a1, bad, a3} {
		if err := a.RegisterStore(s); err != nil {
			t.Fatalf("register store: %v", err)
		}
	}
	done := runAsync(a)
	sig.Trigger("test")
	sum := await(t, done)

	if len(sum.Failures) != 1 || !errors.Is(sum.Failures[0].Err, errs.ErrWriteFailure) {
		t.Fatalf("unexpected failures %+v", sum.Failures)
	}
	l, err := store.Load[state](filepath.Join(dir, "c.yaml"))
	if err != nil || l.Value().Counter != 3 {
		t.Fatalf("third store not flushed: %v", err)
	}
}

func TestComponentsStopBeforeFlush(t *testing.T) {
	sig, events := newSignal(t)
	rec := &recorder{}
	a := NewWith(sig, quietLog(), newBlockingComp("http", rec), newBlockingComp("consumer", rec))
	_ = a.RegisterFlush("state", func() error { rec.add("flush:state"); return nil })

	done := runAsync(a)
	events <- shutdown.Event{Signal: os.Interrupt}
	sum := await(t, done)

	got := rec.list()
	want := []string{"shutdown:http", "shutdown:consumer", "flush:state"}
	if len(got) != 3 {
		t.Fatalf("unexpected events %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected events %v", got)
		}
	}
	if !sum.OK() || sum.Err() != nil {
		t.Fatalf("expected clean summary, got %v", sum.Err())
	}
}

func TestComponentFailureTriggersShutdown(t *testing.T) {
	sig, _ := newSignal(t)
	boom := errors.New("listen: address in use")
	a := NewWith(sig, quietLog(), failingComp{err: boom})
	var flushed atomic.Int32
	_ = a.RegisterFlush("state", func() error { flushed.Add(1); return nil })

	sum := await(t, runAsync(a))
	if !errors.Is(sum.ComponentErr, boom) {
		t.Fatalf("expected component error, got %v", sum.ComponentErr)
	}
	if sum.Trigger.Reason == "" {
		t.Fatalf("expected manual trigger, got %v", sum.Trigger)
	}
	if flushed.Load() != 1 {
		t.Fatalf("flush should still run once, got %d", flushed.Load())
	}
	if !sig.Resolved() {
		t.Fatalf("signal should be resolved")
	}
}

func TestRunOnlyOnce(t *testing.T) {
	sig, _ := newSignal(t)
	a := New(sig, quietLog())
	var calls atomic.Int32
	_ = a.RegisterFlush("x", func() error { calls.Add(1); return nil })

	sig.Trigger("test")
	first := a.Run()
	second := a.Run()
	if !first.OK() {
		t.Fatalf("first run should succeed: %v", first.Err())
	}
	if second.ComponentErr == nil {
		t.Fatalf("second run must be rejected")
	}
	if calls.Load() != 1 {
		t.Fatalf("flush invoked %d times", calls.Load())
	}
	if err := a.RegisterFlush("late", func() error { return nil }); err == nil {
		t.Fatalf("register after run must fail")
	}
	if err := a.Register(newBlockingComp("late", &recorder{})); err == nil {
		t.Fatalf("register component after run must fail")
	}
}

func TestFlushPanicIsReported(t *testing.T) {
	sig, _ := newSignal(t)
	a := New(sig, quietLog())
	ran := false
	_ = a.RegisterFlush("panics", func() error { panic("nil map") })
	_ = a.RegisterFlush("after", func() error { ran = true; return nil })

	sig.Trigger("test")
	sum := a.Run()
	if len(sum.Failures) != 1 || sum.Failures[0].Name != "panics" {
		t.Fatalf("unexpected failures %+v", sum.Failures)
	}
	if !ran {
		t.Fatalf("flush after panic should run")
	}
}

func TestRegisterRejectsNil(t *testing.T) {
	sig, _ := newSignal(t)
	defer sig.Stop()
	a := New(sig, nil)
	if err := a.RegisterFlush("nil", nil); err == nil {
		t.Fatalf("nil flush should be rejected")
	}
	if err := a.Register(nil); err == nil {
		t.Fatalf("nil component should be rejected")
	}
	if err := a.RegisterStore(nil); err == nil {
		t.Fatalf("nil store should be rejected")
	}
	if err := a.RegisterStore((*store.Store[int])(nil)); err == nil {
		t.Fatalf("typed nil store should be rejected")
	}
	if err := a.Register((*blockingComp)(nil)); err == nil {
		t.Fatalf("typed nil component should be rejected")
	}
}
