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

// Package app 提供應用程式生命週期管理（App）：啟動接收工作的 Component，
// 等待關閉信號，停止收件，最後依序 flush 所有註冊的 store。
package app

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/zintix-labs/statekeep/errs"
	"github.com/zintix-labs/statekeep/shutdown"
)

type flushEntry struct {
	name string
	fn   FlushFunc
}

type exit struct {
	idx int
	err error
}

// App 是生命週期協調者。
//
// 關閉流程：
//  1. 等待 shutdown.Signal 觸發（OS 信號、信號來源錯誤，或任一 Component 的 Run 返回）。
//  2. 依註冊順序呼叫每個 Component.Shutdown，停止接收新工作。
//  3. 依註冊順序呼叫每個 flush；單一失敗只記錄，不影響其餘 flush。
//  4. 回傳 Summary，由呼叫端決定 exit code。
//
// App 不設強制結束的逾時：若某個 Shutdown 或 flush 永遠不返回，Run 也不會返回，
// 硬性逾時交給外層 supervisor（容器執行環境 / init system）。
type App struct {
	sig *shutdown.Signal
	log *slog.Logger

	mu      sync.Mutex
	comps   []Component
	flushes []flushEntry
	started bool
}

// New 建立一個新的 App 實例。log 為 nil 時使用 slog.Default()。
func New(sig *shutdown.Signal, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{sig: sig, log: log}
}

// NewWith 是 New 的語法糖，允許在建立時直接註冊多個 Component。
func NewWith(sig *shutdown.Signal, log *slog.Logger, comps ...Component) *App {
	a := New(sig, log)
	for _, c := range comps {
		_ = a.Register(c)
	}
	return a
}

// Register 註冊一個 Component，必須在 Run 之前呼叫。
func (a *App) Register(c Component) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errs.NewFatal("register component after run")
	}
	if isNil(c) {
		return errs.NewWarn("nil component")
	}
	a.comps = append(a.comps, c)
	return nil
}

// RegisterStore 以 s.Path() 為名稱、s.Save 為 flush 註冊一個 store。
func (a *App) RegisterStore(s Saver) error {
	if isNil(s) {
		return errs.NewWarn("nil store")
	}
	return a.RegisterFlush(s.Path(), s.Save)
}

// RegisterFlush 註冊一個 flush，必須在 Run 之前呼叫。flush 依註冊順序執行。
func (a *App) RegisterFlush(name string, fn FlushFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errs.NewWithExtra(errs.Fatal, "register flush after run", name)
	}
	if fn == nil {
		return errs.NewWarn("nil flush func")
	}
	a.flushes = append(a.flushes, flushEntry{name: name, fn: fn})
	return nil
}

// Run 啟動所有 Component 並阻塞直到關閉流程完成。每個 App 只能 Run 一次。
func (a *App) Run() *Summary {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return &Summary{ComponentErr: errs.NewFatal("app already run")}
	}
	a.started = true
	comps := a.comps
	flushes := a.flushes
	a.mu.Unlock()
	defer a.sig.Stop()

	sum := &Summary{RunID: uuid.NewString()}
	log := a.log.With(slog.String("run_id", sum.RunID))

	exitCh := make(chan exit, len(comps))
	for i, c := range comps {
		go func(i int, c Component) {
			exitCh <- exit{idx: i, err: c.Run()}
		}(i, c)
	}

	// 等待兩種觸發：關閉信號，或任一 Component 提前返回
	select {
	case <-a.sig.Done():
	case ex := <-exitCh:
		sum.ComponentErr = ex.err
		if ex.err != nil {
			log.Error("component stopped", slog.Int("component", ex.idx), slog.Any("err", ex.err))
		}
		a.sig.Trigger(fmt.Sprintf("component %d exited", ex.idx))
	}
	sum.Trigger = a.sig.Wait()
	log.Info("shutdown started", slog.String("trigger", sum.Trigger.String()))

	// 停止收件；不設 deadline
	for i, c := range comps {
		if err := c.Shutdown(context.Background()); err != nil {
			sum.ShutdownErrs = append(sum.ShutdownErrs, err)
			log.Error("component shutdown", slog.Int("component", i), slog.Any("err", err))
		}
	}

	for i, f := range flushes {
		if err := safeFlush(f.fn); err != nil {
			sum.Failures = append(sum.Failures, FlushFailure{Index: i, Name: f.name, Err: err})
			log.Error("flush failed", slog.String("store", f.name), slog.Any("err", err))
			continue
		}
		sum.Flushed = append(sum.Flushed, f.name)
		log.Debug("flushed", slog.String("store", f.name))
	}

	log.Info("shutdown complete",
		slog.Int("flushed", len(sum.Flushed)),
		slog.Int("failed", len(sum.Failures)),
	)
	return sum
}

// safeFlush 將 flush 中的 panic 轉成錯誤，確保其餘 flush 仍會執行。
func safeFlush(fn FlushFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Fatalf("flush panic: %v", r)
		}
	}()
	return fn()
}

// isNil 同時攔下 nil interface 與包著 nil 指標的 interface（例如 (*store.Store[T])(nil)）。
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
