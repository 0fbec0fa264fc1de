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

// Package logger 組裝 statekeep 使用的 *slog.Logger。
//
// 兩種用法：
//   - New(mode)：同步 handler，適合測試與 CLI。
//   - NewAsync(buf, mode)：非同步 handler，請求路徑只做 enqueue；
//     行程結束前必須呼叫 AsyncHandler.Close，把佇列中的紀錄寫完（關閉流程的最後一步）。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// enum LogMode
type LogMode uint8

const (
	ModeDev LogMode = iota
	ModeProd
	ModeSilence
)

// ParseMode 解析設定字串，接受 "dev" / "ModeDev" 等寫法；無法辨識時回傳 ModeDev。
func ParseMode(s string) LogMode {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "Mode")) {
	case "prod", "production":
		return ModeProd
	case "silence", "silent", "off":
		return ModeSilence
	default:
		return ModeDev
	}
}

func (m LogMode) String() string {
	switch m {
	case ModeProd:
		return "prod"
	case ModeSilence:
		return "silence"
	default:
		return "dev"
	}
}

// New 以 LogMode 預設值建立同步 logger。
func New(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode))
}

// NewAsync 以 LogMode 預設值建立非同步 logger，並回傳可 Close 的 handler。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode), buf)
	return slog.New(ah), ah
}

// AsyncHandler 把任何 slog.Handler 變成非阻塞：
//   - Handle 只做 enqueue；佇列滿時丟棄並計數（不把 I/O 延遲傳回呼叫端）。
//   - 背景 goroutine 依序交給下游 handler 寫出。
//   - Close 後不再接受新紀錄，並等待佇列清空。
type AsyncHandler struct {
	next slog.Handler
	q    *queue
}

type queue struct {
	ch      chan entry
	closing chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

type entry struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler 以 buf 大小的佇列包裝 next。buf <= 0 時使用 1024。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev)
	}
	if buf <= 0 {
		buf = 1024
	}
	q := &queue{
		ch:      make(chan entry, buf),
		closing: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.drain()
	return &AsyncHandler{next: next, q: q}
}

func (q *queue) drain() {
	defer q.wg.Done()
	for {
		select {
		case e := <-q.ch:
			_ = e.h.Handle(e.ctx, e.rec)
		case <-q.closing:
			for {
				select {
				case e := <-q.ch:
					_ = e.h.Handle(e.ctx, e.rec)
				default:
					return
				}
			}
		}
	}
}

// Ready 回報 handler 是否可用。
func (h *AsyncHandler) Ready() bool {
	return h != nil && h.q != nil && h.next != nil
}

// Dropped 回傳因佇列已滿或已關閉而被丟棄的紀錄數。
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.dropped.Load()
}

// Close 停止接收並寫完佇列中的紀錄。可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.q.once.Do(func() { close(h.q.closing) })
	h.q.wg.Wait()
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.q.closing:
		h.q.dropped.Add(1)
		return nil
	default:
	}

	// Record 內含可變的 attr 切片，跨 goroutine 前先 Clone
	select {
	case h.q.ch <- entry{ctx: ctx, rec: r.Clone(), h: h.next}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}

func buildHandler(mode LogMode) slog.Handler {
	return buildHandlerTo(mode, nil)
}

// buildHandlerTo 允許覆寫輸出目的地（測試用）；w 為 nil 時依 mode 決定。
func buildHandlerTo(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeProd:
		// JSON + stdout，給 Loki / Promtail
		if w == nil {
			w = os.Stdout
		}
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.DiscardHandler
	default:
		if w == nil {
			w = os.Stderr
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
