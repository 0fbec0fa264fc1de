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

// Package shutdown 提供單次觸發（single-shot）的關閉信號。
//
// 在容器中以 PID 1 執行的程式，若沒有自行註冊 SIGTERM 處理器，信號會被忽略，
// 容器執行環境只能等到逾時後送出 SIGKILL，造成延遲且不乾淨的關閉。
// 因此程式啟動時應呼叫一次 MustRegister，之後由 lifecycle 等待 Wait / Done。
//
// 狀態：Listening → Resolved(trigger)。第一個到達的信號（或來源錯誤、或手動 Trigger）決定 trigger，
// 之後不再改變，也不會重新進入 Listening。
package shutdown

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"

	"github.com/zintix-labs/statekeep/errs"
)

// ErrSourceClosed 信號來源在未送出任何信號前關閉。
var ErrSourceClosed = errors.New("signal source closed")

// DefaultSignals 回傳預設監聽的信號：interrupt、terminate、quit。
func DefaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT}
}

// Trigger 記錄 Signal 被觸發的原因，只用於觀測（log），不影響後續流程。
//   - Signal != nil：收到 OS 信號
//   - Err != nil：信號來源錯誤（fail-safe：寧可關閉，也不要永遠卡住）
//   - Reason != ""：程式主動觸發
type Trigger struct {
	Signal os.Signal
	Err    error
	Reason string
}

func (t Trigger) String() string {
	switch {
	case t.Err != nil:
		return "error: " + t.Err.Error()
	case t.Signal != nil:
		return "signal: " + t.Signal.String()
	case t.Reason != "":
		return "manual: " + t.Reason
	default:
		return "unresolved"
	}
}

type config struct {
	sigs []os.Signal
	src  Source
	log  *slog.Logger
}

// Option 設定 Register。
type Option func(*config)

// WithSignals 覆寫監聽的信號集合。
func WithSignals(sigs ...os.Signal) Option {
	return func(c *config) { c.sigs = sigs }
}

// WithSource 注入信號來源，預設為 NewOSSource()。
func WithSource(src Source) Option {
	return func(c *config) { c.src = src }
}

// WithLogger 指定 logger，預設為 slog.Default()。
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// Signal 是單次觸發的關閉事件。
type Signal struct {
	src    Source
	events <-chan Event
	log    *slog.Logger

	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
	stopOnce sync.Once
	trigger  Trigger
}

// Register 安裝信號處理器並開始監聽。每個行程應只呼叫一次。
// 失敗時回傳 errs.ErrSignalRegistration。
func Register(opts ...Option) (*Signal, error) {
	cfg := config{sigs: DefaultSignals(), log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if len(cfg.sigs) == 0 {
		return nil, errs.NewKind(errs.KindSignalRegistration, "no signals to watch", "", nil)
	}
	if cfg.src == nil {
		cfg.src = NewOSSource()
	}

	events, err := cfg.src.Subscribe(cfg.sigs)
	if err == nil && events == nil {
		err = ErrSourceClosed
	}
	if err != nil {
		return nil, errs.NewKind(errs.KindSignalRegistration, "install signal handlers", fmt.Sprint(cfg.sigs), err)
	}

	s := &Signal{
		src:     cfg.src,
		events:  events,
		log:     cfg.log,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.listen()
	return s, nil
}

// MustRegister 同 Register，失敗時 panic。
// 沒有信號處理就可能永遠無法乾淨關閉，不存在安全的降級模式，所以直接中止啟動。
func MustRegister(opts ...Option) *Signal {
	s, err := Register(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Signal) listen() {
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				s.resolve(Trigger{Err: ErrSourceClosed})
				return
			}
			t := Trigger{Signal: ev.Signal, Err: ev.Err}
			if t.Signal == nil && t.Err == nil {
				t.Err = ErrSourceClosed
			}
			if !s.resolve(t) {
				s.log.Info("signal ignored, shutdown already in progress", slog.String("trigger", t.String()))
			}
		case <-s.stopped:
			return
		}
	}
}

func (s *Signal) resolve(t Trigger) bool {
	first := false
	s.once.Do(func() {
		first = true
		s.trigger = t
		close(s.done)
		switch {
		case t.Err != nil:
			s.log.Warn("signal handler error, shutting down", slog.Any("err", t.Err))
		case t.Signal != nil:
			s.log.Info("shutting down after signal", slog.String("signal", t.Signal.String()))
		default:
			s.log.Info("shutting down", slog.String("reason", t.Reason))
		}
	})
	return first
}

// Wait 阻塞直到 Signal 觸發，回傳觸發原因。觸發後再呼叫會立即回傳同一個 Trigger。
func (s *Signal) Wait() Trigger {
	<-s.done
	return s.trigger
}

// Done 回傳觸發時關閉的 channel，可直接放進 select。
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Resolved 回報是否已觸發（不阻塞）。
func (s *Signal) Resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Trigger 由程式主動觸發關閉，例如某個元件異常退出。
// 回傳 false 表示已經被其他原因觸發過。
func (s *Signal) Trigger(reason string) bool {
	return s.resolve(Trigger{Reason: reason})
}

// Stop 釋放信號處理器。應在關閉流程（flush）完成後呼叫；
// 在此之前收到的後續信號都只會被記錄，不會打斷 flush。
func (s *Signal) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.src.Close()
	})
}
