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

package shutdown

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// Event 是 Source 送出的單一事件：收到的信號，或信號來源本身的錯誤。
type Event struct {
	Signal os.Signal
	Err    error
}

// Source 抽象信號來源。預設實作為 OS 信號（NewOSSource），測試可注入假的來源。
//   - Subscribe 開始監聽 sigs，回傳事件 channel；channel 被關閉視為來源錯誤。
//   - Close 停止監聽，之後不再送出事件（channel 不會被關閉）。
type Source interface {
	Subscribe(sigs []os.Signal) (<-chan Event, error)
	Close()
}

// 同一行程內同時只允許一組 OS 信號處理器。
var osActive atomic.Bool

var errOSActive = errors.New("os signal handlers already registered in this process")

type osSource struct {
	in   chan os.Signal
	out  chan Event
	stop chan struct{}
	once sync.Once
}

// NewOSSource 回傳以 os/signal 實作的 Source。
func NewOSSource() Source { return &osSource{} }

func (s *osSource) Subscribe(sigs []os.Signal) (<-chan Event, error) {
	if !osActive.CompareAndSwap(false, true) {
		return nil, errOSActive
	}
	s.in = make(chan os.Signal, len(sigs))
	s.out = make(chan Event, 1)
	s.stop = make(chan struct{})
	signal.Notify(s.in, sigs...)
	go s.forward()
	return s.out, nil
}

func (s *osSource) forward() {
	for {
		select {
		case sig := <-s.in:
			select {
			case s.out <- Event{Signal: sig}:
			case <-s.stop:
				return
			}
		case <-s.stop:
			return
		}
	}
}

func (s *osSource) Close() {
	s.once.Do(func() {
		if s.in == nil {
			return
		}
		signal.Stop(s.in)
		close(s.stop)
		osActive.Store(false)
	})
}
