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

package store

// Guard 是 Store 的獨佔存取憑證。
//
// 典型用法：
//
//	g := s.Acquire()
//	defer g.Release()
//	g.Value().Counter++
//	if err := g.Save(); err != nil { ... }
//
// Guard 不可跨 goroutine 共用；Release 之後再呼叫 Value / Save 會 panic。
type Guard[T any] struct {
	s        *Store[T]
	released bool
}

// Value 回傳可修改的值指標，只在 Release 前有效。
func (g *Guard[T]) Value() *T {
	g.mustHold()
	return &g.s.value
}

// Save 在持有鎖的情況下存檔，語意同 Store.Save。
func (g *Guard[T]) Save() error {
	g.mustHold()
	return g.s.save()
}

// Release 釋放獨佔權。重複呼叫無作用。
func (g *Guard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.s.mu.Unlock()
}

func (g *Guard[T]) mustHold() {
	if g.released {
		panic("store: guard used after release")
	}
}
