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

import "context"

// Component 抽象任何「負責接收新工作」的長生命週期元件。
//   - Run() 應該是阻塞呼叫，直到元件停止為止（正常或錯誤）。被 Shutdown 停下時應回傳 nil。
//   - Shutdown(ctx) 停止接收新工作並等待進行中的工作結束；App 傳入的 ctx 沒有 deadline。
//
// 典型實例：HTTP Server、Message Consumer。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Saver 是可在關閉時 flush 的持久化單元；*store.Store[T] 直接滿足此介面。
type Saver interface {
	Save() error
	Path() string
}

// FlushFunc 將一個 store 的記憶體狀態寫入磁碟。
type FlushFunc func() error
