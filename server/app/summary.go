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
	"errors"

	"github.com/zintix-labs/statekeep/errs"
	"github.com/zintix-labs/statekeep/shutdown"
)

// FlushFailure 單一 flush 的失敗紀錄。Index 為註冊順序（從 0 開始）。
type FlushFailure struct {
	Index int
	Name  string
	Err   error
}

// Summary 是 App.Run 的結果。
type Summary struct {
	RunID   string
	Trigger shutdown.Trigger

	// Flushed 依註冊順序列出成功 flush 的名稱
	Flushed  []string
	Failures []FlushFailure

	// ComponentErr 為觸發關閉的元件錯誤（若關閉是由元件異常退出引起）
	ComponentErr error
	ShutdownErrs []error
}

// OK 表示所有元件正常關閉且所有 flush 成功。
func (s *Summary) OK() bool {
	return s.ComponentErr == nil && len(s.ShutdownErrs) == 0 && len(s.Failures) == 0
}

// Err 將所有錯誤合併為一個 error；flush 失敗會帶 errs.ErrFlushFailure 分類。
func (s *Summary) Err() error {
	if s.OK() {
		return nil
	}
	all := make([]error, 0, 1+len(s.ShutdownErrs)+len(s.Failures))
	if s.ComponentErr != nil {
		all = append(all, s.ComponentErr)
	}
	all = append(all, s.ShutdownErrs...)
	for _, f := range s.Failures {
		all = append(all, errs.NewKind(errs.KindFlushFailure, "flush", f.Name, f.Err))
	}
	return errors.Join(all...)
}
