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

// Package errs 定義 statekeep 共用的錯誤型別。
//
// 每個錯誤同時帶有兩個維度：
//   - ErrLevel：嚴重程度（Fatal / Warn / Log），讓最上層決定要中止、回報或僅記錄。
//   - Kind：錯誤分類（NotFound / Corrupt / WriteFailure ...），讓呼叫端用 errors.Is 做分支。
package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Kind 錯誤分類。
type Kind uint8

const (
	KindNone Kind = iota
	// KindNotFound 載入時目標檔案不存在，呼叫端通常改用預設值初始化。
	KindNotFound
	// KindCorrupt 檔案存在但無法解碼，呼叫端必須處理（丟棄、修復或告警）。
	KindCorrupt
	// KindReadFailure 讀檔時的其他 I/O 錯誤（權限、目錄等）。
	KindReadFailure
	// KindWriteFailure 存檔任一階段失敗；原檔保證未被改動。
	KindWriteFailure
	// KindSignalRegistration 無法安裝信號處理器，啟動階段的致命錯誤。
	KindSignalRegistration
	// KindFlushFailure 關閉流程中單一 store 的 flush 失敗。
	KindFlushFailure
)

// Sentinels，搭配 errors.Is 使用：
//
//	if errors.Is(err, errs.ErrNotFound) { ... }
var (
	ErrNotFound           = errors.New("not found")
	ErrCorrupt            = errors.New("corrupt")
	ErrReadFailure        = errors.New("read failure")
	ErrWriteFailure       = errors.New("write failure")
	ErrSignalRegistration = errors.New("signal registration failure")
	ErrFlushFailure       = errors.New("flush failure")
)

var kindSentinel = map[Kind]error{
	KindNotFound:           ErrNotFound,
	KindCorrupt:            ErrCorrupt,
	KindReadFailure:        ErrReadFailure,
	KindWriteFailure:       ErrWriteFailure,
	KindSignalRegistration: ErrSignalRegistration,
	KindFlushFailure:       ErrFlushFailure,
}

// 各分類的預設嚴重程度
var kindLevel = map[Kind]ErrLevel{
	KindNotFound:           Warn,
	KindCorrupt:            Fatal,
	KindReadFailure:        Fatal,
	KindWriteFailure:       Fatal,
	KindSignalRegistration: Fatal,
	KindFlushFailure:       Fatal,
}

// String 回傳分類名稱，空分類回傳空字串。
func (k Kind) String() string {
	if s, ok := kindSentinel[k]; ok {
		return s.Error()
	}
	return ""
}

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端可追加的額外上下文（例如檔案路徑）；
// Cause 可串接下層錯誤（wrap）；ErrLv 為嚴重程度；Kind 為錯誤分類。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Kind    Kind
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s", ErrLv(e.ErrLv))
	if e.Kind != KindNone {
		base += " kind=" + e.Kind.String()
	}
	base += " " + e.Message
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 讓 errors.Is(err, errs.ErrXxx) 依 Kind 命中。
func (e *E) Is(target error) bool {
	if e.Kind == KindNone {
		return false
	}
	return kindSentinel[e.Kind] == target
}

// New 依錯誤等級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// NewKind 建立帶分類的錯誤，ErrLv 取該分類的預設等級。
// extra 通常放檔案路徑或 store 名稱；cause 可為 nil。
func NewKind(kind Kind, msg string, extra string, cause error) *E {
	return &E{
		Message: msg,
		Extra:   extra,
		Cause:   cause,
		ErrLv:   kindLevel[kind],
		Kind:    kind,
	}
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 使用給定訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel / Kind 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Kind。
//   - 否則（多半是標準庫或三方依賴錯誤）ErrLv 視為 Fatal，Kind 為 KindNone。
func Wrap(cause error, msg string) *E {
	r := New(Fatal, msg)
	if e, ok := AsErr(cause); ok {
		r.ErrLv = e.ErrLv
		r.Kind = e.Kind
	}
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，但附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// KindOf 回傳 err 鏈上第一個帶分類的 *E 的 Kind。
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*E); ok && e.Kind != KindNone {
			return e.Kind
		}
		err = errors.Unwrap(err)
	}
	return KindNone
}
