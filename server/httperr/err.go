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

package httperr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/statekeep/errs"
)

// StatusCoder 讓錯誤自行決定 HTTP status（例如路由層的 404 / 405）。
type StatusCoder interface {
	StatusCode() int
}

// RouteNotFound 找不到對應路由。
type RouteNotFound struct{ Path string }

func (e RouteNotFound) Error() string   { return "uri not found: " + e.Path }
func (e RouteNotFound) StatusCode() int { return http.StatusNotFound }

// MethodNotAllowed 路由存在但方法不符。
type MethodNotAllowed struct{ Method string }

func (e MethodNotAllowed) Error() string   { return "method not allowed: " + e.Method }
func (e MethodNotAllowed) StatusCode() int { return http.StatusMethodNotAllowed }

// StatusCode 將錯誤映射成 HTTP status code。
//
// 規則（邊界層最小映射、可預期）：
//   - StatusCoder                → 自訂
//   - ctx timeout/cancel         → 504/408（請求生命週期問題）
//   - errs.ErrNotFound           → 404
//   - errs.ErrWriteFailure       → 503（磁碟暫時不可用，呼叫端可重試）
//   - errs.Warn                  → 400（請求/參數問題）
//   - errs.Fatal / 其他          → 500（系統/不可恢復問題）
func StatusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrWriteFailure):
		return http.StatusServiceUnavailable
	}

	if e, ok := errs.AsErr(err); ok && e.ErrLv == errs.Warn {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// UserVisible 回報錯誤細節是否可以顯示給一般使用者：500 以外的錯誤都是請求端可理解的問題。
func UserVisible(err error) bool {
	return StatusCode(err) != http.StatusInternalServerError
}

// Errs 以純文字回應錯誤。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	http.Error(w, err.Error(), status)
}

// Log 依 status 決定 log 等級；4xx 中只有 408/409/429 值得記錄。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	if (status == 408) || (status == 409) || (status == 429) {
		log.Warn(msg, slog.Any("err", err))
	} else if (status >= 500) && (status < 600) {
		log.Error(msg, slog.Any("err", err), slog.Int("status", status))
	}
}

// Chain 展開錯誤鏈（由外到內），用於錯誤頁。
func Chain(err error) []string {
	var out []string
	for err != nil {
		out = append(out, err.Error())
		err = errors.Unwrap(err)
	}
	return out
}

func statusLine(status int) string {
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}
