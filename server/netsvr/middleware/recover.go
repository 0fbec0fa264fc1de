package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/zintix-labs/statekeep/errs"
	"github.com/zintix-labs/statekeep/server/httperr"
)

// Recover 攔截 handler panic，記錄 stack 並回傳 500 錯誤頁。
// http.ErrAbortHandler 照原樣往上拋，維持 net/http 的中止語意。
func Recover(log *slog.Logger, detailed bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := errs.NewWithExtra(errs.Fatal, "handler panic", fmt.Sprint(rec))
				if log != nil {
					log.Error("http.panic",
						slog.String("path", r.URL.Path),
						slog.String("req_id", GetReqId(r)),
						slog.Any("err", err),
						slog.String("stack", string(debug.Stack())),
					)
				}
				if r.Header.Get("Connection") != "Upgrade" {
					httperr.Page(w, err, detailed)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
