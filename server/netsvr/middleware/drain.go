package middleware

import (
	"net/http"
)

// Drain 在 done 關閉之後拒絕新請求（503 draining，並要求關閉連線）。
// 用於 shutdown 訊號與 server.Shutdown 之間的空窗：keep-alive 連線上的新請求不會再改動狀態。
func Drain(done <-chan struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-done:
				w.Header().Set("Connection", "close")
				w.Header().Set("Retry-After", "1")
				http.Error(w, "draining", http.StatusServiceUnavailable)
				return
			default:
			}
			next.ServeHTTP(w, r)
		})
	}
}
