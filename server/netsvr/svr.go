package netsvr

import (
	"net/http"

	"github.com/zintix-labs/statekeep/server/app"
)

// NetSvr 封裝「路由行為 + 服務啟停」的抽象介面。
//   - 只暴露給最外層組裝者使用，其他層只需面向 NetRouter。
//   - NetSvr 本身實作了 app.Component，可以直接交給 app.App 管理生命週期：
//     訊號觸發後先 Shutdown 停止接收請求，App 才開始存檔。
type NetSvr interface {
	NetRouter
	app.Component
}

// NetRouter 定義純路由行為，讓 handler 只操作路由而不持有啟停控制權。
type NetRouter interface {
	// middleware
	Use(middleware func(http.Handler) http.Handler)

	// 註冊路由
	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Handle(path string, h http.Handler)

	// 找不到路由 / 方法不符時的回應
	NotFound(h http.HandlerFunc)
	MethodNotAllowed(h http.HandlerFunc)

	// 群組路由
	Group(path string, fn func(NetRouter))
}
