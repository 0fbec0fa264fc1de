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

package api

import (
	"io"
	"net/http"

	v1 "github.com/zintix-labs/statekeep/server/api/v1"
	"github.com/zintix-labs/statekeep/server/httperr"
	"github.com/zintix-labs/statekeep/server/metrics"
	"github.com/zintix-labs/statekeep/server/netsvr"
	"github.com/zintix-labs/statekeep/server/netsvr/middleware"
	"github.com/zintix-labs/statekeep/server/svrcfg"
	"github.com/zintix-labs/statekeep/store"
)

// Deps 是路由需要的執行期依賴；由 server.Run 組裝後傳入。
type Deps struct {
	Store    *store.Store[v1.CounterState]
	Metrics  *metrics.Metrics
	Draining <-chan struct{} // shutdown 訊號成立後關閉
}

// RegisterRoutes 註冊 middleware 與所有路由。
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg, d Deps) error {
	registerMiddleware(svr, sCfg, d.Draining)  // 1. 註冊 middleware
	registerFallback(svr, sCfg.DetailedErrors) // 2. 404 / 405 頁
	registerOps(svr, d)                        // 3. healthz / metrics
	return registerV1API(svr, sCfg, d)         // 4. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg, draining <-chan struct{}) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(middleware.Recover(sCfg.Log, sCfg.DetailedErrors))
	if draining != nil {
		svr.Use(middleware.Drain(draining))
	}
	svr.Use(middleware.Compression)
}

func registerFallback(svr netsvr.NetRouter, detailed bool) {
	svr.NotFound(httperr.NotFoundHandler(detailed))
	svr.MethodNotAllowed(httperr.MethodNotAllowedHandler(detailed))
}

func registerOps(svr netsvr.NetRouter, d Deps) {
	svr.Get("/healthz", healthz(d.Draining))
	if d.Metrics != nil {
		svr.Handle("/metrics", d.Metrics.Handler())
	}
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg, d Deps) error {
	h, err := v1.NewStateHandler(d.Store, d.Metrics, sCfg.Log)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/state", h.Get)
		vOne.Post("/state/incr", h.Incr)
		vOne.Post("/state/save", h.Save)
	})
	return nil
}

func healthz(draining <-chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		select {
		case <-draining:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "draining\n")
		default:
			_, _ = io.WriteString(w, "ok\n")
		}
	}
}

