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

package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/statekeep/errs"
	"github.com/zintix-labs/statekeep/server/api"
	v1 "github.com/zintix-labs/statekeep/server/api/v1"
	"github.com/zintix-labs/statekeep/server/app"
	"github.com/zintix-labs/statekeep/server/metrics"
	"github.com/zintix-labs/statekeep/server/netsvr"
	"github.com/zintix-labs/statekeep/server/svrcfg"
	"github.com/zintix-labs/statekeep/shutdown"
	"github.com/zintix-labs/statekeep/store"
)

// Run 是 server 套件的組裝器與啟動入口。
//
// 它負責：
//  1. 驗證 SvrCfg（包含 logger、狀態目錄）。
//  2. 載入狀態檔；檔案不存在時以零值開始，毀損時拒絕啟動（不覆蓋舊檔）。
//  3. 註冊 shutdown 訊號（失敗直接回傳）。
//  4. 建立 HTTP server 與路由，交給 app.App 管理，並把狀態檔登記為 flush 目標。
//  5. 阻塞到訊號成立、存檔完成，回傳 Summary.Err()。
//
// opts 會轉交給 shutdown.Register，用於替換訊號來源。
func Run(sCfg *svrcfg.SvrCfg, opts ...shutdown.Option) error {
	return RunWithSvr(sCfg, nil, opts...)
}

// RunWithSvr 與 Run 相同，但允許注入自訂的 NetSvr；svr 為 nil 時使用 ChiAdapter。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr, opts ...shutdown.Option) error {
	if err := sCfg.Valid(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	log := sCfg.Log

	m := metrics.New(true)
	st, created, err := store.Open[v1.CounterState](sCfg.StatePath, nil,
		store.WithCodec(sCfg.Codec),
		store.WithObserver(m),
	)
	if err != nil {
		log.Error("load state failed", slog.Any("err", err))
		return err
	}
	log.Info("state ready",
		slog.String("path", st.Path()),
		slog.String("codec", st.Codec().Name()),
		slog.Bool("created", created),
		slog.Int64("counter", st.Value().Counter),
	)

	sig, err := shutdown.Register(append([]shutdown.Option{shutdown.WithLogger(log)}, opts...)...)
	if err != nil {
		log.Error("register shutdown signal failed", slog.Any("err", err))
		return err
	}

	if svr == nil {
		svr = netsvr.NewChiServer(sCfg.Addr)
	} else if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		sig.Stop()
		return errs.NewFatal("server is not ready")
	}
	if err := api.RegisterRoutes(svr, sCfg, api.Deps{Store: st, Metrics: m, Draining: sig.Done()}); err != nil {
		sig.Stop()
		return err
	}

	a := app.New(sig, log)
	if err := a.Register(svr); err != nil {
		sig.Stop()
		return err
	}
	if err := a.RegisterStore(st); err != nil {
		sig.Stop()
		return err
	}

	log.Info("[statekeep] listening", slog.String("addr", sCfg.Addr))
	sum := a.Run()
	if err := sum.Err(); err != nil {
		log.Error("stopped with errors", slog.Any("err", err))
		return err
	}
	log.Info("stopped cleanly", slog.Int64("counter", st.Value().Counter))
	return nil
}
