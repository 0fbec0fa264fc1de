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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zintix-labs/statekeep/server"
	"github.com/zintix-labs/statekeep/server/logger"
	"github.com/zintix-labs/statekeep/server/svrcfg"
)

// keepd 持有一個 counter 狀態檔：請求只改記憶體，收到 SIGINT/SIGTERM/SIGQUIT 後
// 停止 HTTP、原子地寫回狀態檔再結束。存檔失敗時 exit code 為 1。
func main() {
	os.Exit(run())
}

type flags struct {
	ConfigFile string
	LogMode    string
	Addr       string
	StatePath  string
	Codec      string
}

func run() int {
	f := new(flags)
	flag.StringVar(&f.ConfigFile, "config", "", "optional YAML config file")
	flag.StringVar(&f.LogMode, "log-mode", "", "log mode: ModeDev|ModeProd|ModeSilence (overrides STATEKEEP_LOG_MODE)")
	flag.StringVar(&f.Addr, "addr", "", "listen address (overrides STATEKEEP_ADDR)")
	flag.StringVar(&f.StatePath, "state", "", "state file path (overrides STATEKEEP_STATE_PATH)")
	flag.StringVar(&f.Codec, "codec", "", "json|yaml|zstd|gzip|framed (overrides STATEKEEP_CODEC)")
	flag.Parse()

	sCfg, err := f.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log, ah := logger.NewAsync(4096, sCfg.LogMode)
	defer ah.Close()
	sCfg.Log = log

	if err := server.Run(sCfg); err != nil {
		return 1
	}
	return 0
}

// load 讀取設定後再套用命令列覆寫。
func (f *flags) load() (*svrcfg.SvrCfg, error) {
	sCfg, err := svrcfg.Load(f.ConfigFile)
	if err != nil {
		return nil, err
	}
	if f.LogMode != "" {
		sCfg.LogMode = logger.ParseMode(f.LogMode)
	}
	if f.Addr != "" {
		sCfg.Addr = f.Addr
	}
	if f.StatePath != "" {
		sCfg.StatePath = f.StatePath
	}
	if f.Codec != "" {
		if err := sCfg.SetCodec(f.Codec); err != nil {
			return nil, err
		}
	}
	return sCfg, nil
}
