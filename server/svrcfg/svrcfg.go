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

package svrcfg

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/zintix-labs/statekeep/errs"
	"github.com/zintix-labs/statekeep/server/logger"
	"github.com/zintix-labs/statekeep/store"
)

const (
	DefaultAddr      = ":5808"
	DefaultStatePath = "state.json"
	EnvPrefix        = "STATEKEEP"
)

// SvrCfg 是 server.Run 的全部依賴；所有值都透過此結構明確注入，server 本身不讀環境變數。
type SvrCfg struct {
	Log       *slog.Logger
	LogMode   logger.LogMode
	Addr      string
	StatePath string
	// Codec 為 nil 時依 StatePath 副檔名決定
	Codec store.Codec
	// DetailedErrors 控制錯誤頁是否顯示完整錯誤鏈（只在呼叫點傳入，不存在全域狀態）
	DetailedErrors bool
}

// Valid 檢查並補齊預設值。
func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log = logger.New(sc.LogMode)
	}
	if strings.TrimSpace(sc.Addr) == "" {
		sc.Addr = DefaultAddr
	}
	if strings.TrimSpace(sc.StatePath) == "" {
		sc.StatePath = DefaultStatePath
	}
	dir := filepath.Dir(sc.StatePath)
	fi, err := os.Stat(dir)
	if err != nil {
		return errs.WrapWithExtra(err, "state directory unavailable", dir)
	}
	if !fi.IsDir() {
		return errs.NewWithExtra(errs.Fatal, "state directory is not a directory", dir)
	}
	if sc.Codec == nil {
		sc.Codec = store.CodecFor(sc.StatePath)
	}
	return nil
}

// LoadDotEnv 依序載入存在的 .env 檔；已存在的環境變數不會被覆寫。
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errs.WrapWithExtra(err, "load dotenv", p)
		}
	}
	return nil
}

// Load 依以下優先序組出設定（高 → 低）：
//
//	環境變數 STATEKEEP_ADDR / STATEKEEP_STATE_PATH / STATEKEEP_LOG_MODE / STATEKEEP_CODEC、DEBUG
//	.env.local / .env
//	file（YAML，可為空字串表示不使用）
//	預設值
//
// 回傳的 SvrCfg 尚未建立 Log；呼叫端依 LogMode 組裝後再呼叫 Valid。
func Load(file string) (*SvrCfg, error) {
	if err := LoadDotEnv(".env.local", ".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("state_path", DefaultStatePath)
	v.SetDefault("log_mode", "dev")
	v.SetDefault("codec", "")
	v.SetDefault("debug", "")
	if err := v.BindEnv("debug", "DEBUG"); err != nil {
		return nil, errs.Wrap(err, "bind DEBUG")
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.WrapWithExtra(err, "read config file", file)
		}
	}

	sc := &SvrCfg{
		Addr:           v.GetString("addr"),
		StatePath:      v.GetString("state_path"),
		LogMode:        logger.ParseMode(v.GetString("log_mode")),
		DetailedErrors: parseDebug(v.GetString("debug")),
	}
	if name := v.GetString("codec"); strings.TrimSpace(name) != "" {
		if err := sc.SetCodec(name); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// SetCodec 以名稱指定 Codec（見 store.CodecByName）。
func (sc *SvrCfg) SetCodec(name string) error {
	c, ok := store.CodecByName(name)
	if !ok {
		return errs.NewWithExtra(errs.Warn, "unknown codec", name)
	}
	sc.Codec = c
	return nil
}

func parseDebug(s string) bool {
	s = strings.TrimSpace(s)
	return s == "true" || s == "1"
}
