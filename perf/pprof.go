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

package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/statekeep/errs"
)

// DefaultDir 為 pprof 檔案預設寫入路徑。
const DefaultDir = "build/profiling"

// Run 依 mode 決定對 exe 做哪種 profiling，回傳寫出的檔案路徑（mode 為空時為 ""）。
//
//	""       不做 profiling
//	cpu      exe 執行期間的 CPU profile
//	heap     exe 之後的 in-use heap 快照
//	allocs   exe 之後的累積配置
//
// 未知的 mode 回傳 Warn 等級錯誤且不執行 exe。
func Run(dir, mode string, exe func() error) (string, error) {
	switch mode {
	case "":
		return "", exe()
	case "cpu", "heap", "allocs":
	default:
		return "", errs.NewWithExtra(errs.Warn, "unknown pprof mode", mode)
	}

	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.WrapWithExtra(err, "create profiling dir", dir)
	}
	path := filepath.Join(dir, mode+".pprof")

	if mode == "cpu" {
		return path, cpu(path, exe)
	}
	if err := exe(); err != nil {
		return "", err
	}
	return path, snapshot(path, mode)
}

func cpu(path string, exe func() error) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.WrapWithExtra(err, "create cpu profile", path)
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "start cpu profile")
	}
	defer pprof.StopCPUProfile()

	return exe()
}

// snapshot 寫出 heap / allocs profile；heap 前先 GC，讓快照貼近 live objects。
func snapshot(path, name string) error {
	if name == "heap" {
		runtime.GC()
	}
	prof := pprof.Lookup(name)
	if prof == nil {
		return errs.NewWithExtra(errs.Fatal, "profile not found", name)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.WrapWithExtra(err, "create profile", path)
	}
	defer f.Close()
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.WrapWithExtra(err, "write profile", name)
	}
	return nil
}
