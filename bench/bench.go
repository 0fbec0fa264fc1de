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

// Package bench 量測 store 在特定 codec 下的存檔延遲。
package bench

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/zintix-labs/statekeep/errs"
	"github.com/zintix-labs/statekeep/store"
	"gonum.org/v1/gonum/stat"
)

// Config 是一次 benchmark 的參數。
type Config struct {
	Dir   string      // 目標目錄，必須已存在
	N     int         // 存檔次數
	Size  int         // payload 中 Items 的筆數
	Codec store.Codec // nil 時使用 store.JSON

	ShowProgress bool
	Progress     io.Writer // 進度條輸出；nil 時為 os.Stderr
	Keep         bool      // 結束後保留狀態檔
}

// Payload 是 benchmark 反覆存檔的狀態。
type Payload struct {
	Counter int64    `json:"counter" yaml:"counter"`
	Items   []string `json:"items" yaml:"items"`
}

// Result 彙整 N 次存檔的延遲分佈。
type Result struct {
	Codec string
	Path  string
	N     int
	Bytes int // 最後一次存檔的編碼大小
	Total time.Duration

	Mean, Std       time.Duration
	Min, Max        time.Duration
	P50, P90, P99   time.Duration
	SavesPerSec     float64
	VerifiedCounter int64
}

// sampler 以 store.Observer 收集每次存檔的耗時與大小。
type sampler struct {
	durs  []float64 // 秒
	bytes int
}

func (s *sampler) ObserveLoad(string, int, time.Duration, error) {}

func (s *sampler) ObserveSave(_ string, size int, d time.Duration, err error) {
	if err != nil {
		return
	}
	s.durs = append(s.durs, d.Seconds())
	s.bytes = size
}

func (c *Config) valid() error {
	if c.N < 1 {
		return errs.NewWithExtra(errs.Warn, "n must be > 0", strconv.Itoa(c.N))
	}
	if c.Size < 0 {
		return errs.NewWithExtra(errs.Warn, "size must be >= 0", strconv.Itoa(c.Size))
	}
	fi, err := os.Stat(c.Dir)
	if err != nil {
		return errs.WrapWithExtra(err, "bench directory unavailable", c.Dir)
	}
	if !fi.IsDir() {
		return errs.NewWithExtra(errs.Warn, "bench directory is not a directory", c.Dir)
	}
	if c.Codec == nil {
		c.Codec = store.JSON
	}
	if c.Progress == nil {
		c.Progress = os.Stderr
	}
	return nil
}

// Run 對同一個檔案連續存檔 N 次，最後重新載入驗證內容。
func Run(cfg Config) (*Result, error) {
	if err := cfg.valid(); err != nil {
		return nil, err
	}

	path := filepath.Join(cfg.Dir, "bench-"+uuid.NewString()+".state")
	smp := &sampler{durs: make([]float64, 0, cfg.N)}
	st := store.New(path, newPayload(cfg.Size), store.WithCodec(cfg.Codec), store.WithObserver(smp))
	if !cfg.Keep {
		defer os.Remove(path)
	}

	bar := pb.New(cfg.N)
	if cfg.ShowProgress {
		bar.SetWriter(cfg.Progress)
	} else {
		bar.SetWriter(io.Discard)
	}
	bar.Start()
	start := time.Now()
	for i := 0; i < cfg.N; i++ {
		st.Update(func(p *Payload) { p.Counter++ })
		if err := st.Save(); err != nil {
			bar.Finish()
			return nil, errs.Wrap(err, fmt.Sprintf("save #%d", i+1))
		}
		bar.Increment()
	}
	total := time.Since(start)
	bar.Finish()

	loaded, err := store.Load[Payload](path, store.WithCodec(cfg.Codec))
	if err != nil {
		return nil, errs.Wrap(err, "verify load")
	}
	got := loaded.Value().Counter
	if got != int64(cfg.N) {
		return nil, errs.NewWithExtra(errs.Fatal, "verify counter mismatch", fmt.Sprintf("want %d got %d", cfg.N, got))
	}

	res := summarize(smp.durs)
	res.Codec = cfg.Codec.Name()
	res.Path = path
	res.N = cfg.N
	res.Bytes = smp.bytes
	res.Total = total
	res.VerifiedCounter = got
	if total > 0 {
		res.SavesPerSec = float64(cfg.N) / total.Seconds()
	}
	return res, nil
}

func newPayload(size int) Payload {
	items := make([]string, size)
	for i := range items {
		items[i] = fmt.Sprintf("item-%06d", i)
	}
	return Payload{Items: items}
}

// summarize 計算延遲分佈；samples 單位為秒。
func summarize(samples []float64) *Result {
	res := &Result{}
	if len(samples) == 0 {
		return res
	}
	x := slices.Clone(samples)
	slices.Sort(x)

	mean, std := stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	res.Mean = seconds(mean)
	res.Std = seconds(std)
	res.Min = seconds(x[0])
	res.Max = seconds(x[len(x)-1])
	res.P50 = seconds(stat.Quantile(0.50, stat.Empirical, x, nil))
	res.P90 = seconds(stat.Quantile(0.90, stat.Empirical, x, nil))
	res.P99 = seconds(stat.Quantile(0.99, stat.Empirical, x, nil))
	return res
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
