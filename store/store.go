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

// Package store 提供「單一值 ↔ 單一檔案」的持久化（Durable Store）。
//
// 存檔協定：
//
//	encode → 寫入同目錄的 <name>.new → fsync → close → rename 覆蓋 <name>
//
// rename 是唯一會改動目標路徑的步驟，且只在暫存檔完整落盤之後才執行，
// 因此任何讀者（包含同時讀取的其他行程、或寫到一半崩潰後重啟的本行程）
// 看到的永遠是完整的舊內容或完整的新內容。
//
// 存檔只在呼叫 Save 時發生，不會因修改而自動 flush；呼叫端自行決定 flush 節奏。
package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zintix-labs/statekeep/errs"
)

// TempSuffix 暫存檔後綴。暫存檔必須與目標檔在同一目錄（同一檔案系統），rename 才是原子操作。
const TempSuffix = ".new"

const defaultPerm fs.FileMode = 0o644

// 測試用替換點
var (
	syncFile   = func(f *os.File) error { return f.Sync() }
	renameFile = os.Rename
)

// Observer 接收每次載入 / 存檔的結果，用於 metrics。size 為編碼後的位元組數。
type Observer interface {
	ObserveLoad(path string, size int, d time.Duration, err error)
	ObserveSave(path string, size int, d time.Duration, err error)
}

type options struct {
	codec Codec
	perm  fs.FileMode
	obs   Observer
}

// Option 設定 Store 的行為。
type Option func(*options)

// WithCodec 指定編碼格式；未指定時依副檔名選擇（見 CodecFor）。
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithPerm 指定檔案權限，預設 0644。
func WithPerm(perm fs.FileMode) Option {
	return func(o *options) { o.perm = perm }
}

// WithObserver 掛上載入 / 存檔觀察者。
func WithObserver(obs Observer) Option {
	return func(o *options) { o.obs = obs }
}

func buildOptions(path string, opts []Option) options {
	o := options{perm: defaultPerm}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.codec == nil {
		o.codec = CodecFor(path)
	}
	if o.perm == 0 {
		o.perm = defaultPerm
	}
	return o
}

// Store 持有一個值 T，並將它持久化到固定路徑。
//
// Store 獨佔 value：讀取透過 Value（複本），修改透過 Update 或 Acquire 取得的 Guard。
// 這幾個方法與 Save 共用同一把鎖，所以同一時間只有一個寫入者。
// 不同路徑的 Store 彼此完全獨立，可以並行存檔。
type Store[T any] struct {
	path string
	opt  options

	mu    sync.Mutex
	value T
}

// New 建立綁定 path 的 Store，不做任何 I/O。用於預期沒有舊狀態的情境。
func New[T any](path string, value T, opts ...Option) *Store[T] {
	return &Store[T]{
		path:  path,
		opt:   buildOptions(path, opts),
		value: value,
	}
}

// Load 讀取並解碼 path。
//   - 檔案不存在：errs.ErrNotFound
//   - 檔案為空或解碼失敗：errs.ErrCorrupt
//   - 其他讀取錯誤：errs.ErrReadFailure
func Load[T any](path string, opts ...Option) (*Store[T], error) {
	s := &Store[T]{path: path, opt: buildOptions(path, opts)}

	start := time.Now()
	data, err := os.ReadFile(path)
	if err == nil {
		err = s.decode(data)
	} else if errors.Is(err, fs.ErrNotExist) {
		err = errs.NewKind(errs.KindNotFound, "load state", path, err)
	} else {
		err = errs.NewKind(errs.KindReadFailure, "load state", path, err)
	}
	if s.opt.obs != nil {
		s.opt.obs.ObserveLoad(path, len(data), time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Open 載入 path；若檔案不存在則以 init() 的結果建立新的 Store（created=true）。
// Corrupt 與其他錯誤會直接回傳，不會被預設值蓋掉。init 為 nil 時使用 T 的零值。
func Open[T any](path string, init func() T, opts ...Option) (s *Store[T], created bool, err error) {
	s, err = Load[T](path, opts...)
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, false, err
	}
	var v T
	if init != nil {
		v = init()
	}
	return New(path, v, opts...), true, nil
}

func (s *Store[T]) decode(data []byte) error {
	if len(data) == 0 {
		return errs.NewKind(errs.KindCorrupt, "empty state file", s.path, nil)
	}
	if err := s.opt.codec.Unmarshal(data, &s.value); err != nil {
		return errs.NewKind(errs.KindCorrupt, "decode "+s.opt.codec.Name(), s.path, err)
	}
	return nil
}

// Path 回傳綁定的檔案路徑。
func (s *Store[T]) Path() string { return s.path }

// Codec 回傳使用中的編碼格式。
func (s *Store[T]) Codec() Codec { return s.opt.codec }

// Value 回傳目前值的複本（淺拷貝）。
func (s *Store[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Update 在獨佔狀態下修改值。不會存檔。
func (s *Store[T]) Update(fn func(v *T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.value)
}

// Acquire 取得獨佔存取權，直到 Guard.Release。
// 持有 Guard 期間請改用 Guard.Save，呼叫 Store.Save 會死鎖。
func (s *Store[T]) Acquire() *Guard[T] {
	s.mu.Lock()
	return &Guard[T]{s: s}
}

// Save 將目前值寫入磁碟。失敗時回傳 errs.ErrWriteFailure，且 path 上的舊檔不受影響。
func (s *Store[T]) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *Store[T]) save() (err error) {
	start := time.Now()
	size := 0
	if s.opt.obs != nil {
		defer func() { s.opt.obs.ObserveSave(s.path, size, time.Since(start), err) }()
	}

	data, err := s.opt.codec.Marshal(&s.value)
	if err != nil {
		return errs.NewKind(errs.KindWriteFailure, "encode "+s.opt.codec.Name(), s.path, err)
	}
	size = len(data)
	return WriteFile(s.path, data, s.opt.perm)
}

// TempPath 回傳 path 的暫存檔路徑（同目錄、加上 TempSuffix）。
func TempPath(path string) string {
	return filepath.Join(filepath.Dir(path), filepath.Base(path)+TempSuffix)
}

// WriteFile 以 write-temp / fsync / rename 的方式原子地寫入 data。
// 任何一步失敗都會移除暫存檔並回傳 errs.ErrWriteFailure；path 只會在 rename 成功時改變。
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	base := filepath.Base(path)
	if path == "" || base == "." || base == string(filepath.Separator) {
		return errs.NewKind(errs.KindWriteFailure, "invalid state path", path, nil)
	}
	tmp := TempPath(path)

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errs.NewKind(errs.KindWriteFailure, "create temp file", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errs.NewKind(errs.KindWriteFailure, "write temp file", tmp, err)
	}
	if err := syncFile(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errs.NewKind(errs.KindWriteFailure, "sync temp file", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errs.NewKind(errs.KindWriteFailure, "close temp file", tmp, err)
	}
	if err := renameFile(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.NewKind(errs.KindWriteFailure, "replace state file", path, err)
	}

	// rename 之後目標已替換完成，目錄 fsync 失敗不影響內容一致性，只影響斷電後的可見性。
	syncDir(filepath.Dir(path))
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
