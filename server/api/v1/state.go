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

package v1

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/zintix-labs/statekeep/errs"
	"github.com/zintix-labs/statekeep/server/httperr"
	"github.com/zintix-labs/statekeep/server/metrics"
	"github.com/zintix-labs/statekeep/store"
)

// CounterState 是 keepd 持久化的狀態。
type CounterState struct {
	Counter   int64     `json:"counter" yaml:"counter"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// ============================================================
// ** StateHandler **
// ============================================================

type StateHandler struct {
	st  *store.Store[CounterState]
	m   *metrics.Metrics
	log *slog.Logger
	now func() time.Time
}

func NewStateHandler(st *store.Store[CounterState], m *metrics.Metrics, log *slog.Logger) (*StateHandler, error) {
	if st == nil {
		return nil, errs.NewFatal("state handler requires a store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &StateHandler{st: st, m: m, log: log, now: time.Now}, nil
}

// Get 回傳目前的記憶體狀態（不讀檔）。
func (h *StateHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.st.Value())
}

// Incr 將 counter 加上 by（預設 1）。sync=1 時同步存檔，存檔失敗回 503，但記憶體中的值已更新。
func (h *StateHandler) Incr(w http.ResponseWriter, q *http.Request) {
	by, err := parseBy(q.URL.Query().Get("by"))
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	g := h.st.Acquire()
	v := g.Value()
	if err := checkAdd(v.Counter, by); err != nil {
		g.Release()
		httperr.Errs(w, err)
		return
	}
	v.Counter += by
	v.UpdatedAt = h.now().UTC()
	h.m.RecordUpdate()

	var saveErr error
	if q.URL.Query().Get("sync") == "1" {
		saveErr = g.Save()
	}
	out := *v
	g.Release()

	if saveErr != nil {
		httperr.Log(h.log, "sync save failed", saveErr)
		httperr.Errs(w, saveErr)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Save 立即存檔。
func (h *StateHandler) Save(w http.ResponseWriter, _ *http.Request) {
	if err := h.st.Save(); err != nil {
		httperr.Log(h.log, "save failed", err)
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"saved": h.st.Path()})
}

// checkAdd 拒絕會讓 counter 溢位的增量。
func checkAdd(cur, by int64) error {
	if (by > 0 && cur > math.MaxInt64-by) || (by < 0 && cur < math.MinInt64-by) {
		return errs.NewWithExtra(errs.Warn, "counter overflow", strconv.FormatInt(by, 10))
	}
	return nil
}

func parseBy(s string) (int64, error) {
	if s == "" {
		return 1, nil
	}
	by, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.NewWithExtra(errs.Warn, "by must be an integer", s)
	}
	return by, nil
}

// 先編碼到記憶體，避免寫到一半才出錯
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}
