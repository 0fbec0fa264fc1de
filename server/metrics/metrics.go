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

// Package metrics 以 Prometheus 暴露存檔相關指標。
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zintix-labs/statekeep/errs"
	"github.com/zintix-labs/statekeep/store"
)

const namespace = "statekeep"

// Metrics 收集 store 的載入 / 存檔結果與 API 更新次數。
//
// 每個 Metrics 持有自己的 registry，測試或多實例之間不會互相污染。
type Metrics struct {
	reg *prometheus.Registry

	OpsTotal     *prometheus.CounterVec   // op, result
	OpDuration   *prometheus.HistogramVec // op
	LastSize     *prometheus.GaugeVec     // op
	LastSaveAt   prometheus.Gauge
	UpdatesTotal prometheus.Counter
}

var _ store.Observer = (*Metrics)(nil)

// New 建立並註冊所有指標；withRuntime 為 true 時一併註冊 go / process collector。
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		OpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_ops_total",
				Help:      "Store load/save operations by result",
			},
			[]string{"op", "result"},
		),
		OpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_op_duration_seconds",
				Help:      "Store load/save duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"op"},
		),
		LastSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_last_bytes",
				Help:      "Encoded size of the last successful load/save",
			},
			[]string{"op"},
		),
		LastSaveAt: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_last_save_timestamp_seconds",
				Help:      "Unix time of the last successful save",
			},
		),
		UpdatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_updates_total",
				Help:      "In-memory state mutations accepted by the API",
			},
		),
	}
	m.reg.MustRegister(m.OpsTotal, m.OpDuration, m.LastSize, m.LastSaveAt, m.UpdatesTotal)
	if withRuntime {
		m.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry 回傳內部 registry（測試用）。
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler 回傳 /metrics 使用的 http.Handler。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveLoad(_ string, size int, d time.Duration, err error) {
	m.observe("load", size, d, err)
}

func (m *Metrics) ObserveSave(_ string, size int, d time.Duration, err error) {
	m.observe("save", size, d, err)
	if err == nil && m != nil {
		m.LastSaveAt.SetToCurrentTime()
	}
}

// RecordUpdate 記錄一次狀態變更。
func (m *Metrics) RecordUpdate() {
	if m == nil {
		return
	}
	m.UpdatesTotal.Inc()
}

func (m *Metrics) observe(op string, size int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.OpsTotal.WithLabelValues(op, result(err)).Inc()
	m.OpDuration.WithLabelValues(op).Observe(d.Seconds())
	if err == nil {
		m.LastSize.WithLabelValues(op).Set(float64(size))
	}
}

// result 將錯誤歸類為低基數的 label 值。
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrCorrupt):
		return "corrupt"
	case errors.Is(err, errs.ErrReadFailure):
		return "read_failure"
	case errors.Is(err, errs.ErrWriteFailure):
		return "write_failure"
	default:
		return "error"
	}
}
