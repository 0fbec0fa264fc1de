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

package bench

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang = language.English

// Table 以對齊的文字表格輸出結果（千分位格式）。
func (r *Result) Table() string {
	p := message.NewPrinter(lang)
	msg := map[string]string{
		"Codec":      r.Codec,
		"Saves":      p.Sprintf("%d", r.N),
		"File Size":  p.Sprintf("%d bytes", r.Bytes),
		"Total":      r.Total.Round(time.Microsecond).String(),
		"Saves/sec":  p.Sprintf("%.1f", r.SavesPerSec),
		"Mean ± Std": fmt.Sprintf("%s ± %s", us(r.Mean), us(r.Std)),
		"Min":        us(r.Min),
		"P50":        us(r.P50),
		"P90":        us(r.P90),
		"P99":        us(r.P99),
		"Max":        us(r.Max),
	}
	keys := []string{"Codec", "Saves", "File Size", "Total", "Saves/sec", "Mean ± Std", "Min", "P50", "P90", "P99", "Max"}
	return fmtTable("Save Latency", keys, msg)
}

func us(d time.Duration) string {
	return message.NewPrinter(lang).Sprintf("%.1f µs", float64(d)/float64(time.Microsecond))
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	maxKeyLen := 0
	maxValLen := 0
	for _, k := range keys {
		maxKeyLen = max(maxKeyLen, runewidth.StringWidth(k))
		maxValLen = max(maxValLen, runewidth.StringWidth(msg[k]))
	}
	maxKeyLen += 2
	maxValLen += 2

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	if titleW > totalInner {
		maxValLen += titleW - totalInner
		totalInner = titleW
	}
	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"

	var b strings.Builder
	b.WriteString("+" + strings.Repeat("-", totalInner) + "+\n")
	b.WriteString("|" + blank(left) + title + blank(right) + "|\n")
	b.WriteString(divider)
	for _, k := range keys {
		v := msg[k]
		fmt.Fprintf(&b, "| %s%s | %s%s |\n",
			k, blank(maxKeyLen-2-runewidth.StringWidth(k)),
			v, blank(maxValLen-2-runewidth.StringWidth(v)))
	}
	b.WriteString(divider)
	return b.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
