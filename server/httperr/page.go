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

package httperr

import (
	"html/template"
	"net/http"
)

var pageTmpl = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<body>
<h1>{{.Status}}</h1>
{{- range .Details}}
<hr>
<pre>{{.}}</pre>
{{- end}}
</body>
</html>
`))

type pageData struct {
	Status  string
	Details []string
}

// Page 以 HTML 錯誤頁回應。
//
// detailed 由呼叫端明確傳入（來自 SvrCfg.DetailedErrors）：
// detailed 為 true，或錯誤本身是使用者可見的（非 500）時，才輸出錯誤鏈。
func Page(w http.ResponseWriter, err error, detailed bool) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	data := pageData{Status: statusLine(status)}
	if detailed || UserVisible(err) {
		data.Details = Chain(err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = pageTmpl.Execute(w, data)
}

// NotFoundHandler 回傳 404 錯誤頁的 handler。
func NotFoundHandler(detailed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Page(w, RouteNotFound{Path: r.URL.Path}, detailed)
	}
}

// MethodNotAllowedHandler 回傳 405 錯誤頁的 handler。
func MethodNotAllowedHandler(detailed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Page(w, MethodNotAllowed{Method: r.Method}, detailed)
	}
}
