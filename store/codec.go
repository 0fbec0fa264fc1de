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

package store

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// Codec 決定值在磁碟上的格式。格式是 Store 的參數，不影響存檔協定本身。
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// CodecFor 依副檔名選擇 Codec：
//
//	.yaml / .yml → YAML
//	.zst         → Zstd(JSON)
//	.gz          → Gzip(JSON)
//	.bin         → Framed(Zstd(JSON))
//	其他         → JSON
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".zst":
		return Zstd(JSON)
	case ".gz":
		return Gzip(JSON)
	case ".bin":
		return Framed(Zstd(JSON))
	default:
		return JSON
	}
}

// CodecByName 解析設定檔中的格式名稱（json / yaml / zstd / gzip / framed），未知名稱回傳 false。
func CodecByName(name string) (Codec, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return JSON, true
	case "yaml", "yml":
		return YAML, true
	case "zstd", "zst":
		return Zstd(JSON), true
	case "gzip", "gz":
		return Gzip(JSON), true
	case "framed", "bin":
		return Framed(Zstd(JSON)), true
	default:
		return nil, false
	}
}

// -----------------------------------------------------------------------------
//  JSON / YAML
// -----------------------------------------------------------------------------

// JSON 以兩格縮排輸出，方便人工檢視。
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// YAML 使用 gopkg.in/yaml.v3。
var YAML Codec = yamlCodec{}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// -----------------------------------------------------------------------------
//  壓縮包裝
// -----------------------------------------------------------------------------

// EncodeAll / DecodeAll 可併發呼叫，整個行程共用一組即可。
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// Zstd 以 zstd 壓縮 inner 的輸出。
func Zstd(inner Codec) Codec { return zstdCodec{inner: inner} }

type zstdCodec struct{ inner Codec }

func (c zstdCodec) Name() string { return c.inner.Name() + "+zstd" }

func (c zstdCodec) Marshal(v any) ([]byte, error) {
	raw, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	enc, err := zstdEncoder()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(raw, nil), nil
}

func (c zstdCodec) Unmarshal(data []byte, v any) error {
	dec, err := zstdDecoder()
	if err != nil {
		return err
	}
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return err
	}
	return c.inner.Unmarshal(raw, v)
}

// Gzip 以 gzip 壓縮 inner 的輸出。
func Gzip(inner Codec) Codec { return gzipCodec{inner: inner} }

type gzipCodec struct{ inner Codec }

func (c gzipCodec) Name() string { return c.inner.Name() + "+gzip" }

func (c gzipCodec) Marshal(v any) ([]byte, error) {
	raw, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := gw.Write(raw); err != nil {
		_ = gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c gzipCodec) Unmarshal(data []byte, v any) error {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer gr.Close()
	raw, err := io.ReadAll(gr)
	if err != nil {
		return err
	}
	return c.inner.Unmarshal(raw, v)
}
