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
	"encoding/binary"

	"github.com/zintix-labs/statekeep/errs"
)

// Framed 在 inner 的輸出前加上長度前綴：
//
//	frame := uvarint(len(payload)) || payload
//
// 解碼時長度不符（截斷或尾端多出資料）一律視為錯誤，
// 適合搭配本身沒有完整性檢查的二進位格式。
func Framed(inner Codec) Codec { return frameCodec{inner: inner} }

type frameCodec struct{ inner Codec }

func (c frameCodec) Name() string { return c.inner.Name() + "+frame" }

func (c frameCodec) Marshal(v any) ([]byte, error) {
	payload, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(payload), nil
}

func (c frameCodec) Unmarshal(data []byte, v any) error {
	payload, err := DecodeFrame(data)
	if err != nil {
		return err
	}
	return c.inner.Unmarshal(payload, v)
}

// EncodeFrame 產生長度前綴的 frame。
func EncodeFrame(payload []byte) []byte {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(payload)))

	out := make([]byte, 0, n+len(payload))
	out = append(out, hdr[:n]...)
	out = append(out, payload...)
	return out
}

// DecodeFrame 解開 EncodeFrame 的輸出。回傳的 payload 與 frame 共用底層陣列。
func DecodeFrame(frame []byte) ([]byte, error) {
	n, size := binary.Uvarint(frame)
	if size <= 0 {
		return nil, errs.NewWarn("decode frame failed: invalid varint length")
	}
	rest := uint64(len(frame) - size)
	if rest < n {
		return nil, errs.NewWarn("decode frame failed: truncated payload")
	}
	if rest > n {
		return nil, errs.NewWarn("decode frame failed: trailing bytes")
	}
	return frame[size:], nil
}
