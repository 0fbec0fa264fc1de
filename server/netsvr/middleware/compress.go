package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// encoder 是 gzip.Writer 與 zstd.Encoder 的共同行為。
type encoder interface {
	io.Writer
	Flush() error
	Close() error
	Reset(w io.Writer)
}

// CompressConfig 壓縮等級設定。
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// encoderPool 依編碼名稱分池，新建時套用建立 middleware 當下的設定。
type encoderPool struct {
	name string
	pool sync.Pool
}

func newPools(cfg CompressConfig) map[string]*encoderPool {
	zp := &encoderPool{name: "zstd"}
	zp.pool.New = func() any {
		zw, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(cfg.ZstdLevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil
		}
		return zw
	}
	gp := &encoderPool{name: "gzip"}
	gp.pool.New = func() any {
		gw, err := gzip.NewWriterLevel(nil, cfg.GzipLevel)
		if err != nil {
			return nil
		}
		return gw
	}
	return map[string]*encoderPool{"zstd": zp, "gzip": gp}
}

func (p *encoderPool) get(w io.Writer) encoder {
	enc, _ := p.pool.Get().(encoder)
	if enc == nil {
		return nil
	}
	enc.Reset(w)
	return enc
}

// put 關閉 encoder；discard 為 true 時先導向 io.Discard，讓 footer 不會寫進無 body 的回應。
func (p *encoderPool) put(enc encoder, discard bool) {
	if discard {
		enc.Reset(io.Discard)
	}
	_ = enc.Close()
	p.pool.Put(enc)
}

// negotiate 解析 Accept-Encoding，回傳 zstd / gzip / ""。
// q=0 代表明確拒絕；同權重時 zstd 優先。
func negotiate(header string) string {
	best, bestQ := "", 0.0
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "zstd" && name != "gzip" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			q = f
		}
		if q <= 0 {
			continue
		}
		if q > bestQ || (q == bestQ && name == "zstd") {
			best, bestQ = name, q
		}
	}
	return best
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

func isNoBodyStatus(code int) bool {
	// 1xx / 204 / 304
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

// --- ResponseWriter Wrapper ---

type compressResponseWriter struct {
	http.ResponseWriter
	enc      encoder
	disabled bool // 204/304 時動態取消壓縮
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	cw.Header().Del("Content-Length")
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return cw.enc.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if isNoBodyStatus(code) {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

// --- Middleware 入口 ---

// Compression 以預設等級壓縮回應。
func Compression(next http.Handler) http.Handler {
	return Compress(DefaultCompressConfig)(next)
}

// Compress 依 Accept-Encoding 選擇 zstd 或 gzip 壓縮回應。
func Compress(cfg CompressConfig) func(http.Handler) http.Handler {
	pools := newPools(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || isWebSocketUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
				next.ServeHTTP(w, r)
				return
			}
			p := pools[negotiate(r.Header.Get("Accept-Encoding"))]
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			enc := p.get(w)
			if enc == nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Encoding", p.name)
			w.Header().Add("Vary", "Accept-Encoding")
			cw := &compressResponseWriter{ResponseWriter: w, enc: enc}
			defer func() { p.put(enc, cw.disabled) }()

			next.ServeHTTP(cw, r)
		})
	}
}
