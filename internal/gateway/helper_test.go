package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/havirkesht/internal/config"
	"github.com/nao1215/havirkesht/pkg/httpclient"
	"github.com/nao1215/havirkesht/pkg/metrics"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testToken はテスト用のBearerトークン。
const testToken = "upstream-issued-token"

// recordedRequest は偽の教育サーバーが受け取ったリクエスト。
type recordedRequest struct {
	Method  string
	Path    string
	RawPath string
	Query   string
	Header  http.Header
	Body    []byte
}

// fakeUpstream は受け取ったリクエストを記録する偽の教育サーバー。
type fakeUpstream struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

// newFakeUpstream はmuxで応答する偽の教育サーバーを起動する。
func newFakeUpstream(t *testing.T, mux *http.ServeMux) *fakeUpstream {
	t.Helper()

	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			RawPath: r.URL.EscapedPath(),
			Query:   r.URL.RawQuery,
			Header:  r.Header.Clone(),
			Body:    body,
		})
		f.mu.Unlock()

		r.Body = io.NopCloser(bytes.NewReader(body))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

// Requests は記録されたリクエストのコピーを返す。
func (f *fakeUpstream) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

// lastRequest は最後に記録されたリクエストを返す。
func (f *fakeUpstream) lastRequest(t *testing.T) recordedRequest {
	t.Helper()

	reqs := f.Requests()
	require.NotEmpty(t, reqs, "教育サーバーにリクエストが届いていない")
	return reqs[len(reqs)-1]
}

// replyJSON は固定のステータスとJSONを返すハンドラーを返す。
func replyJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// testConfig はテスト用の設定を返す。
func testConfig(serverURL string) *config.Config {
	return &config.Config{
		Port:                 "0",
		ServerURL:            serverURL,
		FrontendURL:          "http://edu.havirkesht.ir",
		CORSAllowedOrigins:   []string{"*"},
		RequestTimeout:       2 * time.Second,
		DiagnosticTimeout:    time.Second,
		ShutdownTimeout:      time.Second,
		UpstreamDisableProxy: true,
		LogLevel:             "info",
		LogFormat:            "json",
		GinMode:              "test",
	}
}

// newTestServer はcfgの教育サーバーに転送するテスト用Gatewayサーバーを生成する。
func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	m := metrics.New()
	client := httpclient.New(cfg.ServerURL, httpclient.Options{
		Timeout:      cfg.RequestTimeout,
		RetryMax:     0,
		DisableProxy: true,
		Observer:     m,
	})
	return NewServer(cfg, zap.NewNop(), client, m)
}

// newTestServerWithUpstream は偽の教育サーバーとそれに転送するGatewayサーバーを生成する。
func newTestServerWithUpstream(t *testing.T, mux *http.ServeMux) (*Server, *fakeUpstream) {
	t.Helper()

	upstream := newFakeUpstream(t, mux)
	return newTestServer(t, testConfig(upstream.URL)), upstream
}

// closedServerURL は接続を受け付けないアドレスを返す。
func closedServerURL(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr
}

// doRequest はGatewayにリクエストを送る。tokenが空でなければBearerトークンを付ける。
func doRequest(s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをmapとして取り出す。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "レスポンスボディのパースに失敗: %s", w.Body.String())
	return body
}

// detailOf はエラーレスポンスのdetailを取り出す。
func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	detail, _ := decodeBody(t, w)["detail"].(string)
	return detail
}

// ptr はvへのポインタを返す。
func ptr[T any](v T) *T {
	return &v
}

// doRawRequest はbodyをそのままJSONボディとしてGatewayに送る。
func doRawRequest(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}
