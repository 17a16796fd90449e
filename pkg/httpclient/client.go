package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout は1回の上流呼び出しに許す最大時間。
	DefaultTimeout = 30 * time.Second
	// DefaultRetryMax は接続失敗時の再試行回数。
	DefaultRetryMax = 3

	// tokenPath は上流のトークン発行エンドポイント。
	tokenPath = "/token"
	// headerKeyRequestID は上流にリクエストIDを伝播するためのHTTPヘッダーキー。
	headerKeyRequestID = "X-Request-ID"
)

// Observer は上流呼び出しの結果を受け取る。メトリクス収集に使用する。
type Observer interface {
	// ObserveUpstream は1回の上流呼び出しの結果を記録する。
	// 接続できなかった場合statusは0になる。
	ObserveUpstream(method, endpoint string, status int, elapsed time.Duration)
}

// Options はClientの動作設定。
type Options struct {
	// Timeout は1回の呼び出しの上限時間。0以下の場合DefaultTimeoutを使う。
	Timeout time.Duration
	// RetryMax は接続確立に失敗した場合の再試行回数。
	RetryMax int
	// RetryWaitMin は再試行間隔の最小値。0の場合retryablehttpの既定値を使う。
	RetryWaitMin time.Duration
	// RetryWaitMax は再試行間隔の最大値。0の場合retryablehttpの既定値を使う。
	RetryWaitMax time.Duration
	// DisableProxy がtrueの場合、環境変数のプロキシ設定を無視する。
	DisableProxy bool
	// InsecureSkipVerify がtrueの場合、TLS証明書を検証しない。
	InsecureSkipVerify bool
	// Logger はログ出力先。nilの場合は出力しない。
	Logger *zap.Logger
	// Observer は呼び出し結果の通知先。nilの場合は通知しない。
	Observer Observer
}

// Client は教育サーバーへの転送用HTTPクライアント。
// 状態を持たないため、複数のgoroutineから同時に使用できる。
type Client struct {
	// httpClient は再試行付きのHTTPクライアント。
	httpClient *http.Client
	// baseURL は教育サーバーのベースURL（末尾スラッシュなし）。
	baseURL string
	// timeout は1回の呼び出しの上限時間。
	timeout time.Duration
	// logger はログ出力先。
	logger *zap.Logger
	// observer は呼び出し結果の通知先。
	observer Observer
}

// New は新しい転送用HTTPクライアントを生成する。
// baseURLには教育サーバーのベースURL（例: "http://edu-api.havirkesht.ir"）を指定する。
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	if transport, ok := rc.HTTPClient.Transport.(*http.Transport); ok {
		if opts.DisableProxy {
			transport.Proxy = nil
		}
		if opts.InsecureSkipVerify {
			if transport.TLSClientConfig == nil {
				transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // 設定で明示的に有効化された場合のみ
		}
	}
	rc.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.CheckRetry = retryOnDialError
	rc.Logger = retryLogger{s: opts.Logger.Named("retry").Sugar()}

	httpClient := rc.StandardClient()
	httpClient.Transport = &requestIDTransport{next: httpClient.Transport}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    opts.Timeout,
		logger:     opts.Logger,
		observer:   opts.Observer,
	}
}

// BaseURL は教育サーバーのベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request は上流に転送する1件のリクエスト。
type Request struct {
	// Method はHTTPメソッド。
	Method string
	// Path は上流のパス（例: "/farmer/"）。
	Path string
	// Token は呼び出し元のBearerトークン。空の場合は送信前にErrUnauthorizedを返す。
	Token string
	// Body はJSONとして送信するリクエストボディ。nilの場合は送信しない。
	Body any
	// Query はクエリパラメータ。
	Query url.Values
}

// Do はリクエストを上流に転送し、レスポンスのJSONボディを返す。
// 上流が空のボディを返した場合は "null" を返す。
func (c *Client) Do(ctx context.Context, r Request) (json.RawMessage, error) {
	if r.Token == "" {
		return nil, ErrUnauthorized
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, r.Method, r.Path, r.Query, r.Body)
	if err != nil {
		return nil, err
	}
	(&oauth2.Token{AccessToken: r.Token, TokenType: "Bearer"}).SetAuthHeader(req)

	resp, err := c.send(req, r.Path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: レスポンスの読み取りに失敗: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		return nil, ErrInvalidResponse
	}
	return json.RawMessage(body), nil
}

// Token はユーザー名とパスワードを上流の /token にフォーム形式で送信し、発行されたトークンを返す。
// 上流の非2xx応答はStatusErrorに、接続失敗はErrUnavailableに、
// access_tokenを含まない応答はErrUnauthorizedに変換する。
func (c *Client) Token(ctx context.Context, username, password string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	tok, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err == nil {
		c.observe(http.MethodPost, tokenPath, http.StatusOK, time.Since(start))
		return tok, nil
	}

	var retrieveErr *oauth2.RetrieveError
	var urlErr *url.Error
	switch {
	case errors.As(err, &retrieveErr) && retrieveErr.Response != nil:
		c.observe(http.MethodPost, tokenPath, retrieveErr.Response.StatusCode, time.Since(start))
		return nil, &StatusError{
			StatusCode: retrieveErr.Response.StatusCode,
			Message:    errorMessage(retrieveErr.Body),
		}
	case errors.As(err, &urlErr):
		c.observe(http.MethodPost, tokenPath, 0, time.Since(start))
		c.logger.Warn("トークン取得時に教育サーバーへ接続できません", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		c.observe(http.MethodPost, tokenPath, http.StatusOK, time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
}

// Ping は認証なしで上流のベースURLにGETリクエストを送信し、ステータスコードを返す。
// 接続診断に使用する。
func (c *Client) Ping(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/", nil, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.send(req, "/")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// newRequest は上流向けのHTTPリクエストを生成する。
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send はリクエストを送信し、結果をObserverに通知する。
// 送信自体に失敗した場合はErrUnavailableを返す。
func (c *Client) send(req *http.Request, path string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(req.Method, path, 0, time.Since(start))
		c.logger.Warn("教育サーバーへの接続に失敗",
			zap.String("method", req.Method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.observe(req.Method, path, resp.StatusCode, time.Since(start))
	return resp, nil
}

// observe はObserverが設定されていれば呼び出し結果を通知する。
func (c *Client) observe(method, path string, status int, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(method, endpointOf(path), status, elapsed)
}

// endpointOf はパスの先頭セグメントを返す。IDなどの可変部分は含めない。
func endpointOf(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}

// requestIDTransport はコンテキストのリクエストIDをX-Request-IDヘッダーとして付与する。
type requestIDTransport struct {
	// next は実際に送信を行うRoundTripper。
	next http.RoundTripper
}

// RoundTrip はhttp.RoundTripperを実装する。
func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if id := RequestIDFromContext(req.Context()); id != "" {
		req = req.Clone(req.Context())
		req.Header.Set(headerKeyRequestID, id)
	}
	return t.next.RoundTrip(req)
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// 上流への呼び出し時にX-Request-IDヘッダーとして伝播される。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestIDFromContext はコンテキストに設定されたリクエストIDを返す。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}
