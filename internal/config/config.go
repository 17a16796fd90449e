// Package config はgatewayの設定を環境変数と.envファイルから読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	// ProxyModeDisabled は上流への接続で環境変数のプロキシ設定を無視することを示す。
	ProxyModeDisabled = "disabled"
	// ProxyModeEnvironment は上流への接続で環境変数のプロキシ設定に従うことを示す。
	ProxyModeEnvironment = "environment"
)

// Config はgatewayの実行時設定。
type Config struct {
	// Port はgatewayが待ち受けるポート番号。
	Port string `env:"PORT,default=8000"`
	// ServerURL は教育サーバーのベースURL。末尾のスラッシュは取り除かれる。
	ServerURL string `env:"SERVER_URL,default=http://edu-api.havirkesht.ir"`
	// APIUsername とAPIPassword は接続診断で使うサービスアカウントの資格情報。
	APIUsername string `env:"API_USERNAME"`
	APIPassword string `env:"API_PASSWORD"`
	// FrontendURL はダッシュボードのURL。ヘルスチェックで報告する。
	FrontendURL string `env:"FRONTEND_URL,default=http://edu.havirkesht.ir"`
	// CORSAllowedOrigins はCORSで許可するオリジン。";" 区切りで "*" は任意のオリジンを表す。
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	// TrustedProxies はX-Forwarded-Forを信頼するプロキシのIPまたはCIDR。";" 区切り。
	// 空の場合はどのプロキシも信頼せず、接続元のアドレスをクライアントIPとする。
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequestTimeout は教育サーバーへの1回の呼び出しの上限時間。
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT,default=30s"`
	// DiagnosticTimeout は接続診断の各ステップの上限時間。
	DiagnosticTimeout time.Duration `env:"DIAGNOSTIC_TIMEOUT,default=5s"`
	// ShutdownTimeout はグレースフルシャットダウンで処理中のリクエストを待つ上限時間。
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	// UpstreamRetryMax は接続確立に失敗した場合の再試行回数。
	UpstreamRetryMax int `env:"UPSTREAM_RETRY_MAX,default=3"`
	// UpstreamRetryWaitMin とUpstreamRetryWaitMax は再試行間隔の下限と上限。
	UpstreamRetryWaitMin time.Duration `env:"UPSTREAM_RETRY_WAIT_MIN,default=100ms"`
	UpstreamRetryWaitMax time.Duration `env:"UPSTREAM_RETRY_WAIT_MAX,default=1s"`
	// UpstreamDisableProxy がtrueの場合、教育サーバーへの接続でHTTP(S)_PROXYを無視する。
	UpstreamDisableProxy bool `env:"UPSTREAM_DISABLE_PROXY,default=true"`
	// UpstreamInsecureSkipVerify がtrueの場合、教育サーバーのTLS証明書を検証しない。
	UpstreamInsecureSkipVerify bool `env:"UPSTREAM_INSECURE_SKIP_VERIFY,default=false"`

	// LoginRateLimit はクライアントIPごとのログイン試行の上限（1秒あたり）。0で無効。
	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT,default=5"`
	// LoginRateBurst はログイン試行のバースト数。
	LoginRateBurst int `env:"LOGIN_RATE_BURST,default=10"`

	// LogLevel はログレベル（debug、info、warn、error）。
	LogLevel string `env:"LOG_LEVEL,default=info"`
	// LogFormat はログの出力形式（jsonまたはconsole）。
	LogFormat string `env:"LOG_FORMAT,default=json"`
	// GinMode はGinの動作モード（debug、release、test）。
	GinMode string `env:"GIN_MODE,default=release"`
}

// Load はenvFilesを順に読み込んでから環境変数を設定に変換し、検証する。
// 既に設定されている環境変数は.envファイルで上書きされない。
// 存在しない.envファイルは無視する。
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%sの読み込みに失敗: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("環境変数の解析に失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値を検証し、URLの末尾のスラッシュとオリジンの空白を正規化する。
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORTが空です"))
	}

	c.ServerURL = strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	if err := validateHTTPURL(c.ServerURL); err != nil {
		errs = append(errs, fmt.Errorf("SERVER_URLが不正です: %w", err))
	}
	c.FrontendURL = strings.TrimRight(strings.TrimSpace(c.FrontendURL), "/")

	origins := make([]string, 0, len(c.CORSAllowedOrigins))
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins

	var proxies []string
	for _, p := range c.TrustedProxies {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if !isIPOrCIDR(p) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIESにIPアドレスでもCIDRでもない値があります: %q", p))
		}
		proxies = append(proxies, p)
	}
	c.TrustedProxies = proxies

	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT":    c.RequestTimeout,
		"DIAGNOSTIC_TIMEOUT": c.DiagnosticTimeout,
		"SHUTDOWN_TIMEOUT":   c.ShutdownTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%sは正の値である必要があります: %s", name, d))
		}
	}

	if c.UpstreamRetryMax < 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_RETRY_MAXは0以上である必要があります: %d", c.UpstreamRetryMax))
	}
	if c.UpstreamRetryWaitMin < 0 || c.UpstreamRetryWaitMax < c.UpstreamRetryWaitMin {
		errs = append(errs, fmt.Errorf("UPSTREAM_RETRY_WAIT_MIN/MAXが不正です: %s/%s",
			c.UpstreamRetryWaitMin, c.UpstreamRetryWaitMax))
	}

	if c.LoginRateLimit < 0 {
		errs = append(errs, fmt.Errorf("LOGIN_RATE_LIMITは0以上である必要があります: %g", c.LoginRateLimit))
	}
	if c.LoginRateLimit > 0 && c.LoginRateBurst < 1 {
		errs = append(errs, fmt.Errorf("LOGIN_RATE_BURSTは1以上である必要があります: %d", c.LoginRateBurst))
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMATはjsonまたはconsoleである必要があります: %q", c.LogFormat))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("GIN_MODEはdebug、release、testのいずれかである必要があります: %q", c.GinMode))
	}

	return errors.Join(errs...)
}

// Addr はHTTPサーバーの待ち受けアドレスを返す。
func (c *Config) Addr() string {
	return ":" + c.Port
}

// ProxyMode は上流への接続のプロキシ設定を表す文字列を返す。
func (c *Config) ProxyMode() string {
	if c.UpstreamDisableProxy {
		return ProxyModeDisabled
	}
	return ProxyModeEnvironment
}

// HasServiceCredentials は接続診断用の資格情報が設定されているかを返す。
func (c *Config) HasServiceCredentials() bool {
	return c.APIUsername != "" && c.APIPassword != ""
}

// isIPOrCIDR はsがIPアドレスまたはCIDR表記かを返す。
func isIPOrCIDR(s string) bool {
	if net.ParseIP(s) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(s)
	return err == nil
}

// validateHTTPURL はrawがホストを持つhttp(s)のURLであることを確認する。
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("スキームはhttpまたはhttpsである必要があります: %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("ホストがありません: %q", raw)
	}
	return nil
}
