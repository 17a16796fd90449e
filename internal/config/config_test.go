package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// configKeys はConfigが読み込む環境変数の一覧。
var configKeys = []string{
	"PORT", "SERVER_URL", "API_USERNAME", "API_PASSWORD", "FRONTEND_URL",
	"CORS_ALLOWED_ORIGINS", "TRUSTED_PROXIES", "REQUEST_TIMEOUT", "DIAGNOSTIC_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"UPSTREAM_RETRY_MAX", "UPSTREAM_RETRY_WAIT_MIN", "UPSTREAM_RETRY_WAIT_MAX",
	"UPSTREAM_DISABLE_PROXY", "UPSTREAM_INSECURE_SKIP_VERIFY",
	"LOGIN_RATE_LIMIT", "LOGIN_RATE_BURST", "LOG_LEVEL", "LOG_FORMAT", "GIN_MODE",
}

// clearEnv はテスト中だけ設定用の環境変数を未設定にする。
// テスト終了時にt.Setenvが元の値へ戻す。
func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// validConfig は検証を通過する設定を返す。
func validConfig() *Config {
	return &Config{
		Port:                 "8000",
		ServerURL:            "http://edu-api.havirkesht.ir",
		FrontendURL:          "http://edu.havirkesht.ir",
		CORSAllowedOrigins:   []string{"*"},
		RequestTimeout:       30 * time.Second,
		DiagnosticTimeout:    5 * time.Second,
		ShutdownTimeout:      10 * time.Second,
		UpstreamRetryMax:     3,
		UpstreamRetryWaitMin: 100 * time.Millisecond,
		UpstreamRetryWaitMax: time.Second,
		UpstreamDisableProxy: true,
		LoginRateLimit:       5,
		LoginRateBurst:       10,
		LogLevel:             "info",
		LogFormat:            "json",
		GinMode:              "release",
	}
}

// TestLoad はLoad関数を検証する。環境変数を書き換えるため並列実行しない。
func TestLoad(t *testing.T) {
	t.Run("環境変数が無い場合デフォルト値が使われること", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		if diff := cmp.Diff(validConfig(), cfg); diff != "" {
			t.Errorf("Load() mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, ":8000", cfg.Addr())
		assert.Equal(t, ProxyModeDisabled, cfg.ProxyMode())
		assert.False(t, cfg.HasServiceCredentials())
	})

	t.Run("環境変数で設定を上書きできること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9000")
		t.Setenv("SERVER_URL", "https://api.example.com/")
		t.Setenv("API_USERNAME", "admin")
		t.Setenv("API_PASSWORD", "secret")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000; https://edu.havirkesht.ir")
		t.Setenv("REQUEST_TIMEOUT", "2s")
		t.Setenv("UPSTREAM_RETRY_MAX", "0")
		t.Setenv("UPSTREAM_DISABLE_PROXY", "false")
		t.Setenv("LOGIN_RATE_LIMIT", "0")
		t.Setenv("LOG_FORMAT", "console")
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8; 192.168.1.10")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, ":9000", cfg.Addr())
		assert.Equal(t, "https://api.example.com", cfg.ServerURL)
		assert.True(t, cfg.HasServiceCredentials())
		assert.Equal(t, []string{"http://localhost:3000", "https://edu.havirkesht.ir"}, cfg.CORSAllowedOrigins)
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
		assert.Zero(t, cfg.UpstreamRetryMax)
		assert.Equal(t, ProxyModeEnvironment, cfg.ProxyMode())
		assert.Zero(t, cfg.LoginRateLimit)
		assert.Equal(t, "console", cfg.LogFormat)
		assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, cfg.TrustedProxies)
	})

	t.Run(".envファイルの値が読み込まれ既存の環境変数は優先されること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "7000")

		path := filepath.Join(t.TempDir(), ".env")
		content := "PORT=1234\nSERVER_URL=https://edu-api.example.ir/\nAPI_USERNAME=svc\nAPI_PASSWORD=pw\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "7000", cfg.Port)
		assert.Equal(t, "https://edu-api.example.ir", cfg.ServerURL)
		assert.Equal(t, "svc", cfg.APIUsername)
		assert.Equal(t, "pw", cfg.APIPassword)
	})

	t.Run("存在しない.envファイルは無視されること", func(t *testing.T) {
		clearEnv(t)

		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.NoError(t, err)
	})

	t.Run("不正な値はエラーになること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SERVER_URL", "ftp://edu-api.havirkesht.ir")

		_, err := Load()
		assert.ErrorContains(t, err, "SERVER_URL")
	})

	t.Run("解析できない値はエラーになること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("REQUEST_TIMEOUT", "thirty")

		_, err := Load()
		assert.Error(t, err)
	})
}

// TestValidate はValidateメソッドを検証する。
func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{name: "正常な設定はエラーにならないこと", modify: func(*Config) {}},
		{name: "ポートが空", modify: func(c *Config) { c.Port = "" }, wantErr: "PORT"},
		{name: "スキームの無いURL", modify: func(c *Config) { c.ServerURL = "edu-api.havirkesht.ir" }, wantErr: "SERVER_URL"},
		{name: "ホストの無いURL", modify: func(c *Config) { c.ServerURL = "http://" }, wantErr: "SERVER_URL"},
		{name: "タイムアウトが0", modify: func(c *Config) { c.RequestTimeout = 0 }, wantErr: "REQUEST_TIMEOUT"},
		{name: "診断タイムアウトが負", modify: func(c *Config) { c.DiagnosticTimeout = -time.Second }, wantErr: "DIAGNOSTIC_TIMEOUT"},
		{name: "再試行回数が負", modify: func(c *Config) { c.UpstreamRetryMax = -1 }, wantErr: "UPSTREAM_RETRY_MAX"},
		{name: "再試行待機の最小が最大を超える", modify: func(c *Config) { c.UpstreamRetryWaitMin = 2 * time.Second }, wantErr: "UPSTREAM_RETRY_WAIT"},
		{name: "レート制限が負", modify: func(c *Config) { c.LoginRateLimit = -1 }, wantErr: "LOGIN_RATE_LIMIT"},
		{name: "バーストが0", modify: func(c *Config) { c.LoginRateBurst = 0 }, wantErr: "LOGIN_RATE_BURST"},
		{name: "レート制限無効ならバースト0も許容されること", modify: func(c *Config) { c.LoginRateLimit, c.LoginRateBurst = 0, 0 }},
		{name: "不正なログ形式", modify: func(c *Config) { c.LogFormat = "xml" }, wantErr: "LOG_FORMAT"},
		{name: "不正なGINモード", modify: func(c *Config) { c.GinMode = "prod" }, wantErr: "GIN_MODE"},
		{name: "不正な信頼プロキシ", modify: func(c *Config) { c.TrustedProxies = []string{"proxy.local"} }, wantErr: "TRUSTED_PROXIES"},
		{name: "IPv6のCIDRも信頼プロキシに指定できること", modify: func(c *Config) { c.TrustedProxies = []string{"fd00::/8", "::1"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	t.Run("URL末尾のスラッシュと空のオリジンが正規化されること", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.ServerURL = " https://edu-api.havirkesht.ir// "
		cfg.CORSAllowedOrigins = []string{" http://a.example ", "", "*"}
		require.NoError(t, cfg.Validate())

		assert.Equal(t, "https://edu-api.havirkesht.ir", cfg.ServerURL)
		assert.Equal(t, []string{"http://a.example", "*"}, cfg.CORSAllowedOrigins)
	})
}
