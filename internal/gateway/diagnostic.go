package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nao1215/havirkesht/pkg/httpclient"
)

// maxDiagnosticDetail は診断結果に含めるエラー詳細の最大文字数。
const maxDiagnosticDetail = 100

// DiagnoseOptions は接続診断の設定。
type DiagnoseOptions struct {
	// Username とPassword はトークン取得に使うサービスアカウントの資格情報。
	Username string
	Password string
	// Timeout は各診断ステップの上限時間。
	Timeout time.Duration
	// Proxy はプロキシ設定の表示用文字列。
	Proxy string
}

// Report は接続診断の結果。
type Report struct {
	Server         string           `json:"server"`
	Connection     ConnectionResult `json:"connection"`
	Authentication AuthResult       `json:"authentication"`
	APITest        APITestResult    `json:"api_test"`
	Proxy          string           `json:"proxy"`
	OverallSuccess bool             `json:"overall_success"`
}

// ConnectionResult はベースURLへの到達確認の結果。
type ConnectionResult struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AuthResult はサービスアカウントでのトークン取得の結果。
type AuthResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TokenReceived *bool  `json:"token_received,omitempty"`
	Details       string `json:"details,omitempty"`
}

// APITestResult は取得したトークンでのユーザー一覧取得の結果。
type APITestResult struct {
	Success bool   `json:"success"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// Diagnose は教育サーバーへの接続、認証、API呼び出しを順に確認する。
// 取得したトークンはこの呼び出しの中だけで使い、保持しない。
func Diagnose(ctx context.Context, upstream Upstream, opts DiagnoseOptions) Report {
	report := Report{
		Server: upstream.BaseURL(),
		Proxy:  opts.Proxy,
	}

	report.Connection = checkConnection(ctx, upstream, opts.Timeout)

	var token string
	report.Authentication, token = checkAuthentication(ctx, upstream, opts)

	report.APITest = APITestResult{Message: "トークンを取得できなかったためスキップしました"}
	if token != "" {
		report.APITest = checkUsersAPI(ctx, upstream, token, opts.Timeout)
	}

	report.OverallSuccess = report.Connection.Success && report.Authentication.Success
	return report
}

// checkConnection はベースURLに認証なしでアクセスし、5xx未満の応答があれば到達できたとする。
func checkConnection(ctx context.Context, upstream Upstream, timeout time.Duration) ConnectionResult {
	ctx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	status, err := upstream.Ping(ctx)
	if err != nil {
		return ConnectionResult{
			Message: "教育サーバーに到達できません: " + truncate(err.Error()),
		}
	}
	if status >= http.StatusInternalServerError {
		return ConnectionResult{Status: status, Message: "教育サーバーがエラーを返しました"}
	}
	return ConnectionResult{Status: status, Success: true, Message: "教育サーバーが応答しました"}
}

// checkAuthentication はサービスアカウントでトークンを取得する。成功した場合はトークンも返す。
// 教育サーバーが2xxを返せばトークンが無くても認証は成功とし、token_receivedをfalseにする。
func checkAuthentication(ctx context.Context, upstream Upstream, opts DiagnoseOptions) (AuthResult, string) {
	if opts.Username == "" || opts.Password == "" {
		return AuthResult{Message: "API_USERNAMEとAPI_PASSWORDが設定されていません"}, ""
	}

	ctx, cancel := withOptionalTimeout(ctx, opts.Timeout)
	defer cancel()

	tok, err := upstream.Token(ctx, opts.Username, opts.Password)
	if err != nil {
		if errors.Is(err, httpclient.ErrUnauthorized) {
			// 2xxだがaccess_tokenを含まない応答
			received := false
			return AuthResult{
				Success:       true,
				Message:       "認証に成功しました",
				TokenReceived: &received,
			}, ""
		}
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return AuthResult{
				Message: fmt.Sprintf("認証エラー: %d", statusErr.StatusCode),
				Details: truncate(statusErr.Message),
			}, ""
		}
		return AuthResult{Message: "認証に失敗: " + truncate(err.Error())}, ""
	}

	received := tok.AccessToken != ""
	return AuthResult{
		Success:       true,
		Message:       "認証に成功しました",
		TokenReceived: &received,
	}, tok.AccessToken
}

// checkUsersAPI はtokenでユーザー一覧を取得できるかを確認する。
func checkUsersAPI(ctx context.Context, upstream Upstream, token string, timeout time.Duration) APITestResult {
	ctx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	_, err := upstream.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/users/", Token: token})
	if err == nil {
		return APITestResult{Success: true, Status: http.StatusOK, Message: "ユーザーAPIは正常に動作しています"}
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return APITestResult{
			Status:  statusErr.StatusCode,
			Message: fmt.Sprintf("ユーザーAPIがエラーを返しました: %d", statusErr.StatusCode),
		}
	}
	return APITestResult{Message: "ユーザーAPIの呼び出しに失敗: " + truncate(err.Error())}
}

// withOptionalTimeout はtimeoutが正の場合だけctxに期限を設定する。
func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// truncate はsを先頭maxDiagnosticDetail文字に切り詰める。
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxDiagnosticDetail {
		return s
	}
	return string(r[:maxDiagnosticDetail])
}
