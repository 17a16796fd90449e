package httpclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrUnavailable は上流サーバーに到達できなかったことを表す。
	// 接続拒否、名前解決の失敗、タイムアウトがこれに該当する。
	ErrUnavailable = errors.New("教育サーバーに接続できません")
	// ErrUnauthorized は認証情報が欠けている、または上流がトークンを発行しなかったことを表す。
	ErrUnauthorized = errors.New("認証トークンがありません")
	// ErrInvalidResponse は上流の2xx応答がJSONとして解釈できなかったことを表す。
	ErrInvalidResponse = errors.New("教育サーバーの応答がJSONではありません")
)

// StatusError は上流サーバーが非2xxのステータスを返したことを表す。
type StatusError struct {
	// StatusCode は上流が返したHTTPステータスコード。
	StatusCode int
	// Message は上流が返したエラーメッセージ。
	Message string
}

// Error はエラーメッセージを返す。
func (e *StatusError) Error() string {
	return fmt.Sprintf("教育サーバーがエラーを返しました: status=%d, message=%s", e.StatusCode, e.Message)
}

// maxMessageLen はStatusErrorに保持するメッセージの最大バイト数。
const maxMessageLen = 2048

// errorMessage は上流のエラーレスポンスボディからメッセージを取り出す。
// {"detail": "..."} 形式であればdetailの値を、
// それ以外はボディのテキストをそのまま返す。
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		detail := gjson.GetBytes(body, "detail")
		switch {
		case detail.Type == gjson.String:
			return detail.String()
		case detail.Exists():
			// バリデーションエラーの場合detailは配列になる
			return detail.Raw
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxMessageLen {
		msg = strings.ToValidUTF8(msg[:maxMessageLen], "")
	}
	return msg
}
