// Package httpclient は教育サーバー（上流API）へリクエストを転送するクライアントを提供する。
//
// 呼び出し元のBearerトークンをそのまま Authorization ヘッダーに付与して上流に送り、
// 上流のJSONボディを返す。上流の非2xx応答はステータスコードとメッセージを保持した
// StatusError に、接続失敗やタイムアウトは ErrUnavailable に変換する。
// 再試行は接続確立の失敗に限り、固定回数だけトランスポート層で行う。
package httpclient
