// Package middleware はgatewayのGin HTTP APIで使用する共通ミドルウェアを提供する。
//
// Bearerトークンの取り出し、リクエストID、アクセスログ、パニックリカバリ、
// CORS設定、ログインのレート制限を含む。エラー応答はダッシュボードが読む
// {"detail": "..."} 形式で返す。
package middleware
