// Package gateway はHavirkeshtダッシュボードのAPI Gatewayの内部実装を提供する。
//
// ダッシュボードからのリクエストを受け付け、呼び出し元のBearerトークンを付けて
// 教育サーバーの対応するパスへ転送し、JSONレスポンスをそのまま返す。
// ログイン時は資格情報を教育サーバーの /token に渡して発行されたトークンを返す。
// セッション状態は持たず、トークンは呼び出し元がリクエストごとに送る。
package gateway
