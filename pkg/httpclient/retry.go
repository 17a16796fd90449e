package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// retryOnDialError は接続確立に失敗した場合のみ再試行を許可するretryablehttpのCheckRetry。
// 上流が応答を返した場合はステータスコードに関わらず再試行しない。
// 送信後の失敗（読み取りタイムアウト等）も再試行しない。
func retryOnDialError(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true, nil
	}
	return false, nil
}

// retryLogger はzapロガーをretryablehttp.LeveledLoggerとして扱うためのアダプタ。
type retryLogger struct {
	// s はログ出力先。
	s *zap.SugaredLogger
}

// Error は1回の試行の失敗をWarnで出力する。最終的な失敗は呼び出し側が記録する。
func (l retryLogger) Error(msg string, keysAndValues ...any) { l.s.Warnw(msg, keysAndValues...) }

// Warn はWarnレベルで出力する。
func (l retryLogger) Warn(msg string, keysAndValues ...any) { l.s.Warnw(msg, keysAndValues...) }

// Info はInfoレベルで出力する。
func (l retryLogger) Info(msg string, keysAndValues ...any) { l.s.Infow(msg, keysAndValues...) }

// Debug はDebugレベルで出力する。
func (l retryLogger) Debug(msg string, keysAndValues ...any) { l.s.Debugw(msg, keysAndValues...) }
