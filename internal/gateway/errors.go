package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/havirkesht/pkg/httpclient"
	"go.uber.org/zap"
)

// ダッシュボードに返す固定メッセージ。
const (
	msgUnavailable     = "教育サーバーとの通信に失敗しました"
	msgUnauthorized    = "認証トークンが提供されていません。先にログインしてください"
	msgInvalidResponse = "教育サーバーから不正な応答を受け取りました"
	msgInternal        = "内部サーバーエラーが発生しました"
)

// respondJSON は上流のJSONボディをステータス200でそのまま返す。
func respondJSON(c *gin.Context, body json.RawMessage) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// respondDetail は {"detail": msg} 形式のエラーを返す。
func respondDetail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// respondValidationError はリクエストボディやクエリの検証エラーを422で返す。
// メッセージにはリクエスト上のフィールド名を使う。
func respondValidationError(c *gin.Context, err error) {
	_ = c.Error(err)
	respondDetail(c, http.StatusUnprocessableEntity, "リクエストの検証に失敗しました: "+validationMessage(err))
}

// respondError は転送時のエラーを種類に応じたステータスに変換して返す。
func (s *Server) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var statusErr *httpclient.StatusError
	switch {
	case errors.As(err, &statusErr):
		status := statusErr.StatusCode
		if status < http.StatusBadRequest {
			// 3xxなど転送できないステータスは上流の異常として扱う
			status = http.StatusBadGateway
		}
		respondDetail(c, status, statusErr.Message)
	case errors.Is(err, httpclient.ErrUnauthorized):
		c.Header("WWW-Authenticate", "Bearer")
		respondDetail(c, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, httpclient.ErrUnavailable):
		s.logger.Warn("教育サーバーに接続できません",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		respondDetail(c, http.StatusServiceUnavailable, msgUnavailable)
	case errors.Is(err, httpclient.ErrInvalidResponse):
		s.logger.Error("教育サーバーの応答を解釈できません",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		respondDetail(c, http.StatusInternalServerError, msgInvalidResponse)
	default:
		s.logger.Error("リクエストの処理に失敗",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		respondDetail(c, http.StatusInternalServerError, msgInternal)
	}
}

// renameNotFound は上流の404をmsgを持つ404に置き換える。それ以外のエラーはそのまま返す。
func renameNotFound(err error, msg string) error {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return &httpclient.StatusError{StatusCode: http.StatusNotFound, Message: msg}
	}
	return err
}
