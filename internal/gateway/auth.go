package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/havirkesht/pkg/httpclient"
	"github.com/nao1215/havirkesht/pkg/middleware"
)

// handleLogin は資格情報を教育サーバーの /token に転送し、発行されたトークンを返すハンドラを返す。
// トークンは加工せずにそのまま返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBind(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		tok, err := s.upstream.Token(c.Request.Context(), *req.Username, *req.Password)
		if err != nil {
			if errors.Is(err, httpclient.ErrUnauthorized) {
				_ = c.Error(err)
				c.Header("WWW-Authenticate", "Bearer")
				respondDetail(c, http.StatusUnauthorized, "教育サーバーの応答にトークンが含まれていません")
				return
			}
			s.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token": tok.AccessToken,
			"token_type":   "bearer",
			"message":      "ログインに成功しました",
		})
	}
}

// handleCheckAuth はBearerトークンが提示されていることを確認するハンドラを返す。
// トークンがJWTの場合は署名を検証せずにsubと有効期限を添える。
func (s *Server) handleCheckAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{
			"authenticated": true,
			"message":       "認証済みです",
		}
		if claims, ok := middleware.GetTokenClaims(c); ok {
			resp["subject"] = claims.Subject
			if !claims.ExpiresAt.IsZero() {
				resp["expires_at"] = claims.ExpiresAt.UTC().Format(time.RFC3339)
			}
			resp["expired"] = claims.Expired(time.Now())
		}
		c.JSON(http.StatusOK, resp)
	}
}
