package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// serviceName はヘルスチェックで報告するサービス名。
const serviceName = "Havirkesht Dashboard"

// handleHealth はヘルスチェックのハンドラを返す。教育サーバーには問い合わせない。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"service":  serviceName,
			"upstream": s.upstream.BaseURL(),
			"frontend": s.cfg.FrontendURL,
			"proxy":    s.cfg.ProxyMode(),
		})
	}
}

// handleTestConnection は教育サーバーへの接続診断を実行し、結果を返すハンドラを返す。
// 診断が失敗してもステータスは200で、結果はoverall_successで判断する。
func (s *Server) handleTestConnection() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := Diagnose(c.Request.Context(), s.upstream, DiagnoseOptions{
			Username: s.cfg.APIUsername,
			Password: s.cfg.APIPassword,
			Timeout:  s.cfg.DiagnosticTimeout,
			Proxy:    s.cfg.ProxyMode(),
		})
		c.JSON(http.StatusOK, report)
	}
}
