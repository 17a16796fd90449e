package gateway

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/havirkesht/pkg/httpclient"
)

// userPath はユーザーIDで指す上流のパスを返す。
func userPath(userID string) string {
	return "/users/" + url.PathEscape(userID)
}

// handleListUsers はユーザー一覧を返すハンドラを返す。
// pageとsizeは省略時にそれぞれ1と50を送る。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q UserListQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			respondValidationError(c, err)
			return
		}

		s.forward(c, httpclient.Request{
			Method: http.MethodGet,
			Path:   "/users/",
			Query: url.Values{
				"page": {strconv.Itoa(q.Page)},
				"size": {strconv.Itoa(q.Size)},
			},
		})
	}
}

// handleGetUser はユーザーをIDで取得するハンドラを返す。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.forward(c, httpclient.Request{Method: http.MethodGet, Path: userPath(c.Param("user_id"))})
	}
}

// handleCreateUser は管理者APIでユーザーを作成するハンドラを返す。
func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserCreate
		if !bindJSON(c, &req) {
			return
		}
		s.forward(c, httpclient.Request{Method: http.MethodPost, Path: "/users/admin/", Body: req})
	}
}

// handleUpdateUser はユーザーを部分更新するハンドラを返す。
func (s *Server) handleUpdateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserUpdate
		if !bindJSON(c, &req) {
			return
		}
		s.forward(c, httpclient.Request{Method: http.MethodPut, Path: userPath(c.Param("user_id")), Body: req})
	}
}
