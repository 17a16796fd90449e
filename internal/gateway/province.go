package gateway

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/havirkesht/pkg/httpclient"
)

// handleListProvinces は州の一覧を返すハンドラを返す。
// 各要素にprovince_idと同じ値のidを補う。
func (s *Server) handleListProvinces() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := s.call(c, httpclient.Request{Method: http.MethodGet, Path: "/province/"})
		if err != nil {
			s.respondError(c, err)
			return
		}
		body, err = addIDAlias(body, "province_id")
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondJSON(c, body)
	}
}

// handleCreateProvince は州を作成するハンドラを返す。
func (s *Server) handleCreateProvince() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProvinceCreate
		if !bindJSON(c, &req) {
			return
		}
		s.forward(c, httpclient.Request{Method: http.MethodPost, Path: "/province/", Body: req})
	}
}

// handleDeleteProvince は州を名前で削除するハンドラを返す。
// 名前はパスとしてエスケープして転送する。
func (s *Server) handleDeleteProvince() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.forward(c, httpclient.Request{
			Method: http.MethodDelete,
			Path:   "/province/" + url.PathEscape(c.Param("province_name")),
		})
	}
}
