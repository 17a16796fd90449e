package gateway

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/havirkesht/pkg/httpclient"
)

// handleListCropYears は作物年度の一覧を返すハンドラを返す。
// 各要素にcrop_year_idと同じ値のidを補う。
func (s *Server) handleListCropYears() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := s.call(c, httpclient.Request{Method: http.MethodGet, Path: "/crop-year/"})
		if err != nil {
			s.respondError(c, err)
			return
		}
		body, err = addIDAlias(body, "crop_year_id")
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondJSON(c, body)
	}
}

// handleCreateCropYear は作物年度を作成するハンドラを返す。
func (s *Server) handleCreateCropYear() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CropYearCreate
		if !bindJSON(c, &req) {
			return
		}
		s.forward(c, httpclient.Request{Method: http.MethodPost, Path: "/crop-year/", Body: req})
	}
}

// handleDeleteCropYear は作物年度を削除するハンドラを返す。
func (s *Server) handleDeleteCropYear() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.forward(c, httpclient.Request{
			Method: http.MethodDelete,
			Path:   "/crop-year/" + url.PathEscape(c.Param("crop_year_id")),
		})
	}
}
