package gateway

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/havirkesht/pkg/httpclient"
)

// farmerPath は国民IDで農家を指す上流のパスを返す。
func farmerPath(nationalID string) string {
	return "/farmer/" + url.PathEscape(nationalID)
}

// farmerNotFound は国民IDで農家が見つからなかった場合のメッセージを返す。
func farmerNotFound(nationalID string) string {
	return fmt.Sprintf("国民ID %s の農家が見つかりません", nationalID)
}

// handleListFarmers は農家の一覧を返すハンドラを返す。
func (s *Server) handleListFarmers() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.forward(c, httpclient.Request{Method: http.MethodGet, Path: "/farmer/"})
	}
}

// handleGetFarmer は国民IDで農家を取得するハンドラを返す。
func (s *Server) handleGetFarmer() gin.HandlerFunc {
	return func(c *gin.Context) {
		nationalID := c.Param("national_id")
		body, err := s.call(c, httpclient.Request{Method: http.MethodGet, Path: farmerPath(nationalID)})
		if err != nil {
			s.respondError(c, renameNotFound(err, farmerNotFound(nationalID)))
			return
		}
		respondJSON(c, body)
	}
}

// handleCreateFarmer は農家を作成するハンドラを返す。
// ボディは受け取ったフィールドのまま転送する。
func (s *Server) handleCreateFarmer() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FarmerCreate
		if !bindJSON(c, &req) {
			return
		}
		s.forward(c, httpclient.Request{Method: http.MethodPost, Path: "/farmer/", Body: req})
	}
}

// handleUpdateFarmer は国民IDで指定した農家を更新するハンドラを返す。
func (s *Server) handleUpdateFarmer() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FarmerUpdate
		if !bindJSON(c, &req) {
			return
		}

		nationalID := c.Param("national_id")
		body, err := s.call(c, httpclient.Request{Method: http.MethodPut, Path: farmerPath(nationalID), Body: req})
		if err != nil {
			s.respondError(c, renameNotFound(err, farmerNotFound(nationalID)))
			return
		}
		respondJSON(c, body)
	}
}

// handleDeleteFarmer は国民IDで指定した農家を削除するハンドラを返す。
func (s *Server) handleDeleteFarmer() gin.HandlerFunc {
	return func(c *gin.Context) {
		nationalID := c.Param("national_id")
		body, err := s.call(c, httpclient.Request{Method: http.MethodDelete, Path: farmerPath(nationalID)})
		if err != nil {
			s.respondError(c, renameNotFound(err, farmerNotFound(nationalID)))
			return
		}
		respondJSON(c, body)
	}
}

// handleFarmerIDToUserID は農家IDに対応するユーザーIDを返すハンドラを返す。
func (s *Server) handleFarmerIDToUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		farmerID := c.Param("farmer_id")
		body, err := s.call(c, httpclient.Request{
			Method: http.MethodGet,
			Path:   "/farmer/farmer-id-to-user-id/" + url.PathEscape(farmerID),
		})
		if err != nil {
			s.respondError(c, renameNotFound(err, fmt.Sprintf("農家ID %s の農家が見つかりません", farmerID)))
			return
		}
		respondJSON(c, body)
	}
}
