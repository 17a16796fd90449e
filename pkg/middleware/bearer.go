package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// contextKeyToken はGinコンテキストにBearerトークンを格納するためのキー。
	contextKeyToken = "bearer_token"
	// contextKeyClaims はGinコンテキストにトークンのクレームを格納するためのキー。
	contextKeyClaims = "token_claims"
)

// TokenClaims は教育サーバーが発行したトークンから読み取ったクレーム。
// 署名は検証していないため、ログや表示の用途に限って使用する。
type TokenClaims struct {
	// Subject はトークンのsubクレーム（通常はユーザー名）。
	Subject string
	// ExpiresAt はトークンの有効期限。expクレームが無い場合はゼロ値。
	ExpiresAt time.Time
}

// Expired はnowの時点でトークンの有効期限が切れているかを返す。
// 有効期限が無い場合はfalseを返す。
func (tc *TokenClaims) Expired(now time.Time) bool {
	return !tc.ExpiresAt.IsZero() && now.After(tc.ExpiresAt)
}

// BearerAuth はAuthorizationヘッダーからBearerトークンを取り出すGinミドルウェアを返す。
// ヘッダーが無い、スキームがBearerでない、トークンが空の場合は上流に転送せず401を返す。
// トークンの検証は教育サーバーが行うため、ここでは形式のみを確認する。
func BearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "認証トークンが提供されていません。先にログインしてください")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			abortUnauthorized(c, "Bearer トークン形式が不正です")
			return
		}

		token = strings.TrimSpace(token)
		if token == "" {
			abortUnauthorized(c, "Bearer トークンが空です")
			return
		}

		c.Set(contextKeyToken, token)
		if claims, ok := parseClaims(token); ok {
			c.Set(contextKeyClaims, claims)
		}
		c.Next()
	}
}

// GetBearerToken はGinコンテキストからBearerトークンを取得する。
// BearerAuthミドルウェアが事前に適用されている必要がある。
func GetBearerToken(c *gin.Context) string {
	return c.GetString(contextKeyToken)
}

// GetTokenClaims はGinコンテキストからトークンのクレームを取得する。
// トークンがJWTでない場合はfalseを返す。
func GetTokenClaims(c *gin.Context) (*TokenClaims, bool) {
	v, ok := c.Get(contextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*TokenClaims)
	return claims, ok
}

// parseClaims はトークンをJWTとして署名を検証せずに解析する。
// 不透明なトークンの場合はfalseを返す。
func parseClaims(token string) (*TokenClaims, bool) {
	registered := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, registered); err != nil {
		return nil, false
	}

	claims := &TokenClaims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, true
}

// abortUnauthorized は401を返してリクエストを中断する。
func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}
