package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/havirkesht/internal/config"
	"github.com/nao1215/havirkesht/pkg/httpclient"
	"github.com/nao1215/havirkesht/pkg/metrics"
	"github.com/nao1215/havirkesht/pkg/middleware"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// readHeaderTimeout はリクエストヘッダーの読み取りに許す最大時間。
	readHeaderTimeout = 10 * time.Second
	// limiterCleanupInterval はログインのレート制限器を掃除する間隔。
	limiterCleanupInterval = time.Minute
)

// Upstream は教育サーバーへの呼び出しを表す。httpclient.Clientが実装する。
type Upstream interface {
	// Do は呼び出し元のトークンでリクエストを転送し、JSONボディを返す。
	Do(ctx context.Context, r httpclient.Request) (json.RawMessage, error)
	// Token はユーザー名とパスワードでトークンを取得する。
	Token(ctx context.Context, username, password string) (*oauth2.Token, error)
	// Ping は認証なしでベースURLにアクセスし、ステータスコードを返す。
	Ping(ctx context.Context) (int, error)
	// BaseURL は教育サーバーのベースURLを返す。
	BaseURL() string
}

// Server はAPI GatewayのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はgatewayの設定。
	cfg *config.Config
	// logger はログ出力先。
	logger *zap.Logger
	// upstream は教育サーバーへの転送クライアント。
	upstream Upstream
	// metrics はPrometheusメトリクス。
	metrics *metrics.Metrics
	// loginLimiter はログインのレート制限器。無効の場合はnil。
	loginLimiter *middleware.IPRateLimiter
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(cfg *config.Config, logger *zap.Logger, upstream Upstream, m *metrics.Metrics) *Server {
	registerFieldNames()

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("信頼するプロキシの設定に失敗しました。すべてのプロキシを信頼しません",
			zap.Strings("trusted_proxies", cfg.TrustedProxies),
			zap.Error(err),
		)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(m.Middleware())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	s := &Server{
		router:   router,
		cfg:      cfg,
		logger:   logger,
		upstream: upstream,
		metrics:  m,
	}
	if cfg.LoginRateLimit > 0 {
		s.loginLimiter = middleware.NewIPRateLimiter(rate.Limit(cfg.LoginRateLimit), cfg.LoginRateBurst)
	}
	s.setupRoutes()

	return s
}

// Handler はルーティング済みのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxが終了したらグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if s.loginLimiter != nil {
		s.loginLimiter.StartCleanup(ctx, limiterCleanupInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Gatewayサービスを起動します",
			zap.String("addr", srv.Addr),
			zap.String("upstream", s.upstream.BaseURL()),
			zap.String("proxy", s.cfg.ProxyMode()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("Gatewayサービスの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Gatewayサービスを停止します", zap.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	// 認証不要
	api.GET("/health", s.handleHealth())
	api.GET("/test-edu-connection", s.handleTestConnection())

	login := []gin.HandlerFunc{}
	if s.loginLimiter != nil {
		login = append(login, middleware.RateLimit(s.loginLimiter))
	}
	api.POST("/login", append(login, s.handleLogin())...)

	// 認証必須（トークンは教育サーバーへそのまま転送する）
	protected := api.Group("")
	protected.Use(middleware.BearerAuth())
	{
		protected.GET("/check-auth", s.handleCheckAuth())

		cropYear := protected.Group("/crop-year")
		cropYear.GET("/", s.handleListCropYears())
		cropYear.POST("/", s.handleCreateCropYear())
		cropYear.DELETE("/:crop_year_id", s.handleDeleteCropYear())

		province := protected.Group("/province")
		province.GET("/", s.handleListProvinces())
		province.POST("/", s.handleCreateProvince())
		province.DELETE("/:province_name", s.handleDeleteProvince())

		farmer := protected.Group("/farmer")
		farmer.GET("/", s.handleListFarmers())
		farmer.POST("/", s.handleCreateFarmer())
		farmer.GET("/:national_id", s.handleGetFarmer())
		farmer.PUT("/:national_id", s.handleUpdateFarmer())
		farmer.DELETE("/:national_id", s.handleDeleteFarmer())
		farmer.GET("/farmer-id-to-user-id/:farmer_id", s.handleFarmerIDToUserID())

		users := protected.Group("/users")
		users.GET("", s.handleListUsers())
		users.POST("", s.handleCreateUser())
		users.GET("/:user_id", s.handleGetUser())
		users.PUT("/:user_id", s.handleUpdateUser())
	}

	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// call は呼び出し元のトークンを付けてリクエストを教育サーバーに転送する。
func (s *Server) call(c *gin.Context, r httpclient.Request) (json.RawMessage, error) {
	r.Token = middleware.GetBearerToken(c)
	return s.upstream.Do(c.Request.Context(), r)
}

// forward はリクエストを転送し、応答をそのままクライアントに返す。
func (s *Server) forward(c *gin.Context, r httpclient.Request) {
	body, err := s.call(c, r)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondJSON(c, body)
}

// bindJSON はJSONボディをdstにバインドする。失敗した場合は422を返してfalseを返す。
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondValidationError(c, err)
		return false
	}
	return true
}
