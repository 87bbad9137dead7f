package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/micaelmi/blog/internal/api/auth"
	"github.com/micaelmi/blog/internal/api/middleware"
	"github.com/micaelmi/blog/internal/config"
	"github.com/micaelmi/blog/internal/model"
	"github.com/micaelmi/blog/internal/pkg/metrics"
	"github.com/micaelmi/blog/internal/pkg/notify"

	_ "github.com/micaelmi/blog/docs" // swagger docs

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、邮件发送器以及 Gin 路由引擎。
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	router *gin.Engine
	auth   *auth.Handler
	mailer notify.Mailer
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 初始化邮件发送器
// 3. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
	})
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(
		&model.UserType{},
		&model.User{},
		&model.UnconfirmedUser{},
		&model.Article{},
		&model.Tag{},
		&model.ArticleTag{},
		&model.Comment{},
		&model.Feedback{},
		&model.EmailList{},
	); err != nil {
		return nil, err
	}

	mailer := notify.NewEmailNotifier(&cfg.Email, logger)

	// 初始化 Prometheus 指标
	metrics.InitMetrics()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:    cfg,
		logger: logger,
		db:     db,
		router: r,
		auth:   auth.NewHandler(db, cfg, mailer, logger),
		mailer: mailer,
	}
	s.registerRoutes()
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库连接。
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	// 交互式文档
	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	s.router.GET("/swagger/*any", gin.WrapH(httpSwagger.WrapHandler))

	// 注册与登录（公开）
	s.router.POST("/users", s.auth.Register)
	s.router.GET("/users/confirm-email", s.auth.ConfirmEmail)
	s.router.POST("/users/login", s.auth.Login)
	s.router.POST("/users/logout", s.auth.Logout)

	// 公开只读资源
	s.router.GET("/articles", s.handleListArticles)
	s.router.GET("/articles/:articleId", s.handleGetArticle)
	s.router.GET("/articles/:articleId/comments", s.handleListComments)
	s.router.GET("/tags", s.handleListTags)
	s.router.GET("/user-types", s.handleListUserTypes)
	s.router.POST("/email-list", s.handleSubscribeEmail)

	authed := s.router.Group("/")
	authed.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret))
	authed.GET("/users", s.handleListUsers)
	authed.PUT("/users/:userId", s.handleUpdateUser)
	authed.DELETE("/users/:userId", s.handleDeleteUser)

	authed.POST("/user-types", s.handleCreateUserType)
	authed.PUT("/user-types/:id", s.handleUpdateUserType)
	authed.DELETE("/user-types/:id", s.handleDeleteUserType)

	authed.POST("/tags", s.handleCreateTag)
	authed.PUT("/tags/:id", s.handleUpdateTag)
	authed.DELETE("/tags/:id", s.handleDeleteTag)

	authed.POST("/articles", s.handleCreateArticle)
	authed.PUT("/articles/:articleId", s.handleUpdateArticle)
	authed.DELETE("/articles/:articleId", s.handleDeleteArticle)

	authed.POST("/articles/:articleId/comments", s.handleCreateComment)
	authed.DELETE("/comments/:id", s.handleDeleteComment)

	authed.POST("/feedbacks", s.handleCreateFeedback)
	authed.GET("/feedbacks", s.handleListFeedbacks)
	authed.PUT("/feedbacks/:id", s.handleUpdateFeedback)
	authed.DELETE("/feedbacks/:id", s.handleDeleteFeedback)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getUserID 读取 AuthMiddleware 写入的当前用户 ID。
func getUserID(c *gin.Context) uint {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
