package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/monopoly-server/internal/config"
	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game"
	"github.com/wfunc/monopoly-server/internal/middleware"
	"github.com/wfunc/monopoly-server/internal/repository"
	ws "github.com/wfunc/monopoly-server/internal/websocket"
)

// RouterOptions 路由器依赖
type RouterOptions struct {
	DB          *gorm.DB // 为空表示未启用对局流水
	Session     *game.Session
	Hub         *ws.Hub
	WebSocket   config.WebSocketConfig
	Mode        string
	OpenAPIPath string // 为空时使用 DefaultOpenAPIPath
	Logger      *zap.Logger
}

// Router API路由器
type Router struct {
	engine      *gin.Engine
	db          *gorm.DB
	session     *game.Session
	wsHandler   *WebSocketHandler
	matches     *MatchHandler
	wsPath      string
	openAPIPath string
	log         *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(opts RouterOptions) *Router {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	gameHandler := ws.NewGameHandler(opts.Hub, opts.Session, opts.Logger.Named("game"))

	router := &Router{
		engine:      engine,
		db:          opts.DB,
		session:     opts.Session,
		wsHandler:   NewWebSocketHandler(opts.Hub, gameHandler, opts.WebSocket, opts.Logger.Named("websocket")),
		wsPath:      opts.WebSocket.Path,
		openAPIPath: opts.OpenAPIPath,
		log:         opts.Logger,
	}
	if opts.DB != nil {
		router.matches = NewMatchHandler(repository.NewMatchRepository(opts.DB))
	}
	if router.wsPath == "" {
		router.wsPath = "/ws"
	}
	if router.openAPIPath == "" {
		router.openAPIPath = DefaultOpenAPIPath
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// WebSocket路由
	r.engine.GET(r.wsPath, r.wsHandler.GameWebSocket)

	// 接口文档
	r.registerOpenAPIRoutes()
	registerSwaggerRoutes(r.engine)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/game", r.gameState)
		v1.GET("/online", r.wsHandler.GetOnlineCount)

		if r.matches != nil {
			r.matches.RegisterRoutes(v1)
		} else {
			matches := v1.Group("/matches")
			matches.GET("", r.journalDisabled)
			matches.GET("/:id", r.journalDisabled)
			matches.GET("/:id/events", r.journalDisabled)
		}
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		respondError(c, errors.New(errors.ErrNotFound, "接口不存在"))
	})
}

// healthCheck 健康检查
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (r *Router) healthCheck(c *gin.Context) {
	database := "disabled"
	if r.db != nil {
		sqlDB, err := r.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			r.log.Warn("健康检查数据库不可用", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}
		database = "ok"
	}

	view := r.session.View()
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": database,
		"match_id": view.MatchID,
		"stage":    view.Stage,
	})
}

// gameState 当前对局的只读视图
// @Summary 当前对局视图
// @Tags Game
// @Produce json
// @Success 200 {object} game.SessionView
// @Router /api/v1/game [get]
func (r *Router) gameState(c *gin.Context) {
	respondOK(c, r.session.View())
}

func (r *Router) journalDisabled(c *gin.Context) {
	respondError(c, errors.New(errors.ErrDatabaseConnect, "未启用对局流水"))
}

// Handler 返回HTTP处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
