package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/monopoly-server/internal/api"
	"github.com/wfunc/monopoly-server/internal/config"
	"github.com/wfunc/monopoly-server/internal/database"
	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game"
	"github.com/wfunc/monopoly-server/internal/logger"
	"github.com/wfunc/monopoly-server/internal/repository"
	ws "github.com/wfunc/monopoly-server/internal/websocket"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	db      *gorm.DB
	session *game.Session
	hub     *ws.Hub
	http    *http.Server

	serveErr chan error
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)

	flag.Parse()

	// 显示版本信息
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	// 创建服务器实例
	server := NewServer(cfg)

	// 启动服务器
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger.GetLogger(),
		serveErr: make(chan error, 1),
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动大富翁游戏服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	// 初始化各个组件
	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	// 启动HTTP服务
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("addr", s.http.Addr),
		zap.String("websocket", s.cfg.WebSocket.Path),
		zap.String("match_id", s.session.MatchID()),
	)
	return nil
}

// initComponents 初始化组件：数据库（可选）→ 对局会话 → 连接中心 → 路由
func (s *Server) initComponents() error {
	if err := s.initDatabase(); err != nil {
		return err
	}

	sessionCfg := &game.SessionConfig{
		Rules:         game.RulesFromConfig(s.cfg.Game),
		Seed:          s.cfg.Game.Seed,
		Logger:        logger.GetModuleLogger("game"),
		JournalBuffer: s.cfg.Database.JournalBuffer,
	}
	if s.db != nil {
		sessionCfg.Repo = repository.NewMatchRepository(s.db)
	}
	session, err := game.NewSession(context.Background(), sessionCfg)
	if err != nil {
		return err
	}
	s.session = session
	s.hub = ws.NewHub(logger.GetModuleLogger("websocket"))

	router := api.NewRouter(api.RouterOptions{
		DB:          s.db,
		Session:     s.session,
		Hub:         s.hub,
		WebSocket:   s.cfg.WebSocket,
		Mode:        s.cfg.Server.Mode,
		OpenAPIPath: s.cfg.Server.OpenAPIPath,
		Logger:      logger.GetModuleLogger("api"),
	})

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.logger.Info("所有组件初始化完成")
	return nil
}

// initDatabase 初始化数据库，未启用时对局流水关闭
func (s *Server) initDatabase() error {
	if !s.cfg.Database.Enabled {
		s.logger.Info("未启用数据库，对局流水关闭")
		return nil
	}

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	// 自动迁移数据库
	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}
	s.db = database.GetDB()

	s.logger.Info("数据库初始化完成", zap.String("driver", s.cfg.Database.Driver))
	return nil
}

// WaitForShutdown 等待关闭信号或HTTP服务异常退出
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
	)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case err := <-s.serveErr:
		s.logger.Error("HTTP服务异常退出", zap.Error(err))
	}
}

// Shutdown 优雅关闭服务器：停止接收请求 → 断开连接 → 结束对局 → 关闭数据库
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭超时", zap.Error(err))
		shutdownErr = errors.Wrap(err, errors.ErrTimeout, "关闭超时")
	}

	s.hub.Shutdown()
	s.session.Close()

	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}
	return shutdownErr
}

// reloadConfig 重新加载配置。日志级别即时生效，对局规则在下一局生效。
func (s *Server) reloadConfig(newCfg *config.Config) {
	if newCfg.Log.Level != s.cfg.Log.Level {
		logger.SetLevel(newCfg.Log.Level)
		s.logger.Info("日志级别已更新", zap.String("level", newCfg.Log.Level))
	}
	s.cfg = newCfg
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("大富翁游戏服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
