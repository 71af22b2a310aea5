package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/config"
	ws "github.com/wfunc/monopoly-server/internal/websocket"
)

// WebSocketHandler WebSocket处理器
type WebSocketHandler struct {
	hub      *ws.Hub
	game     *ws.GameHandler
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, game *ws.GameHandler, cfg config.WebSocketConfig, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:  hub,
		game: game,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin:       checkOrigin(cfg.AllowedOrigins),
		},
		logger: logger,
	}
}

// checkOrigin 未配置白名单时允许任意来源
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

// GameWebSocket 游戏WebSocket连接，每条连接分配一个新的玩家标识并入座
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("ip", c.ClientIP()),
			zap.Error(err))
		return
	}

	playerID := uuid.NewString()
	client := ws.NewClient(h.hub, conn, playerID, h.game, h.cfg)

	// 先注册再入座，入座产生的消息才能送达
	h.hub.Register(client)
	go client.WritePump()

	if err := h.game.Join(context.Background(), client); err != nil {
		return
	}
	go client.ReadPump()

	h.logger.Info("WebSocket连接建立",
		zap.String("player", playerID),
		zap.String("ip", c.ClientIP()))
}

// GetOnlineCount 获取在线人数
// @Summary 在线连接数
// @Tags Game
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/online [get]
func (h *WebSocketHandler) GetOnlineCount(c *gin.Context) {
	respondOK(c, gin.H{"online": h.hub.GetOnlineCount()})
}
