package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game/controller"
	"github.com/wfunc/monopoly-server/internal/game/engine"
	"github.com/wfunc/monopoly-server/internal/logger"
)

// GameSession 对局会话，*game.Session 满足该接口
type GameSession interface {
	Join(ctx context.Context, playerID string) ([]controller.Envelope, error)
	Dispatch(ctx context.Context, a engine.Action) ([]controller.Envelope, error)
}

// GameHandler WebSocket游戏消息处理器：把上行动作交给会话，再把产生的消息投递给在线玩家
type GameHandler struct {
	hub     *Hub
	session GameSession
	logger  *zap.Logger

	// 处理与投递在同一把锁内完成，玩家收到的批次顺序与处理顺序一致
	mu sync.Mutex
}

// NewGameHandler 创建游戏消息处理器
func NewGameHandler(hub *Hub, session GameSession, logger *zap.Logger) *GameHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameHandler{
		hub:     hub,
		session: session,
		logger:  logger,
	}
}

// Join 为新连接入座。座位已满等情况下发送错误帧并断开。
func (h *GameHandler) Join(ctx context.Context, client *Client) error {
	h.mu.Lock()
	out, err := h.session.Join(ctx, client.ID)
	h.hub.Deliver(out)
	h.mu.Unlock()

	if err != nil {
		h.logger.Info("玩家入座失败", zap.String("player", client.ID), zap.Error(err))
		h.hub.SendTo(client.ID, EncodeError(err))
		client.Close()
		return err
	}
	h.logger.Info("玩家入座", zap.String("player", client.ID))
	return nil
}

// HandleClientMessage 处理客户端消息
func (h *GameHandler) HandleClientMessage(client *Client, data []byte) {
	action, err := DecodeAction(data, client.ID)
	if err != nil {
		h.logger.Warn("解析消息失败", zap.String("player", client.ID), zap.Error(err))
		h.hub.SendTo(client.ID, EncodeError(err))
		// 断开发送无效消息的连接
		client.Close()
		return
	}

	logger.LogWebSocketMessage("receive", string(action.Verb), action.Parameters)

	h.mu.Lock()
	out, err := h.session.Dispatch(context.Background(), action)
	h.hub.Deliver(out)
	h.mu.Unlock()

	switch {
	case err == nil:
	case errors.IsIgnored(err):
		// 不允许的动作静默丢弃
		h.logger.Debug("动作被忽略",
			zap.String("player", client.ID),
			zap.String("action", string(action.Verb)),
			zap.Error(err))
	default:
		h.hub.SendTo(client.ID, EncodeError(err))
	}
}

// HandleDisconnect 连接断开，玩家保留座位
func (h *GameHandler) HandleDisconnect(client *Client) {
	h.logger.Info("玩家离线", zap.String("player", client.ID))
}
