package websocket

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/game/controller"
)

// Hub WebSocket连接管理中心，按玩家标识索引连接
type Hub struct {
	clients   map[string]*Client
	clientsMu sync.RWMutex

	logger *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register 注册客户端，须在对其投递消息之前完成
func (h *Hub) Register(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端连接", zap.String("player", client.ID))
}

// Unregister 注销客户端并关闭其发送通道，可重复调用
func (h *Hub) Unregister(client *Client) {
	h.clientsMu.Lock()
	current, ok := h.clients[client.ID]
	if ok && current == client {
		delete(h.clients, client.ID)
		close(client.send)
	}
	h.clientsMu.Unlock()

	if ok && current == client {
		h.logger.Info("WebSocket客户端断开", zap.String("player", client.ID))
	}
}

// Deliver 投递一批消息：广播发给所有在线玩家，定向消息只发给接收者
func (h *Hub) Deliver(batch []controller.Envelope) {
	if len(batch) == 0 {
		return
	}

	h.clientsMu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.clientsMu.RUnlock()

	var slow []*Client
	for id, changes := range route(batch, ids) {
		data, err := EncodeChanges(changes)
		if err != nil {
			h.logger.Error("序列化消息失败", zap.String("player", id), zap.Error(err))
			continue
		}
		if data == nil {
			continue
		}
		if client := h.trySend(id, data); client != nil {
			slow = append(slow, client)
		}
	}

	// 丢帧会让客户端视图与聚合不一致，直接断开
	for _, client := range slow {
		h.logger.Warn("客户端发送缓冲区满，断开连接", zap.String("player", client.ID))
		h.Unregister(client)
	}
}

// SendTo 发送原始帧给指定玩家
func (h *Hub) SendTo(playerID string, data []byte) bool {
	client := h.trySend(playerID, data)
	if client != nil {
		h.Unregister(client)
		return false
	}
	h.clientsMu.RLock()
	_, ok := h.clients[playerID]
	h.clientsMu.RUnlock()
	return ok
}

// trySend 非阻塞发送，缓冲区满时返回该客户端
func (h *Hub) trySend(playerID string, data []byte) *Client {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	client, ok := h.clients[playerID]
	if !ok {
		return nil
	}
	select {
	case client.send <- data:
		return nil
	default:
		return client
	}
}

// GetOnlineCount 获取在线人数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// IsOnline 玩家是否在线
func (h *Hub) IsOnline(playerID string) bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	_, ok := h.clients[playerID]
	return ok
}

// Shutdown 断开所有客户端
func (h *Hub) Shutdown() {
	h.clientsMu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	for _, client := range clients {
		close(client.send)
	}
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket连接已全部关闭", zap.Int("count", len(clients)))
}
