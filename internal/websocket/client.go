package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/config"
)

// 默认连接参数
const (
	// 写超时
	writeWait = 10 * time.Second

	// 读取pong超时
	pongWait = 60 * time.Second

	// 最大消息大小
	maxMessageSize = 8 * 1024

	// 发送缓冲帧数
	sendBuffer = 256
)

// MessageHandler 处理客户端上行消息
type MessageHandler interface {
	HandleClientMessage(client *Client, data []byte)
	HandleDisconnect(client *Client)
}

// Client 一条玩家连接，ID 即该连接在对局中的玩家标识
type Client struct {
	ID      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	handler MessageHandler

	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
}

// NewClient 创建新客户端，cfg 中未设置的项使用默认值
func NewClient(hub *Hub, conn *websocket.Conn, playerID string, handler MessageHandler, cfg config.WebSocketConfig) *Client {
	c := &Client{
		ID:             playerID,
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		handler:        handler,
		writeWait:      cfg.WriteTimeout,
		pongWait:       cfg.PongTimeout,
		pingPeriod:     cfg.PingInterval,
		maxMessageSize: cfg.MaxMessageSize,
	}
	if c.writeWait <= 0 {
		c.writeWait = writeWait
	}
	if c.pongWait <= 0 {
		c.pongWait = pongWait
	}
	// ping 周期必须小于 pong 超时
	if c.pingPeriod <= 0 || c.pingPeriod >= c.pongWait {
		c.pingPeriod = c.pongWait * 9 / 10
	}
	if c.maxMessageSize <= 0 {
		c.maxMessageSize = maxMessageSize
	}
	return c
}

// ReadPump 读取消息，连接断开后注销客户端
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		if c.handler != nil {
			c.handler.HandleDisconnect(c)
		}
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket读取错误",
					zap.String("player", c.ID),
					zap.Error(err))
			}
			return
		}
		if c.handler != nil {
			c.handler.HandleClientMessage(c, message)
		}
	}
}

// WritePump 写入消息。每帧是一个完整的 JSON 文档，不合并发送。
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				// Hub关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("WebSocket写入失败", zap.String("player", c.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close 关闭客户端连接
func (c *Client) Close() {
	c.hub.Unregister(c)
}
