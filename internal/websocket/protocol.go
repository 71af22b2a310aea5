package websocket

import (
	"encoding/json"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game/controller"
	"github.com/wfunc/monopoly-server/internal/game/engine"
	"github.com/wfunc/monopoly-server/internal/game/state"
)

// 客户端上行：{"action": "roll", "parameters": {...}}
// 服务端下行：变更记录数组 [{"section": ..., "item": ..., "attribute": ..., "value": ...}]
// 处理失败时下行 {"error": {...}}

// ErrorFrame 错误下行帧，不含调用栈
type ErrorFrame struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody 错误内容
type ErrorBody struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Details string           `json:"details,omitempty"`
}

// DecodeAction 解析客户端动作，actor 由连接决定而不是由客户端提供
func DecodeAction(data []byte, actor string) (engine.Action, error) {
	var a engine.Action
	if err := json.Unmarshal(data, &a); err != nil {
		return engine.Action{}, errors.Wrap(err, errors.ErrMessageFormat, "动作必须是 JSON 对象")
	}
	if a.Verb == "" {
		return engine.Action{}, errors.New(errors.ErrMessageFormat, "缺少 action 字段")
	}
	a.Actor = actor
	return a, nil
}

// EncodeChanges 编码一批变更记录，空批次返回 nil
func EncodeChanges(changes []state.Change) ([]byte, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrMessageFormat, "编码变更记录失败")
	}
	return data, nil
}

// EncodeError 编码错误帧
func EncodeError(err error) []byte {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	data, mErr := json.Marshal(ErrorFrame{Error: ErrorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
	if mErr != nil {
		return []byte(`{"error":{"code":1000}}`)
	}
	return data
}

// route 按接收者拆分一批消息：每位在线玩家得到广播与发给自己的消息，保持原有顺序
func route(batch []controller.Envelope, recipients []string) map[string][]state.Change {
	out := make(map[string][]state.Change, len(recipients))
	for _, id := range recipients {
		for _, env := range batch {
			if env.Broadcast() || env.To == id {
				out[id] = append(out[id], env.Change)
			}
		}
	}
	return out
}
