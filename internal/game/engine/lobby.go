package engine

import (
	"math"

	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game/state"
)

// addPlayer 主机加入一名玩家：重置所有人的准备状态，向新玩家发送完整状态
func (e *Engine) addPlayer(a Action) (Stage, error) {
	id, _ := a.Parameters[ParamPlayerUUID].(string)
	if id == "" {
		return e.stage, errors.New(errors.ErrInvalidValue, "缺少 player_uuid")
	}
	if _, ok := e.game.Player(id); ok {
		return e.stage, errors.New(errors.ErrAlreadyExists, id)
	}
	if e.game.PlayerCount() >= e.rules.MaxPlayers {
		return e.stage, errors.Newf(errors.ErrGameFull, "最多 %d 名玩家", e.rules.MaxPlayers)
	}

	for _, p := range e.game.Players() {
		if _, err := e.ctl.Update(state.SectionPlayers, p.ID, state.AttrReady, false); err != nil {
			return e.stage, err
		}
	}
	p, err := e.ctl.AddPlayer(id)
	if err != nil {
		return e.stage, err
	}

	e.ctl.SendSnapshot(id)
	e.ctl.Notify(id, state.MiscPossibleActions, verbNames(e.PossibleActionsFor(id)))
	e.ctl.EventTo(id, "initialize", p.Seat)
	e.ctl.Event("player_connected", p.Seat)

	e.logger.Info("玩家加入",
		zap.Int("seat", p.Seat),
		zap.Int("players", e.game.PlayerCount()),
	)
	return StagePreGame, nil
}

// updatePlayer 玩家修改自己的名字、棋子或准备状态
func (e *Engine) updatePlayer(a Action) (Stage, error) {
	p, ok := e.game.Player(a.Actor)
	if !ok {
		return e.stage, errors.New(errors.ErrPlayerNotFound, a.Actor)
	}

	attribute, _ := a.Parameters[ParamAttribute].(string)
	switch attribute {
	case state.AttrName, state.AttrToken, state.AttrReady:
	default:
		e.logger.Warn("拒绝修改玩家属性",
			zap.Int("seat", p.Seat),
			zap.String("attribute", attribute),
		)
		return e.stage, errors.Newf(errors.ErrInvalidAttribute, "不可修改的属性 %q", attribute)
	}
	if item, ok := a.Parameters[ParamItem]; ok {
		if seat, ok := asInt(item); !ok || seat != p.Seat {
			e.logger.Warn("拒绝修改其他玩家",
				zap.Int("seat", p.Seat),
				zap.Any("item", item),
			)
			return e.stage, errors.Newf(errors.ErrActionNotPermitted, "座位 %d 不能修改 %v", p.Seat, item)
		}
	}

	changed, err := e.ctl.Update(state.SectionPlayers, a.Actor, attribute, a.Parameters[ParamValue])
	if err != nil {
		return e.stage, err
	}
	if !changed {
		return StagePreGame, nil
	}
	e.ctl.Event("player_updated", p.Seat)

	if attribute == state.AttrReady && e.canStart() {
		return e.startGame()
	}
	return StagePreGame, nil
}

func (e *Engine) canStart() bool {
	return e.game.PlayerCount() >= e.rules.MinPlayers && e.game.AllReady()
}

// startGame 分配初始资金与位置，洗一次行动顺位并固定到对局结束
func (e *Engine) startGame() (Stage, error) {
	if !e.canStart() {
		e.logger.Warn("开始条件不满足",
			zap.Int("players", e.game.PlayerCount()),
			zap.Bool("all_ready", e.game.AllReady()),
		)
		return e.stage, errors.New(errors.ErrActionNotPermitted, "玩家未全部准备")
	}

	players := e.game.Players()
	order := make([]int, len(players))
	for i, p := range players {
		if _, err := e.ctl.Update(state.SectionPlayers, p.ID, state.AttrCash, e.rules.InitialCash); err != nil {
			return e.stage, err
		}
		if _, err := e.ctl.Update(state.SectionPlayers, p.ID, state.AttrField, e.rules.InitialField); err != nil {
			return e.stage, err
		}
		order[i] = p.Seat
	}
	e.shuffler.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	if _, err := e.ctl.Update(state.SectionMisc, state.MiscPlayerOrder, "", order); err != nil {
		return e.stage, err
	}
	if _, err := e.ctl.Update(state.SectionMisc, state.MiscOnTurn, "", order[0]); err != nil {
		return e.stage, err
	}
	if _, err := e.ctl.Update(state.SectionMisc, state.MiscStatus, "", state.StatusPlaying); err != nil {
		return e.stage, err
	}
	e.ctl.Event("game_started", order)
	e.ctl.Event("begin_turn", order[0])

	e.logger.Info("对局开始", zap.Ints("order", order))
	return StageBeginTurn, nil
}

// asInt 接受 JSON 解码得到的数字
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
