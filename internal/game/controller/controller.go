// Package controller 编排层：修改游戏聚合并同步排队对外通知
package controller

import (
	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game/board"
	"github.com/wfunc/monopoly-server/internal/game/dice"
	"github.com/wfunc/monopoly-server/internal/game/state"
)

// Envelope 待投递的消息，To 为空表示广播
type Envelope struct {
	To string `json:"-"`
	state.Change
}

// Broadcast 是否为广播消息
func (e Envelope) Broadcast() bool {
	return e.To == ""
}

// Controller 唯一允许修改聚合的组件。
// 每次修改后立即把聚合的变更记录转入发件箱，修改不可能漏发。
type Controller struct {
	game   *state.Game
	dice   *dice.Dice
	goCash int
	logger *zap.Logger
	outbox []Envelope
}

// New 创建编排层
func New(game *state.Game, d *dice.Dice, goCash int, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{game: game, dice: d, goCash: goCash, logger: logger}
}

// Game 只读访问游戏聚合
func (c *Controller) Game() *state.Game {
	return c.game
}

// Dice 骰子
func (c *Controller) Dice() *dice.Dice {
	return c.dice
}

// Update 修改聚合并排队变更
func (c *Controller) Update(section state.Section, item any, attribute string, value any) (bool, error) {
	defer c.drain()
	return c.game.Update(section, item, attribute, value)
}

// AddPlayer 加入玩家并排队其全部属性
func (c *Controller) AddPlayer(id string) (state.Player, error) {
	defer c.drain()
	return c.game.AddPlayer(id)
}

func (c *Controller) drain() {
	for _, change := range c.game.DrainChanges() {
		c.outbox = append(c.outbox, Envelope{Change: change})
	}
}

func (c *Controller) player(id string) (state.Player, error) {
	p, ok := c.game.Player(id)
	if !ok {
		return state.Player{}, errors.New(errors.ErrPlayerNotFound, id)
	}
	return p, nil
}

// Pay 付款。payer 总是扣款；payee 为空表示付给银行，没有入账方。
// 不校验余额，余额为负时记录告警。
func (c *Controller) Pay(amount int, payer, payee string) error {
	from, err := c.player(payer)
	if err != nil {
		return err
	}
	balance := from.Cash - amount
	if _, err := c.Update(state.SectionPlayers, payer, state.AttrCash, balance); err != nil {
		return err
	}
	if balance < 0 {
		c.logger.Warn("玩家余额为负",
			zap.Int("seat", from.Seat),
			zap.Int("amount", amount),
			zap.Int("balance", balance),
		)
	}
	if payee == "" {
		return nil
	}
	return c.Collect(amount, payee)
}

// Collect 从银行收款
func (c *Controller) Collect(amount int, player string) error {
	p, err := c.player(player)
	if err != nil {
		return err
	}
	_, err = c.Update(state.SectionPlayers, player, state.AttrCash, p.Cash+amount)
	return err
}

// MoveTo 移动到指定格子。进入监狱设置入狱标记，从监狱离开时清除；
// checkPassGo 为真且目标格索引小于出发格时发放起点奖励。
func (c *Controller) MoveTo(field int, player string, checkPassGo bool) error {
	p, err := c.player(player)
	if err != nil {
		return err
	}
	origin := p.Field

	if _, err := c.Update(state.SectionPlayers, player, state.AttrField, field); err != nil {
		return err
	}
	switch {
	case field == board.Jail:
		if _, err := c.Update(state.SectionPlayers, player, state.AttrInJail, true); err != nil {
			return err
		}
	case origin == board.Jail:
		if _, err := c.Update(state.SectionPlayers, player, state.AttrInJail, false); err != nil {
			return err
		}
	}

	if checkPassGo && field < origin {
		c.logger.Debug("经过起点", zap.Int("seat", p.Seat), zap.Int("from", origin), zap.Int("to", field))
		return c.Collect(c.goCash, player)
	}
	return nil
}

// MoveBy 相对移动，目标格按棋盘长度取模
func (c *Controller) MoveBy(delta int, player string, checkPassGo bool) error {
	p, err := c.player(player)
	if err != nil {
		return err
	}
	return c.MoveTo(board.Advance(p.Field, delta), player, checkPassGo)
}

// BuyProperty 购买地产。price 为负时使用标价；款项付给当前所有者，无主时付给银行。
func (c *Controller) BuyProperty(field int, buyer string, price int) error {
	f := c.game.Board().Field(field)
	if f == nil || !f.IsProperty() {
		return errors.Newf(errors.ErrInvalidAttribute, "格子 %d 不可购买", field)
	}
	if price < 0 {
		price = f.Price()
	}
	if err := c.Pay(price, buyer, c.game.Owner(field)); err != nil {
		return err
	}
	_, err := c.Update(state.SectionFields, field, state.AttrOwner, buyer)
	return err
}

// Roll 掷骰并广播点数；登记的掷骰同时写入 last_roll
func (c *Controller) Roll(register bool) (dice.Roll, error) {
	r := c.dice.Roll(register)
	if register {
		if _, err := c.Update(state.SectionMisc, state.MiscLastRoll, "", r.Values()); err != nil {
			return r, err
		}
	}
	c.Event("roll", r.Values())
	return r, nil
}

// ResetDice 清空连续双数与最近掷骰
func (c *Controller) ResetDice() {
	c.dice.Reset()
}

// GrantJailCard 增加一张出狱卡
func (c *Controller) GrantJailCard(player string) error {
	p, err := c.player(player)
	if err != nil {
		return err
	}
	_, err = c.Update(state.SectionPlayers, player, state.AttrJailCards, p.JailCards+1)
	return err
}

// SendToJail 直接入狱，不经过起点
func (c *Controller) SendToJail(player string) error {
	if err := c.MoveTo(board.Jail, player, false); err != nil {
		return err
	}
	_, err := c.Update(state.SectionPlayers, player, state.AttrJailTurns, 0)
	return err
}

// Event 广播事件
func (c *Controller) Event(name string, value any) {
	c.outbox = append(c.outbox, Envelope{Change: state.Change{
		Section: state.SectionMisc, Item: state.MiscEvent, Attribute: name, Value: value,
	}})
}

// EventTo 向单个玩家发送事件
func (c *Controller) EventTo(player, name string, value any) {
	c.outbox = append(c.outbox, Envelope{To: player, Change: state.Change{
		Section: state.SectionMisc, Item: state.MiscEvent, Attribute: name, Value: value,
	}})
}

// Announce 广播一条非状态的 misc 信息，例如抽到的卡牌
func (c *Controller) Announce(item string, value any) {
	c.outbox = append(c.outbox, Envelope{Change: state.Change{
		Section: state.SectionMisc, Item: item, Value: value,
	}})
}

// Notify 向单个玩家发送 misc 信息，例如可执行动作
func (c *Controller) Notify(player, item string, value any) {
	c.outbox = append(c.outbox, Envelope{To: player, Change: state.Change{
		Section: state.SectionMisc, Item: item, Value: value,
	}})
}

// SendSnapshot 向单个玩家发送完整状态
func (c *Controller) SendSnapshot(player string) {
	for _, change := range c.game.Snapshot() {
		c.outbox = append(c.outbox, Envelope{To: player, Change: change})
	}
}

// Flush 取出并清空发件箱
func (c *Controller) Flush() []Envelope {
	c.drain()
	out := c.outbox
	c.outbox = nil
	return out
}

// 以下方法供卡牌效果使用

// OnTurn 当前行动玩家的内部标识
func (c *Controller) OnTurn() string {
	p, ok := c.game.OnTurn()
	if !ok {
		return ""
	}
	return p.ID
}

// Opponents 除当前行动者外的玩家，按座位顺序
func (c *Controller) Opponents() []string {
	current := c.OnTurn()
	var out []string
	for _, p := range c.game.Players() {
		if p.ID != current {
			out = append(out, p.ID)
		}
	}
	return out
}

// Position 玩家所在格子
func (c *Controller) Position(player string) int {
	p, ok := c.game.Player(player)
	if !ok {
		return -1
	}
	return p.Field
}

// NearestOfKind 向前最近的指定类型格子
func (c *Controller) NearestOfKind(position int, kind board.Kind) (int, bool) {
	return c.game.Board().NearestOfKind(position, kind)
}

// CountImprovements 玩家的房屋数与酒店数
func (c *Controller) CountImprovements(player string) (houses, hotels int) {
	return c.game.CountImprovements(player)
}
