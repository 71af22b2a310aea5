package engine

import (
	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game/board"
	"github.com/wfunc/monopoly-server/internal/game/cards"
	"github.com/wfunc/monopoly-server/internal/game/dice"
	"github.com/wfunc/monopoly-server/internal/game/state"
)

// 回合内的瞬时阶段。每个函数只依据当前阶段和聚合状态决定下一阶段。

func (e *Engine) rolling() (Stage, error) {
	if _, err := e.ctl.Roll(true); err != nil {
		return 0, err
	}
	if e.ctl.Dice().TripleDouble() {
		return StageTripleDouble, nil
	}
	return StageMoving, nil
}

func (e *Engine) tripleDouble() (Stage, error) {
	p, err := e.actor()
	if err != nil {
		return 0, err
	}
	e.ctl.Event("triple_double", p.Seat)
	e.logger.Info("连续三次双数", zap.Int("seat", p.Seat))
	return StageGoToJail, nil
}

func (e *Engine) moving() (Stage, error) {
	p, err := e.actor()
	if err != nil {
		return 0, err
	}
	if err := e.ctl.MoveBy(e.ctl.Dice().LastRoll().Sum(), p.ID, true); err != nil {
		return 0, err
	}
	return StageMoved, nil
}

// moved 按落点类型分派
func (e *Engine) moved() (Stage, error) {
	p, f, err := e.landed()
	if err != nil {
		return 0, err
	}
	e.ctl.Event("moved", f.Index)

	switch {
	case f.Kind.IsInactive():
		return StageEndRoll, nil
	case f.Kind.IsProperty():
		return StageOnProperty, nil
	case f.Kind.IsCard():
		return StageOnCard, nil
	case f.Kind == board.KindTax:
		return StagePayTax, nil
	case f.Kind == board.KindGoToJail:
		return StageGoToJail, nil
	default:
		e.logger.Warn("意外落在监狱格",
			zap.Int("seat", p.Seat),
			zap.Int("field", f.Index),
			zap.String("kind", f.Kind.String()),
		)
		return StageEndRoll, nil
	}
}

func (e *Engine) onProperty() (Stage, error) {
	p, f, err := e.landed()
	if err != nil {
		return 0, err
	}
	switch e.game.Owner(f.Index) {
	case "":
		e.ctl.Event("buying_decision", f.Index)
		return StageBuyingDecision, nil
	case p.ID:
		return StageEndRoll, nil
	default:
		return StagePayRent, nil
	}
}

func (e *Engine) payRent() (Stage, error) {
	p, f, err := e.landed()
	if err != nil {
		return 0, err
	}
	if deed, _ := e.game.Deed(f.Index); deed.Mortgaged {
		e.logger.Debug("地产已抵押，免租", zap.Int("field", f.Index))
		e.clearRentModifiers()
		return StageEndRoll, nil
	}

	var rent int
	switch e.specialRent {
	case cards.RentTenTimesRoll:
		if e.extraRoll.IsZero() {
			e.ctl.Event("rent_roll", f.Index)
			return StageRentRoll, nil
		}
		rent = 10 * e.extraRoll.Sum()
	default:
		rent = e.game.Rent(f.Index)
		if f.Kind == board.KindUtility {
			rent *= e.ctl.Dice().LastRoll().Sum()
		}
		if e.specialRent == cards.RentDouble {
			rent *= 2
		}
	}

	owner := e.game.Owner(f.Index)
	if err := e.ctl.Pay(rent, p.ID, owner); err != nil {
		return 0, err
	}
	ownerSeat := -1
	if o, ok := e.game.Player(owner); ok {
		ownerSeat = o.Seat
	}
	e.ctl.Event("rent_paid", map[string]int{"from": p.Seat, "to": ownerSeat, "amount": rent})
	e.clearRentModifiers()
	return StageEndRoll, nil
}

func (e *Engine) clearRentModifiers() {
	e.specialRent = cards.RentNormal
	e.extraRoll = dice.Roll{}
}

func (e *Engine) payTax() (Stage, error) {
	p, f, err := e.landed()
	if err != nil {
		return 0, err
	}
	if err := e.ctl.Pay(f.Tax, p.ID, ""); err != nil {
		return 0, err
	}
	e.ctl.Event("tax_paid", f.Tax)
	return StageEndRoll, nil
}

// onCard 抽卡并执行。移动卡重新按新落点分派；租金修正留给下一次收租。
func (e *Engine) onCard() (Stage, error) {
	p, f, err := e.landed()
	if err != nil {
		return 0, err
	}
	kind, ok := cards.DeckFor(f.Kind)
	if !ok {
		return 0, errors.Newf(errors.ErrUnexpectedState, "格子 %d 不是抽卡格", f.Index)
	}
	card := e.decks[kind].Draw()
	e.ctl.Announce(state.MiscCard, []any{card.ID, card.Text})
	e.ctl.Event("card", string(kind))
	e.logger.Debug("抽卡",
		zap.Int("seat", p.Seat),
		zap.String("deck", string(kind)),
		zap.Int("card", card.ID),
	)

	if err := card.Apply(e.ctl); err != nil {
		return 0, err
	}
	if card.SpecialRent != cards.RentNormal {
		e.specialRent = card.SpecialRent
	}

	switch {
	case card.IsMove():
		return StageMoved, nil
	case card.Category == cards.CategoryGoToJail:
		return StageGoToJail, nil
	case card.EndsTurn:
		return e.endTurn()
	default:
		return StageEndRoll, nil
	}
}

func (e *Engine) goToJail() (Stage, error) {
	p, err := e.actor()
	if err != nil {
		return 0, err
	}
	if err := e.ctl.SendToJail(p.ID); err != nil {
		return 0, err
	}
	e.ctl.Event("go_to_jail", p.Seat)
	e.logger.Info("入狱", zap.Int("seat", p.Seat))
	return e.endTurn()
}

// endRoll 掷出双数时同一玩家再掷一次，骰子连续计数保留
func (e *Engine) endRoll() (Stage, error) {
	if e.ctl.Dice().LastRoll().IsDouble() {
		p, err := e.actor()
		if err != nil {
			return 0, err
		}
		e.ctl.Event("end_roll", p.Seat)
		return StageBeginTurn, nil
	}
	return e.endTurn()
}

// endTurn 等待当前玩家确认结束回合
func (e *Engine) endTurn() (Stage, error) {
	p, err := e.actor()
	if err != nil {
		return 0, err
	}
	e.ctl.Event("end_turn", p.Seat)
	return StageEndTurn, nil
}

func (e *Engine) rollInJail() (Stage, error) {
	p, err := e.actor()
	if err != nil {
		return 0, err
	}
	r, err := e.ctl.Roll(false)
	if err != nil {
		return 0, err
	}
	e.ctl.Event("roll_in_jail", r.Values())
	if r.IsDouble() {
		return StageLeavingJail, nil
	}
	if _, err := e.ctl.Update(state.SectionPlayers, p.ID, state.AttrJailTurns, p.JailTurns+1); err != nil {
		return 0, err
	}
	return e.endTurn()
}

func (e *Engine) leavingJail() (Stage, error) {
	p, err := e.actor()
	if err != nil {
		return 0, err
	}
	if _, err := e.ctl.Update(state.SectionPlayers, p.ID, state.AttrInJail, false); err != nil {
		return 0, err
	}
	if _, err := e.ctl.Update(state.SectionPlayers, p.ID, state.AttrJailTurns, 0); err != nil {
		return 0, err
	}
	if err := e.ctl.MoveTo(board.JustVisiting, p.ID, false); err != nil {
		return 0, err
	}
	e.ctl.Event("leaving_jail", p.Seat)
	return StageBeginTurn, nil
}

func (e *Engine) payout() (Stage, error) {
	p, err := e.actor()
	if err != nil {
		return 0, err
	}
	if err := e.ctl.Pay(e.rules.JailFine, p.ID, ""); err != nil {
		return 0, err
	}
	e.ctl.Event("payout", e.rules.JailFine)
	return StageLeavingJail, nil
}

func (e *Engine) useCard() (Stage, error) {
	p, err := e.actor()
	if err != nil {
		return 0, err
	}
	if _, err := e.ctl.Update(state.SectionPlayers, p.ID, state.AttrJailCards, p.JailCards-1); err != nil {
		return 0, err
	}
	e.ctl.Event("use_card", p.Seat)
	return StageLeavingJail, nil
}

// rentRolling 十倍掷骰租金的附加掷骰，不登记
func (e *Engine) rentRolling() (Stage, error) {
	r, err := e.ctl.Roll(false)
	if err != nil {
		return 0, err
	}
	e.extraRoll = r
	return StagePayRent, nil
}

func (e *Engine) buyingProperty() (Stage, error) {
	p, f, err := e.landed()
	if err != nil {
		return 0, err
	}
	if err := e.ctl.BuyProperty(f.Index, p.ID, -1); err != nil {
		return 0, err
	}
	e.ctl.Event("property_bought", f.Index)
	e.logger.Info("购买地产",
		zap.Int("seat", p.Seat),
		zap.String("field", f.Name),
		zap.Int("price", f.Price()),
	)
	return StageEndRoll, nil
}

// auctioning 放弃购买，地产保持无主
func (e *Engine) auctioning() (Stage, error) {
	_, f, err := e.landed()
	if err != nil {
		return 0, err
	}
	e.ctl.Event("auction", f.Index)
	return StageEndRoll, nil
}

// endTurnConfirmed 按固定顺位交给下一位玩家，每回合开始时重置骰子
func (e *Engine) endTurnConfirmed() (Stage, error) {
	seat, ok := e.game.NextInOrder()
	if !ok {
		return 0, errors.New(errors.ErrGameNotStarted, "没有行动顺位")
	}
	if _, err := e.ctl.Update(state.SectionMisc, state.MiscOnTurn, "", seat); err != nil {
		return 0, err
	}
	e.ctl.ResetDice()
	if _, err := e.ctl.Update(state.SectionMisc, state.MiscLastRoll, "", []int{}); err != nil {
		return 0, err
	}
	e.clearRentModifiers()
	e.ctl.Event("begin_turn", seat)

	next, err := e.actor()
	if err != nil {
		return 0, err
	}
	if next.InJail {
		return StageInJail, nil
	}
	return StageBeginTurn, nil
}

// landed 当前玩家及其所在格子
func (e *Engine) landed() (state.Player, *board.Field, error) {
	p, err := e.actor()
	if err != nil {
		return p, nil, err
	}
	f := e.game.Board().Field(p.Field)
	if f == nil {
		return p, nil, errors.Newf(errors.ErrUnexpectedState, "座位 %d 位置无效: %d", p.Seat, p.Field)
	}
	return p, f, nil
}
