package engine

// Stage 回合状态机的阶段
type Stage int

// 等待客户端输入的阶段
const (
	StagePreGame Stage = iota
	StageBeginTurn
	StageInJail
	StageRentRoll
	StageBuyingDecision
	StageEndTurn
)

// 动作被接受后同步执行的瞬时阶段
const (
	StageRolling Stage = iota + 100
	StageTripleDouble
	StageMoving
	StageMoved
	StageOnProperty
	StagePayRent
	StagePayTax
	StageOnCard
	StageGoToJail
	StageEndRoll
	StageRollInJail
	StageLeavingJail
	StagePayout
	StageUseCard
	StageRentRolling
	StageBuyingProperty
	StageAuctioning
	StageEndTurnConfirmed
)

var stageNames = map[Stage]string{
	StagePreGame:          "pre_game",
	StageBeginTurn:        "begin_turn",
	StageInJail:           "in_jail",
	StageRentRoll:         "rent_roll",
	StageBuyingDecision:   "buying_decision",
	StageEndTurn:          "end_turn",
	StageRolling:          "rolling",
	StageTripleDouble:     "triple_double",
	StageMoving:           "moving",
	StageMoved:            "moved",
	StageOnProperty:       "on_property",
	StagePayRent:          "pay_rent",
	StagePayTax:           "pay_tax",
	StageOnCard:           "on_card",
	StageGoToJail:         "go_to_jail",
	StageEndRoll:          "end_roll",
	StageRollInJail:       "roll_in_jail",
	StageLeavingJail:      "leaving_jail",
	StagePayout:           "payout",
	StageUseCard:          "use_card",
	StageRentRolling:      "rent_rolling",
	StageBuyingProperty:   "buying_property",
	StageAuctioning:       "auctioning",
	StageEndTurnConfirmed: "end_turn_confirmed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// AwaitsInput 是否为等待输入的阶段
func (s Stage) AwaitsInput() bool {
	return s >= StagePreGame && s <= StageEndTurn
}

// transitionKey 输入阶段收到动作后的转换键
type transitionKey struct {
	stage Stage
	verb  Verb
}

// inputTransitions 输入阶段 + 动作 → 第一个瞬时阶段。
// 大厅动作由 lobby.go 单独处理。
var inputTransitions = map[transitionKey]Stage{
	{StageBeginTurn, ActionRoll}:         StageRolling,
	{StageInJail, ActionRoll}:            StageRollInJail,
	{StageInJail, ActionPayout}:          StagePayout,
	{StageInJail, ActionUseCard}:         StageUseCard,
	{StageRentRoll, ActionRoll}:          StageRentRolling,
	{StageBuyingDecision, ActionBuy}:     StageBuyingProperty,
	{StageBuyingDecision, ActionAuction}: StageAuctioning,
	{StageEndTurn, ActionEndTurn}:        StageEndTurnConfirmed,
}

// handler 瞬时阶段处理函数，返回下一阶段
type handler func() (Stage, error)

func (e *Engine) handlers() map[Stage]handler {
	return map[Stage]handler{
		StageRolling:          e.rolling,
		StageTripleDouble:     e.tripleDouble,
		StageMoving:           e.moving,
		StageMoved:            e.moved,
		StageOnProperty:       e.onProperty,
		StagePayRent:          e.payRent,
		StagePayTax:           e.payTax,
		StageOnCard:           e.onCard,
		StageGoToJail:         e.goToJail,
		StageEndRoll:          e.endRoll,
		StageRollInJail:       e.rollInJail,
		StageLeavingJail:      e.leavingJail,
		StagePayout:           e.payout,
		StageUseCard:          e.useCard,
		StageRentRolling:      e.rentRolling,
		StageBuyingProperty:   e.buyingProperty,
		StageAuctioning:       e.auctioning,
		StageEndTurnConfirmed: e.endTurnConfirmed,
	}
}
