package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game/board"
	"github.com/wfunc/monopoly-server/internal/game/cards"
	"github.com/wfunc/monopoly-server/internal/game/controller"
	"github.com/wfunc/monopoly-server/internal/game/dice"
	"github.com/wfunc/monopoly-server/internal/game/state"
)

const host = "host-uuid"

// EngineTestSuite 回合状态机场景测试
type EngineTestSuite struct {
	suite.Suite
	dice   *dice.ScriptedSource
	engine *Engine
}

func (s *EngineTestSuite) SetupTest() {
	s.dice = dice.Scripted()
	s.engine = New(Options{
		Rules:  DefaultRules(),
		Host:   host,
		Dice:   s.dice,
		Logger: zap.NewNop(),
	})
	s.engine.Flush()
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) do(actor string, verb Verb, params map[string]any) {
	s.T().Helper()
	s.Require().NoError(s.engine.Handle(Action{Actor: actor, Verb: verb, Parameters: params}))
}

func (s *EngineTestSuite) join(ids ...string) {
	for _, id := range ids {
		s.do(host, ActionAddPlayer, map[string]any{ParamPlayerUUID: id})
	}
}

func (s *EngineTestSuite) ready(id string) {
	s.do(id, ActionUpdatePlayer, map[string]any{ParamAttribute: state.AttrToken, ParamValue: "hat-" + id})
	s.do(id, ActionUpdatePlayer, map[string]any{ParamAttribute: state.AttrReady, ParamValue: true})
}

// start 两名玩家 a、b 入座并开始，顺位为 a、b
func (s *EngineTestSuite) start() {
	s.join("a", "b")
	s.ready("a")
	s.ready("b")
	s.Require().Equal(StageBeginTurn, s.engine.Stage())
	s.engine.Flush()
}

func (s *EngineTestSuite) roll(actor string, faces ...int) {
	s.dice.Push(faces...)
	s.do(actor, ActionRoll, nil)
}

func (s *EngineTestSuite) player(id string) state.Player {
	p, ok := s.engine.Game().Player(id)
	s.Require().True(ok)
	return p
}

// passTurn 掷骰，遇到购买决定时放弃，然后结束回合
func (s *EngineTestSuite) passTurn(actor string, faces ...int) {
	s.roll(actor, faces...)
	if s.engine.Stage() == StageBuyingDecision {
		s.do(actor, ActionAuction, nil)
	}
	s.Require().Equal(StageEndTurn, s.engine.Stage())
	s.do(actor, ActionEndTurn, nil)
}

// jailFirstPlayer a 连续三次掷出双数入狱
func (s *EngineTestSuite) jailFirstPlayer() {
	s.roll("a", 3, 3) // 6 天使街
	s.do("a", ActionAuction, nil)
	s.Require().Equal(StageBeginTurn, s.engine.Stage())
	s.roll("a", 3, 3) // 12 电力公司
	s.do("a", ActionAuction, nil)
	s.Require().Equal(StageBeginTurn, s.engine.Stage())
	s.roll("a", 3, 3)
}

func (s *EngineTestSuite) events(out []controller.Envelope) []string {
	var names []string
	for _, e := range out {
		if e.Section == state.SectionMisc && e.Item == state.MiscEvent {
			names = append(names, e.Attribute)
		}
	}
	return names
}

func (s *EngineTestSuite) TestJoinSendsSnapshotToJoiner() {
	s.join("a")
	out := s.engine.Flush()

	var addressed, initialize int
	for _, e := range out {
		if e.To == "a" {
			addressed++
			if e.Attribute == "initialize" {
				initialize++
				s.Equal(0, e.Value)
			}
		}
	}
	s.Equal(1, initialize)
	s.Greater(addressed, 28*3)
	s.Contains(s.events(out), "player_connected")
	s.Equal(StagePreGame, s.engine.Stage())
}

func (s *EngineTestSuite) TestAddPlayerIsHostOnly() {
	s.join("a")
	s.engine.Flush()

	err := s.engine.Handle(Action{Actor: "a", Verb: ActionAddPlayer, Parameters: map[string]any{ParamPlayerUUID: "x"}})
	s.True(errors.Is(err, errors.ErrActionNotPermitted))
	s.True(errors.IsIgnored(err))
	s.Empty(s.engine.Flush())
	s.Equal(1, s.engine.Game().PlayerCount())
}

func (s *EngineTestSuite) TestAddPlayerRespectsCapacity() {
	s.join("a", "b", "c", "d")
	s.engine.Flush()

	err := s.engine.Handle(Action{Actor: host, Verb: ActionAddPlayer, Parameters: map[string]any{ParamPlayerUUID: "e"}})
	s.True(errors.Is(err, errors.ErrGameFull))
	s.Empty(s.engine.Flush())

	err = s.engine.Handle(Action{Actor: host, Verb: ActionAddPlayer, Parameters: map[string]any{ParamPlayerUUID: "a"}})
	s.True(errors.IsIgnored(err))
}

func (s *EngineTestSuite) TestJoinResetsReadiness() {
	s.join("a")
	s.ready("a")
	s.True(s.player("a").Ready)

	s.join("b")
	s.False(s.player("a").Ready)
	s.Equal(StagePreGame, s.engine.Stage())
}

func (s *EngineTestSuite) TestUpdatePlayerRejectsProtectedAttribute() {
	s.join("a")
	s.engine.Flush()

	err := s.engine.Handle(Action{Actor: "a", Verb: ActionUpdatePlayer, Parameters: map[string]any{
		ParamAttribute: state.AttrCash, ParamValue: 1_000_000,
	}})
	s.True(errors.Is(err, errors.ErrInvalidAttribute))
	s.Empty(s.engine.Flush())
	s.Zero(s.player("a").Cash)
}

func (s *EngineTestSuite) TestUpdatePlayerOnlyOwnSeat() {
	s.join("a", "b")
	s.engine.Flush()

	err := s.engine.Handle(Action{Actor: "a", Verb: ActionUpdatePlayer, Parameters: map[string]any{
		ParamItem: float64(1), ParamAttribute: state.AttrName, ParamValue: "Mallory",
	}})
	s.True(errors.IsIgnored(err))
	s.Equal("Player 2", s.player("b").Name)

	s.do("a", ActionUpdatePlayer, map[string]any{
		ParamItem: float64(0), ParamAttribute: state.AttrName, ParamValue: "Alice",
	})
	s.Equal("Alice", s.player("a").Name)
	s.Contains(s.events(s.engine.Flush()), "player_updated")
}

func (s *EngineTestSuite) TestStartRequiresTwoReadyPlayers() {
	s.join("a")
	s.ready("a")
	s.Equal(StagePreGame, s.engine.Stage())

	err := s.engine.Handle(Action{Actor: "a", Verb: ActionStartGame})
	s.True(errors.Is(err, errors.ErrActionNotPermitted))

	s.join("b")
	s.do("b", ActionUpdatePlayer, map[string]any{ParamAttribute: state.AttrReady, ParamValue: true})
	// 未选棋子不能开始
	s.Equal(StagePreGame, s.engine.Stage())
}

func (s *EngineTestSuite) TestStartAssignsCashAndOrder() {
	s.start()

	for _, id := range []string{"a", "b"} {
		p := s.player(id)
		s.Equal(1500, p.Cash)
		s.Equal(board.GoField, p.Field)
	}
	s.Equal([]int{0, 1}, s.engine.Game().TurnOrder())
	s.Equal(state.StatusPlaying, s.engine.Game().Status())
	s.Equal([]Verb{ActionRoll}, s.engine.PossibleActionsFor("a"))
	s.Empty(s.engine.PossibleActionsFor("b"))
	s.Empty(s.engine.PossibleActionsFor(host))
}

func (s *EngineTestSuite) TestUnauthorizedActionsAreIgnored() {
	s.start()

	tests := []Action{
		{Actor: "b", Verb: ActionRoll},
		{Actor: "a", Verb: ActionBuy},
		{Actor: "a", Verb: ActionStartGame},
		{Actor: "stranger", Verb: ActionRoll},
		{Actor: host, Verb: ActionAddPlayer, Parameters: map[string]any{ParamPlayerUUID: "late"}},
		{Actor: "a", Verb: Verb("teleport")},
	}
	for _, a := range tests {
		err := s.engine.Handle(a)
		s.Error(err, a.Verb)
		s.True(errors.IsIgnored(err), a.Verb)
		s.Equal(StageBeginTurn, s.engine.Stage())
		s.Empty(s.engine.Flush())
	}
}

func (s *EngineTestSuite) TestUnownedStreetOffersBuyOrAuction() {
	s.start()
	s.roll("a", 1, 2)

	s.Equal(3, s.player("a").Field)
	s.Equal(StageBuyingDecision, s.engine.Stage())
	s.Equal([]Verb{ActionAuction, ActionBuy}, s.engine.PossibleActionsFor("a"))
	s.Empty(s.engine.PossibleActionsFor("b"))
}

func (s *EngineTestSuite) TestBuyStreet() {
	s.start()
	s.roll("a", 1, 2)
	s.engine.Flush()

	s.do("a", ActionBuy, nil)
	s.Equal(1440, s.player("a").Cash)
	s.Equal("a", s.engine.Game().Owner(3))
	s.Equal([]Stage{StageBuyingDecision, StageBuyingProperty, StageEndRoll, StageEndTurn}, s.engine.Transitions())
	s.Equal([]Verb{ActionEndTurn}, s.engine.PossibleActionsFor("a"))
}

func (s *EngineTestSuite) TestAuctionLeavesPropertyUnowned() {
	s.start()
	s.roll("a", 1, 2)
	s.do("a", ActionAuction, nil)

	s.Empty(s.engine.Game().Owner(3))
	s.Equal(1500, s.player("a").Cash)
	s.Equal(StageEndTurn, s.engine.Stage())
}

func (s *EngineTestSuite) TestEndTurnPassesToNextInOrder() {
	s.start()
	s.passTurn("a", 1, 2)

	current, ok := s.engine.Game().OnTurn()
	s.Require().True(ok)
	s.Equal("b", current.ID)
	s.Equal(StageBeginTurn, s.engine.Stage())
	s.Empty(s.engine.Game().LastRoll())
	s.Zero(s.engine.ctl.Dice().Doubles())
}

func (s *EngineTestSuite) TestRentIsPaidToOwner() {
	s.start()
	s.roll("a", 1, 2)
	s.do("a", ActionBuy, nil)
	s.do("a", ActionEndTurn, nil)

	s.roll("b", 1, 2)
	s.Contains(s.engine.Transitions(), StagePayRent)
	s.Equal(1496, s.player("b").Cash)
	s.Equal(1444, s.player("a").Cash)
	s.Contains(s.events(s.engine.Flush()), "rent_paid")
}

func (s *EngineTestSuite) TestMortgagedRentTransfersNothing() {
	s.start()
	s.roll("a", 1, 2)
	s.do("a", ActionBuy, nil)
	s.do("a", ActionEndTurn, nil)
	_, err := s.engine.ctl.Update(state.SectionFields, 3, state.AttrMortgage, true)
	s.Require().NoError(err)

	s.roll("b", 1, 2)
	s.Contains(s.engine.Transitions(), StagePayRent)
	s.Equal(1500, s.player("b").Cash)
	s.Equal(1440, s.player("a").Cash)
	s.Equal(StageEndTurn, s.engine.Stage())
}

func (s *EngineTestSuite) TestUtilityRentUsesMovementRoll() {
	s.start()
	s.Require().NoError(s.engine.ctl.BuyProperty(12, "b", -1))

	s.roll("a", 6, 6)
	// 持有一家公用事业：4 倍点数
	s.Equal(1500-48, s.player("a").Cash)
	s.Equal(1500-150+48, s.player("b").Cash)
	// 双数再掷一次
	s.Equal(StageBeginTurn, s.engine.Stage())
}

func (s *EngineTestSuite) TestDoubleRentModifier() {
	s.start()
	s.Require().NoError(s.engine.ctl.BuyProperty(5, "b", -1))
	s.Require().NoError(s.engine.ctl.MoveTo(5, "a", false))
	s.engine.specialRent = cards.RentDouble

	s.Require().NoError(s.engine.run(StagePayRent))
	s.Equal(1450, s.player("a").Cash)
	s.Equal(cards.RentNormal, s.engine.specialRent)
}

func (s *EngineTestSuite) TestTenTimesRollRentAwaitsExtraRoll() {
	s.start()
	s.Require().NoError(s.engine.ctl.BuyProperty(12, "b", -1))
	s.Require().NoError(s.engine.ctl.MoveTo(12, "a", false))
	s.engine.specialRent = cards.RentTenTimesRoll

	s.Require().NoError(s.engine.run(StagePayRent))
	s.Equal(StageRentRoll, s.engine.Stage())
	s.Equal([]Verb{ActionRoll}, s.engine.PossibleActionsFor("a"))

	s.roll("a", 2, 3)
	s.Equal(1450, s.player("a").Cash)
	s.Equal(1400, s.player("b").Cash)
	// 附加掷骰不登记
	s.Empty(s.engine.Game().LastRoll())
	s.Equal(StageEndTurn, s.engine.Stage())
}

func (s *EngineTestSuite) TestTaxIsPaidToBank() {
	s.start()
	s.roll("a", 1, 3)

	s.Equal(1300, s.player("a").Cash)
	s.Equal([]Stage{StageBeginTurn, StageRolling, StageMoving, StageMoved, StagePayTax, StageEndRoll, StageEndTurn},
		s.engine.Transitions())
}

func (s *EngineTestSuite) TestDoubleRollsAgain() {
	s.start()
	s.roll("a", 2, 2)

	s.Equal(StageBeginTurn, s.engine.Stage())
	current, _ := s.engine.Game().OnTurn()
	s.Equal("a", current.ID)
	s.Equal(1, s.engine.ctl.Dice().Doubles())
}

func (s *EngineTestSuite) TestCardIsAnnouncedAndApplied() {
	s.start()
	s.roll("a", 3, 4)

	// 未洗牌时第一张机会卡为前进到起点
	p := s.player("a")
	s.Equal(board.GoField, p.Field)
	s.Equal(1700, p.Cash)
	s.Equal(StageEndTurn, s.engine.Stage())

	out := s.engine.Flush()
	var card []any
	for _, e := range out {
		if e.Item == state.MiscCard {
			card, _ = e.Value.([]any)
		}
	}
	s.Require().Len(card, 2)
	s.Equal(0, card[0])
	s.Contains(s.events(out), "card")
}

func (s *EngineTestSuite) TestPassGoCreditedOnce() {
	s.start()
	s.Require().NoError(s.engine.ctl.MoveTo(37, "a", false))

	s.roll("a", 1, 3)
	p := s.player("a")
	s.Equal(1, p.Field)
	s.Equal(1700, p.Cash)
}

func (s *EngineTestSuite) TestTripleDoubleSendsToJail() {
	s.start()
	s.jailFirstPlayer()

	s.Equal([]Stage{StageBeginTurn, StageRolling, StageTripleDouble, StageGoToJail, StageEndTurn}, s.engine.Transitions())
	p := s.player("a")
	s.True(p.InJail)
	s.Equal(board.Jail, p.Field)
	s.Equal([]Verb{ActionEndTurn}, s.engine.PossibleActionsFor("a"))
}

func (s *EngineTestSuite) TestJailedPlayerMustPayAfterThreeFailures() {
	s.start()
	s.jailFirstPlayer()
	s.do("a", ActionEndTurn, nil)

	bFaces := [][]int{{1, 2}, {1, 2}, {1, 2}}
	for i := 0; i < 3; i++ {
		s.passTurn("b", bFaces[i]...)
		s.Require().Equal(StageInJail, s.engine.Stage())
		s.Contains(s.engine.PossibleActionsFor("a"), ActionRoll)

		s.roll("a", 1, 2)
		s.Equal(i+1, s.player("a").JailTurns)
		s.Equal(board.Jail, s.player("a").Field)
		s.do("a", ActionEndTurn, nil)
	}

	s.passTurn("b", 1, 2)
	s.Require().Equal(StageInJail, s.engine.Stage())
	s.Equal([]Verb{ActionPayout}, s.engine.PossibleActionsFor("a"))

	s.do("a", ActionPayout, nil)
	p := s.player("a")
	s.False(p.InJail)
	s.Zero(p.JailTurns)
	s.Equal(board.JustVisiting, p.Field)
	s.Equal(1450, p.Cash)
	s.Equal(StageBeginTurn, s.engine.Stage())
}

func (s *EngineTestSuite) TestJailDoubleLeavesJail() {
	s.start()
	s.jailFirstPlayer()
	s.do("a", ActionEndTurn, nil)
	s.passTurn("b", 1, 2)

	s.roll("a", 5, 5)
	p := s.player("a")
	s.False(p.InJail)
	s.Equal(board.JustVisiting, p.Field)
	s.Equal(StageBeginTurn, s.engine.Stage())
	s.Contains(s.engine.Transitions(), StageLeavingJail)
}

func (s *EngineTestSuite) TestUseJailCard() {
	s.start()
	s.jailFirstPlayer()
	s.Require().NoError(s.engine.ctl.GrantJailCard("a"))
	s.do("a", ActionEndTurn, nil)
	s.passTurn("b", 1, 2)

	s.Equal([]Verb{ActionPayout, ActionRoll, ActionUseCard}, s.engine.PossibleActionsFor("a"))
	s.do("a", ActionUseCard, nil)
	p := s.player("a")
	s.Zero(p.JailCards)
	s.False(p.InJail)
	s.Equal(1500, p.Cash)
}

func (s *EngineTestSuite) TestStageIsPublished() {
	s.start()
	s.roll("a", 1, 2)

	out := s.engine.Flush()
	var stage any
	actions := map[string]any{}
	for _, e := range out {
		if e.Item == state.MiscStage {
			stage = e.Value
		}
		if e.Item == state.MiscPossibleActions {
			actions[e.To] = e.Value
		}
	}
	s.Equal("buying_decision", stage)
	s.Equal([]string{"auction", "buy"}, actions["a"])
	s.Equal([]string{}, actions["b"])
}

func TestPossibleActions(t *testing.T) {
	tests := []struct {
		name string
		p    Perspective
		want []Verb
	}{
		{"host in lobby", Perspective{Stage: StagePreGame, IsHost: true}, []Verb{ActionAddPlayer}},
		{"host in game", Perspective{Stage: StageBeginTurn, IsHost: true}, nil},
		{"stranger", Perspective{Stage: StagePreGame}, nil},
		{"seated in lobby", Perspective{Stage: StagePreGame, Seated: true}, []Verb{ActionStartGame, ActionUpdatePlayer}},
		{"not on turn", Perspective{Stage: StageBeginTurn, Seated: true}, nil},
		{"begin turn", Perspective{Stage: StageBeginTurn, Seated: true, OnTurn: true}, []Verb{ActionRoll}},
		{"rent roll", Perspective{Stage: StageRentRoll, Seated: true, OnTurn: true}, []Verb{ActionRoll}},
		{"buying", Perspective{Stage: StageBuyingDecision, Seated: true, OnTurn: true}, []Verb{ActionAuction, ActionBuy}},
		{"end turn", Perspective{Stage: StageEndTurn, Seated: true, OnTurn: true}, []Verb{ActionEndTurn}},
		{
			"jail first attempt",
			Perspective{Stage: StageInJail, Seated: true, OnTurn: true, MaxJailRolls: 3},
			[]Verb{ActionPayout, ActionRoll},
		},
		{
			"jail with card",
			Perspective{Stage: StageInJail, Seated: true, OnTurn: true, JailCards: 1, JailTurns: 3, MaxJailRolls: 3},
			[]Verb{ActionPayout, ActionUseCard},
		},
		{
			"jail out of attempts",
			Perspective{Stage: StageInJail, Seated: true, OnTurn: true, JailTurns: 3, MaxJailRolls: 3},
			[]Verb{ActionPayout},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PossibleActions(tt.p))
		})
	}
}

func TestStageNames(t *testing.T) {
	assert.Equal(t, "pre_game", StagePreGame.String())
	assert.Equal(t, "end_turn_confirmed", StageEndTurnConfirmed.String())
	assert.True(t, StageEndTurn.AwaitsInput())
	assert.False(t, StageRolling.AwaitsInput())
	for stage := StageRolling; stage <= StageEndTurnConfirmed; stage++ {
		assert.NotEqual(t, "unknown", stage.String())
	}
}

func TestEveryTransientStageHasHandler(t *testing.T) {
	e := New(Options{Rules: DefaultRules(), Dice: dice.Scripted(1, 2)})
	for stage := StageRolling; stage <= StageEndTurnConfirmed; stage++ {
		_, ok := e.table[stage]
		assert.True(t, ok, stage.String())
	}
	for key, next := range inputTransitions {
		assert.True(t, key.stage.AwaitsInput(), key.stage.String())
		assert.False(t, next.AwaitsInput(), next.String())
	}
}
