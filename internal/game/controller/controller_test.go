package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wfunc/monopoly-server/internal/game/board"
	"github.com/wfunc/monopoly-server/internal/game/cards"
	"github.com/wfunc/monopoly-server/internal/game/dice"
	"github.com/wfunc/monopoly-server/internal/game/state"
)

var _ cards.Table = (*Controller)(nil)

func newController(t *testing.T, src dice.Source, ids ...string) *Controller {
	t.Helper()
	g := state.New(board.Classic())
	c := New(g, dice.New(2, 6, src), 200, zap.NewNop())
	for _, id := range ids {
		_, err := c.AddPlayer(id)
		require.NoError(t, err)
		_, err = c.Update(state.SectionPlayers, id, state.AttrCash, 1500)
		require.NoError(t, err)
		_, err = c.Update(state.SectionPlayers, id, state.AttrField, 0)
		require.NoError(t, err)
	}
	_, err := c.Update(state.SectionMisc, state.MiscPlayerOrder, "", seats(len(ids)))
	require.NoError(t, err)
	if len(ids) > 0 {
		_, err = c.Update(state.SectionMisc, state.MiscOnTurn, "", 0)
		require.NoError(t, err)
	}
	c.Flush()
	return c
}

func seats(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func cash(t *testing.T, c *Controller, id string) int {
	t.Helper()
	p, ok := c.Game().Player(id)
	require.True(t, ok)
	return p.Cash
}

func TestEveryMutationIsQueued(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a", "b")

	require.NoError(t, c.Pay(100, "a", "b"))
	out := c.Flush()
	require.Len(t, out, 2)
	assert.Equal(t, state.Change{Section: state.SectionPlayers, Item: 0, Attribute: state.AttrCash, Value: 1400}, out[0].Change)
	assert.Equal(t, state.Change{Section: state.SectionPlayers, Item: 1, Attribute: state.AttrCash, Value: 1600}, out[1].Change)
	assert.True(t, out[0].Broadcast())

	assert.Empty(t, c.Flush())
	assert.Zero(t, c.Game().Pending())
}

func TestPayToBank(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a", "b")
	require.NoError(t, c.Pay(200, "a", ""))
	assert.Equal(t, 1300, cash(t, c, "a"))
	assert.Equal(t, 1500, cash(t, c, "b"))
	assert.Len(t, c.Flush(), 1)
}

func TestNegativeBalanceIsAllowedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := newController(t, dice.Scripted(1, 2), "a")
	c.logger = zap.New(core)

	require.NoError(t, c.Pay(2000, "a", ""))
	assert.Equal(t, -500, cash(t, c, "a"))
	assert.Equal(t, 1, logs.Len())
}

func TestPassGoOnce(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a")
	require.NoError(t, c.MoveTo(39, "a", false))
	c.Flush()

	require.NoError(t, c.MoveBy(3, "a", true))
	p, _ := c.Game().Player("a")
	assert.Equal(t, 2, p.Field)
	assert.Equal(t, 1700, p.Cash)

	out := c.Flush()
	require.Len(t, out, 2)
	assert.Equal(t, state.AttrField, out[0].Attribute)
	assert.Equal(t, state.AttrCash, out[1].Attribute)
}

func TestNoPassGoWithoutCheck(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a")
	require.NoError(t, c.MoveTo(2, "a", false))
	require.NoError(t, c.MoveBy(-3, "a", false))

	p, _ := c.Game().Player("a")
	assert.Equal(t, 39, p.Field)
	assert.Equal(t, 1500, p.Cash)
}

func TestForwardMoveWithoutWrapPaysNothing(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a")
	require.NoError(t, c.MoveBy(7, "a", true))
	assert.Equal(t, 1500, cash(t, c, "a"))
}

func TestJailFlagFollowsPosition(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a")
	require.NoError(t, c.MoveTo(25, "a", false))

	require.NoError(t, c.SendToJail("a"))
	p, _ := c.Game().Player("a")
	assert.Equal(t, board.Jail, p.Field)
	assert.True(t, p.InJail)
	// 入狱不经过起点
	assert.Equal(t, 1500, p.Cash)

	require.NoError(t, c.MoveTo(board.JustVisiting, "a", false))
	p, _ = c.Game().Player("a")
	assert.False(t, p.InJail)
	assert.Equal(t, board.JustVisiting, p.Field)
}

func TestBuyProperty(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a", "b")

	require.NoError(t, c.BuyProperty(1, "a", -1))
	assert.Equal(t, 1440, cash(t, c, "a"))
	assert.Equal(t, "a", c.Game().Owner(1))

	out := c.Flush()
	require.Len(t, out, 2)
	assert.Equal(t, state.Change{Section: state.SectionFields, Item: 1, Attribute: state.AttrOwner, Value: 0}, out[1].Change)

	// 从玩家手中以指定价格购买
	require.NoError(t, c.BuyProperty(1, "b", 100))
	assert.Equal(t, 1400, cash(t, c, "b"))
	assert.Equal(t, 1540, cash(t, c, "a"))
	assert.Equal(t, "b", c.Game().Owner(1))

	assert.Error(t, c.BuyProperty(0, "a", -1))
}

func TestRollQueuesEvent(t *testing.T) {
	c := newController(t, dice.Scripted(4, 4, 2, 5), "a")

	r, err := c.Roll(true)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, r.Values())
	assert.Equal(t, []int{4, 4}, c.Game().LastRoll())

	out := c.Flush()
	require.Len(t, out, 2)
	assert.Equal(t, state.MiscLastRoll, out[0].Item)
	assert.Equal(t, state.Change{Section: state.SectionMisc, Item: state.MiscEvent, Attribute: "roll", Value: []int{4, 4}}, out[1].Change)

	// 未登记的掷骰只广播事件
	_, err = c.Roll(false)
	require.NoError(t, err)
	out = c.Flush()
	require.Len(t, out, 1)
	assert.Equal(t, "roll", out[0].Attribute)
	assert.Equal(t, []int{4, 4}, c.Game().LastRoll())
	assert.Equal(t, 1, c.Dice().Doubles())
}

func TestAddressedMessages(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a", "b")

	c.Notify("a", state.MiscPossibleActions, []string{"roll"})
	c.EventTo("b", "initialize", 1)
	c.Event("game_started", nil)
	c.Announce(state.MiscCard, []any{3, "text"})

	out := c.Flush()
	require.Len(t, out, 4)
	assert.Equal(t, "a", out[0].To)
	assert.Equal(t, "b", out[1].To)
	assert.True(t, out[2].Broadcast())
	assert.Equal(t, state.MiscCard, out[3].Item)
}

func TestSendSnapshotIsAddressed(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a", "b")
	c.SendSnapshot("b")
	out := c.Flush()
	require.NotEmpty(t, out)
	for _, e := range out {
		assert.Equal(t, "b", e.To)
	}
}

func TestTableView(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a", "b", "c")
	assert.Equal(t, "a", c.OnTurn())
	assert.Equal(t, []string{"b", "c"}, c.Opponents())
	assert.Equal(t, 0, c.Position("a"))
	assert.Equal(t, -1, c.Position("zz"))

	require.NoError(t, c.GrantJailCard("a"))
	p, _ := c.Game().Player("a")
	assert.Equal(t, 1, p.JailCards)
}

func TestUnknownPlayer(t *testing.T) {
	c := newController(t, dice.Scripted(1, 2), "a")
	assert.Error(t, c.Pay(10, "zz", ""))
	assert.Error(t, c.Collect(10, "zz"))
	assert.Error(t, c.MoveTo(3, "zz", true))
	assert.Empty(t, c.Flush())
}
