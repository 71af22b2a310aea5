package state

// Section 变更记录所属的分区
type Section string

// 分区
const (
	SectionFields  Section = "fields"
	SectionPlayers Section = "players"
	SectionMisc    Section = "misc"
)

// 格子属性
const (
	AttrOwner    = "owner"
	AttrMortgage = "mortgage"
	AttrHouses   = "houses"
)

// 玩家属性
const (
	AttrName      = "name"
	AttrToken     = "token"
	AttrCash      = "cash"
	AttrField     = "field"
	AttrReady     = "ready"
	AttrInJail    = "in_jail"
	AttrJailTurns = "jail_turns"
	AttrJailCards = "jail_cards"
)

// misc 分区的条目
const (
	MiscStage           = "stage"
	MiscStatus          = "status"
	MiscOnTurn          = "on_turn"
	MiscLastRoll        = "last_roll"
	MiscPlayerOrder     = "player_order"
	MiscEvent           = "event"
	MiscCard            = "card"
	MiscPossibleActions = "possible_actions"
)

// 对局状态
const (
	StatusLobby   = "lobby"
	StatusPlaying = "playing"
)

// Change 一条状态变更或事件记录。
// 对外输出时玩家条目为公开座位号。
type Change struct {
	Section   Section `json:"section"`
	Item      any     `json:"item"`
	Attribute string  `json:"attribute,omitempty"`
	Value     any     `json:"value"`
}

// DrainChanges 取出并清空待发送的变更，保持产生顺序，
// 玩家内部标识替换为座位号
func (g *Game) DrainChanges() []Change {
	if len(g.changes) == 0 {
		return nil
	}
	out := make([]Change, 0, len(g.changes))
	for _, c := range g.changes {
		out = append(out, g.public(c))
	}
	g.changes = g.changes[:0]
	return out
}

// Pending 待发送的变更数
func (g *Game) Pending() int {
	return len(g.changes)
}

// Snapshot 以变更记录的形式返回完整状态，用于新加入的玩家
func (g *Game) Snapshot() []Change {
	var out []Change
	for _, f := range g.board.Fields() {
		deed, ok := g.deeds.Get(f.Index)
		if !ok {
			continue
		}
		out = append(out,
			g.public(Change{Section: SectionFields, Item: f.Index, Attribute: AttrOwner, Value: deed.Owner}),
			Change{Section: SectionFields, Item: f.Index, Attribute: AttrMortgage, Value: deed.Mortgaged},
			Change{Section: SectionFields, Item: f.Index, Attribute: AttrHouses, Value: deed.Houses},
		)
	}
	for _, p := range g.Players() {
		out = append(out, g.playerChanges(p)...)
	}
	out = append(out,
		Change{Section: SectionMisc, Item: MiscStatus, Value: g.status},
		Change{Section: SectionMisc, Item: MiscStage, Value: g.stage},
	)
	if len(g.order) > 0 {
		out = append(out, Change{Section: SectionMisc, Item: MiscPlayerOrder, Value: append([]int(nil), g.order...)})
	}
	if g.cursor >= 0 {
		out = append(out, Change{Section: SectionMisc, Item: MiscOnTurn, Value: g.order[g.cursor]})
	}
	if len(g.lastRoll) > 0 {
		out = append(out, Change{Section: SectionMisc, Item: MiscLastRoll, Value: append([]int(nil), g.lastRoll...)})
	}
	return out
}

func (g *Game) playerChanges(p Player) []Change {
	item := p.Seat
	return []Change{
		{Section: SectionPlayers, Item: item, Attribute: AttrName, Value: p.Name},
		{Section: SectionPlayers, Item: item, Attribute: AttrToken, Value: p.Token},
		{Section: SectionPlayers, Item: item, Attribute: AttrCash, Value: p.Cash},
		{Section: SectionPlayers, Item: item, Attribute: AttrField, Value: p.Field},
		{Section: SectionPlayers, Item: item, Attribute: AttrReady, Value: p.Ready},
		{Section: SectionPlayers, Item: item, Attribute: AttrInJail, Value: p.InJail},
		{Section: SectionPlayers, Item: item, Attribute: AttrJailTurns, Value: p.JailTurns},
		{Section: SectionPlayers, Item: item, Attribute: AttrJailCards, Value: p.JailCards},
	}
}

// public 将内部玩家标识替换为座位号；无主地产的所有者输出为 nil
func (g *Game) public(c Change) Change {
	if c.Section == SectionPlayers {
		if id, ok := c.Item.(string); ok {
			if p, ok := g.byID[id]; ok {
				c.Item = p.Seat
			}
		}
	}
	if c.Section == SectionFields && c.Attribute == AttrOwner {
		id, _ := c.Value.(string)
		if p, ok := g.byID[id]; ok {
			c.Value = p.Seat
		} else {
			c.Value = nil
		}
	}
	return c
}
