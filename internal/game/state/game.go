// Package state 游戏聚合：棋盘、玩家与回合元数据的唯一数据源
package state

import (
	"fmt"
	"slices"
	"sort"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game/board"
)

// MaxSeats 座位上限
const MaxSeats = 4

// Player 玩家
type Player struct {
	Seat      int    `json:"player_id"`
	ID        string `json:"-"`
	Name      string `json:"name"`
	Token     string `json:"token"`
	Cash      int    `json:"cash"`
	Field     int    `json:"field"`
	Ready     bool   `json:"ready"`
	InJail    bool   `json:"in_jail"`
	JailTurns int    `json:"jail_turns"`
	JailCards int    `json:"jail_cards"`
}

// Game 游戏聚合。所有格子和玩家状态只能通过 Update 修改，
// 每次实际变化都会追加一条变更记录。
type Game struct {
	board   *board.Board
	deeds   *board.Deeds
	players map[int]*Player
	byID    map[string]*Player

	stage    string
	status   string
	lastRoll []int
	order    []int
	cursor   int // order 中当前行动者的位置，-1 表示尚未开始

	changes []Change
}

// New 创建游戏聚合
func New(b *board.Board) *Game {
	return &Game{
		board:   b,
		deeds:   board.NewDeeds(b),
		players: make(map[int]*Player),
		byID:    make(map[string]*Player),
		status:  StatusLobby,
		cursor:  -1,
	}
}

// Board 只读访问棋盘
func (g *Game) Board() *board.Board {
	return g.board
}

// Update 修改一项状态。值与当前相同时不做任何事并返回 false；
// 否则修改并追加恰好一条变更记录。misc 分区的 attribute 为空。
func (g *Game) Update(section Section, item any, attribute string, value any) (bool, error) {
	var (
		changed bool
		err     error
	)
	switch section {
	case SectionFields:
		changed, err = g.updateField(item, attribute, value)
	case SectionPlayers:
		changed, err = g.updatePlayer(item, attribute, value)
	case SectionMisc:
		if attribute != "" {
			return false, errors.Newf(errors.ErrInvalidAttribute, "misc/%v 不接受属性 %s", item, attribute)
		}
		changed, err = g.updateMisc(item, value)
	default:
		return false, errors.Newf(errors.ErrInvalidAttribute, "未知分区 %s", section)
	}
	if err != nil || !changed {
		return false, err
	}
	g.changes = append(g.changes, Change{Section: section, Item: item, Attribute: attribute, Value: value})
	return true, nil
}

func (g *Game) updateField(item any, attribute string, value any) (bool, error) {
	index, ok := item.(int)
	if !ok {
		return false, errors.Newf(errors.ErrInvalidValue, "格子索引类型错误: %T", item)
	}
	f := g.board.Field(index)
	deed := g.deeds.Mutable(index)
	if f == nil || deed == nil {
		return false, errors.Newf(errors.ErrInvalidAttribute, "格子 %d 不是地产", index)
	}

	switch attribute {
	case AttrOwner:
		return set(&deed.Owner, value)
	case AttrMortgage:
		return set(&deed.Mortgaged, value)
	case AttrHouses:
		houses, ok := value.(int)
		if !ok || houses < 0 || houses > board.Hotel || f.Street == nil {
			return false, errors.Newf(errors.ErrInvalidValue, "格子 %d 房屋数无效: %v", index, value)
		}
		return set(&deed.Houses, value)
	default:
		return false, errors.Newf(errors.ErrInvalidAttribute, "格子属性 %s", attribute)
	}
}

func (g *Game) updatePlayer(item any, attribute string, value any) (bool, error) {
	id, ok := item.(string)
	if !ok {
		return false, errors.Newf(errors.ErrInvalidValue, "玩家标识类型错误: %T", item)
	}
	p, ok := g.byID[id]
	if !ok {
		return false, errors.New(errors.ErrPlayerNotFound, id)
	}

	switch attribute {
	case AttrName:
		return set(&p.Name, value)
	case AttrToken:
		return set(&p.Token, value)
	case AttrCash:
		return set(&p.Cash, value)
	case AttrField:
		field, ok := value.(int)
		if !ok || field < -1 || field > board.Jail {
			return false, errors.Newf(errors.ErrInvalidValue, "位置无效: %v", value)
		}
		return set(&p.Field, value)
	case AttrReady:
		return set(&p.Ready, value)
	case AttrInJail:
		return set(&p.InJail, value)
	case AttrJailTurns:
		return set(&p.JailTurns, value)
	case AttrJailCards:
		return set(&p.JailCards, value)
	default:
		return false, errors.Newf(errors.ErrInvalidAttribute, "玩家属性 %s", attribute)
	}
}

func (g *Game) updateMisc(item any, value any) (bool, error) {
	key, _ := item.(string)
	switch key {
	case MiscStage:
		return set(&g.stage, value)
	case MiscStatus:
		return set(&g.status, value)
	case MiscLastRoll:
		return setSlice(&g.lastRoll, value)
	case MiscPlayerOrder:
		order, ok := value.([]int)
		if !ok {
			return false, errors.Newf(errors.ErrInvalidValue, "顺位类型错误: %T", value)
		}
		for _, seat := range order {
			if _, ok := g.players[seat]; !ok {
				return false, errors.Newf(errors.ErrInvalidValue, "顺位包含空座位 %d", seat)
			}
		}
		changed, err := setSlice(&g.order, value)
		if changed {
			g.cursor = -1
		}
		return changed, err
	case MiscOnTurn:
		seat, ok := value.(int)
		if !ok {
			return false, errors.Newf(errors.ErrInvalidValue, "座位号类型错误: %T", value)
		}
		at := slices.Index(g.order, seat)
		if at < 0 {
			return false, errors.Newf(errors.ErrInvalidValue, "座位 %d 不在顺位中", seat)
		}
		if at == g.cursor {
			return false, nil
		}
		g.cursor = at
		return true, nil
	default:
		return false, errors.Newf(errors.ErrInvalidAttribute, "misc 条目 %v", item)
	}
}

// set 类型检查后比较并赋值
func set[T comparable](dst *T, value any) (bool, error) {
	v, ok := value.(T)
	if !ok {
		return false, errors.Newf(errors.ErrInvalidValue, "值类型错误: %T", value)
	}
	if *dst == v {
		return false, nil
	}
	*dst = v
	return true, nil
}

func setSlice(dst *[]int, value any) (bool, error) {
	v, ok := value.([]int)
	if !ok {
		return false, errors.Newf(errors.ErrInvalidValue, "值类型错误: %T", value)
	}
	if slices.Equal(*dst, v) {
		return false, nil
	}
	*dst = slices.Clone(v)
	return true, nil
}

// AddPlayer 以最小空闲座位加入玩家
func (g *Game) AddPlayer(id string) (Player, error) {
	if id == "" {
		return Player{}, errors.New(errors.ErrInvalidParam, "玩家标识为空")
	}
	if _, ok := g.byID[id]; ok {
		return Player{}, errors.New(errors.ErrAlreadyExists, id)
	}
	seat := -1
	for s := 0; s < MaxSeats; s++ {
		if _, taken := g.players[s]; !taken {
			seat = s
			break
		}
	}
	if seat < 0 {
		return Player{}, errors.Newf(errors.ErrGameFull, "座位上限 %d", MaxSeats)
	}

	p := &Player{
		Seat:  seat,
		ID:    id,
		Name:  playerName(seat),
		Field: -1,
	}
	g.players[seat] = p
	g.byID[id] = p

	// 新玩家的全部属性都进入变更记录
	for _, c := range g.playerChanges(*p) {
		c.Item = id
		g.changes = append(g.changes, c)
	}
	return *p, nil
}

func playerName(seat int) string {
	return fmt.Sprintf("Player %d", seat+1)
}

// Deed 地契副本，非地产返回 false
func (g *Game) Deed(index int) (board.Deed, bool) {
	return g.deeds.Get(index)
}

// Owner 地产所有者的内部标识，无主或非地产为空
func (g *Game) Owner(index int) string {
	return g.deeds.Owner(index)
}

// Rent 按当前地契计算租金，公用事业为倍率
func (g *Game) Rent(index int) int {
	return g.deeds.Rent(index)
}

// CountImprovements 玩家名下的房屋数与酒店数
func (g *Game) CountImprovements(owner string) (houses, hotels int) {
	return g.deeds.CountImprovements(owner)
}

// Player 按内部标识查找玩家，返回副本
func (g *Game) Player(id string) (Player, bool) {
	p, ok := g.byID[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// PlayerBySeat 按座位号查找玩家，返回副本
func (g *Game) PlayerBySeat(seat int) (Player, bool) {
	p, ok := g.players[seat]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// IDFromSeat 座位号转内部标识
func (g *Game) IDFromSeat(seat int) (string, bool) {
	p, ok := g.players[seat]
	if !ok {
		return "", false
	}
	return p.ID, true
}

// Players 按座位顺序返回全部玩家的副本
func (g *Game) Players() []Player {
	out := make([]Player, 0, len(g.players))
	for _, p := range g.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

// PlayerCount 玩家数
func (g *Game) PlayerCount() int {
	return len(g.players)
}

// AllReady 所有玩家均已准备且选择了棋子
func (g *Game) AllReady() bool {
	for _, p := range g.players {
		if !p.Ready || p.Token == "" {
			return false
		}
	}
	return true
}

// Stage 当前阶段
func (g *Game) Stage() string {
	return g.stage
}

// Status 对局状态
func (g *Game) Status() string {
	return g.status
}

// LastRoll 最近登记的掷骰
func (g *Game) LastRoll() []int {
	return slices.Clone(g.lastRoll)
}

// TurnOrder 固定的行动顺位（座位号）
func (g *Game) TurnOrder() []int {
	return slices.Clone(g.order)
}

// OnTurn 当前行动的玩家
func (g *Game) OnTurn() (Player, bool) {
	if g.cursor < 0 {
		return Player{}, false
	}
	return g.PlayerBySeat(g.order[g.cursor])
}

// NextInOrder 顺位中的下一个座位
func (g *Game) NextInOrder() (int, bool) {
	if g.cursor < 0 {
		return 0, false
	}
	return g.order[(g.cursor+1)%len(g.order)], true
}
