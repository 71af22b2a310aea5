// Package cards 机会卡与命运卡
package cards

import (
	"github.com/wfunc/monopoly-server/internal/game/board"
	"github.com/wfunc/monopoly-server/internal/game/dice"
)

// Category 卡牌类别，决定抽卡后的流程走向
type Category string

// 卡牌类别
const (
	CategoryMove            Category = "move"
	CategoryCollect         Category = "collect"
	CategoryPay             Category = "pay"
	CategoryPayEach         Category = "pay_each"
	CategoryCollectFromEach Category = "collect_from_each"
	CategoryGetOutOfJail    Category = "get_out_of_jail"
	CategoryGoToJail        Category = "go_to_jail"
)

// SpecialRent 下一次租金计算的修正
type SpecialRent string

// 租金修正
const (
	RentNormal       SpecialRent = ""
	RentDouble       SpecialRent = "double"
	RentTenTimesRoll SpecialRent = "10xroll"
)

// DeckKind 牌堆类型
type DeckKind string

// 牌堆类型
const (
	Chance         DeckKind = "chance"
	CommunityChest DeckKind = "community_chest"
)

// Table 卡牌效果作用的对象，由编排层实现。
// 玩家以内部标识表示，空收款人表示银行。
type Table interface {
	OnTurn() string
	Opponents() []string
	Position(player string) int
	NearestOfKind(position int, kind board.Kind) (int, bool)
	MoveTo(field int, player string, checkPassGo bool) error
	MoveBy(delta int, player string, checkPassGo bool) error
	Pay(amount int, payer, payee string) error
	Collect(amount int, player string) error
	GrantJailCard(player string) error
	SendToJail(player string) error
	CountImprovements(player string) (houses, hotels int)
}

// Effect 卡牌效果
type Effect func(t Table) error

// Card 一张卡牌
type Card struct {
	ID          int
	Deck        DeckKind
	Text        string
	Category    Category
	EndsTurn    bool
	SpecialRent SpecialRent

	effect Effect
}

// Apply 对当前回合玩家执行卡牌效果
func (c Card) Apply(t Table) error {
	if c.effect == nil {
		return nil
	}
	return c.effect(t)
}

// IsMove 是否为移动类卡牌
func (c Card) IsMove() bool {
	return c.Category == CategoryMove
}

// Deck 牌堆：构造时洗牌一次，之后按固定顺序循环抽取，不再洗牌
type Deck struct {
	kind   DeckKind
	cards  []Card
	cursor int
}

// NewDeck 创建并洗牌
func NewDeck(kind DeckKind, shuffler dice.Shuffler) *Deck {
	cards := Catalog(kind)
	shuffler.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{kind: kind, cards: cards}
}

// Kind 牌堆类型
func (d *Deck) Kind() DeckKind {
	return d.kind
}

// Len 牌数
func (d *Deck) Len() int {
	return len(d.cards)
}

// Draw 抽取下一张牌，抽完后从头循环
func (d *Deck) Draw() Card {
	card := d.cards[d.cursor]
	d.cursor = (d.cursor + 1) % len(d.cards)
	return card
}

// DeckFor 格子类型对应的牌堆类型
func DeckFor(kind board.Kind) (DeckKind, bool) {
	switch kind {
	case board.KindChance:
		return Chance, true
	case board.KindCommunityChest:
		return CommunityChest, true
	default:
		return "", false
	}
}
