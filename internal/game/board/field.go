// Package board 棋盘格子定义与租金计算
package board

import "fmt"

// 棋盘常量
const (
	Length       = 40 // 可移动的格子数，监狱与探监共用一格
	Jail         = 40 // 监狱索引，位于可移动范围之外
	JustVisiting = 10 // 探监格
	GoField      = 0  // 起点
	Size         = 41 // 含监狱的格子总数
)

// Kind 格子类型
type Kind int

// 格子类型
const (
	KindGo Kind = iota
	KindStreet
	KindRailroad
	KindUtility
	KindChance
	KindCommunityChest
	KindTax
	KindJail
	KindJustVisiting
	KindFreeParking
	KindGoToJail
)

var kindNames = map[Kind]string{
	KindGo:             "go",
	KindStreet:         "street",
	KindRailroad:       "railroad",
	KindUtility:        "utility",
	KindChance:         "chance",
	KindCommunityChest: "community_chest",
	KindTax:            "tax",
	KindJail:           "jail",
	KindJustVisiting:   "just_visiting",
	KindFreeParking:    "free_parking",
	KindGoToJail:       "go_to_jail",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind 解析格子类型名称
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", name)
}

// IsProperty 可购买的地产（街道、车站、公用事业）
func (k Kind) IsProperty() bool {
	return k == KindStreet || k == KindRailroad || k == KindUtility
}

// IsCard 抽卡格
func (k Kind) IsCard() bool {
	return k == KindChance || k == KindCommunityChest
}

// IsInactive 停留无效果的格子
func (k Kind) IsInactive() bool {
	return k == KindGo || k == KindJustVisiting || k == KindFreeParking
}

// PropertyTerms 地产通用条款
type PropertyTerms struct {
	Price           int    `json:"price"`
	Set             string `json:"set"`
	MortgageValue   int    `json:"mortgage_value"`
	UnmortgagePrice int    `json:"unmortgage_price"`
}

// StreetTerms 街道租金表
type StreetTerms struct {
	Color      string `json:"color"`
	Rent       int    `json:"rent"`
	DoubleRent int    `json:"double_rent"`
	Houses     [4]int `json:"houses"`
	Hotel      int    `json:"hotel"`
	HousePrice int    `json:"house_price"`
	HotelPrice int    `json:"hotel_price"`
}

// TieredTerms 按同一所有者持有数量分级的租金。
// 车站为租金，公用事业为与点数相乘的倍率。
type TieredTerms struct {
	Tiers []int `json:"tiers"`
}

// Field 棋盘格子
type Field struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Kind  Kind   `json:"-"`

	Property *PropertyTerms `json:"property,omitempty"`
	Street   *StreetTerms   `json:"street,omitempty"`
	Tiered   *TieredTerms   `json:"tiered,omitempty"`
	Tax      int            `json:"tax,omitempty"`
}

// IsProperty 是否为地产格
func (f *Field) IsProperty() bool {
	return f.Property != nil
}

// Price 标价，非地产为 0
func (f *Field) Price() int {
	if f.Property == nil {
		return 0
	}
	return f.Property.Price
}

// Advance 从 position 前进 steps 格（可为负），结果落在 0..39
func Advance(position, steps int) int {
	return ((position+steps)%Length + Length) % Length
}
