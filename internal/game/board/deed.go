package board

// Hotel 房屋数为 5 表示酒店
const Hotel = 5

// Deed 地产的可变状态
type Deed struct {
	Owner     string `json:"owner"` // 玩家标识，空表示归银行
	Mortgaged bool   `json:"mortgage"`
	Houses    int    `json:"houses"` // 0-4 为房屋数，5 表示酒店
}

// Deeds 全部地产的状态表。
// 由游戏聚合私有持有，其他包只经由聚合读取副本。
type Deeds struct {
	board *Board
	deeds map[int]*Deed
}

// NewDeeds 为棋盘上每块地产建立空白地契
func NewDeeds(b *Board) *Deeds {
	d := &Deeds{board: b, deeds: make(map[int]*Deed)}
	for _, f := range b.fields {
		if f.IsProperty() {
			d.deeds[f.Index] = &Deed{}
		}
	}
	return d
}

// Get 地契副本，非地产返回 false
func (d *Deeds) Get(index int) (Deed, bool) {
	deed, ok := d.deeds[index]
	if !ok {
		return Deed{}, false
	}
	return *deed, true
}

// Mutable 可写的地契，非地产返回 nil
func (d *Deeds) Mutable(index int) *Deed {
	return d.deeds[index]
}

// Owner 所有者，非地产或无主时为空
func (d *Deeds) Owner(index int) string {
	if deed, ok := d.deeds[index]; ok {
		return deed.Owner
	}
	return ""
}

// Rent 计算地产租金。
// 公用事业返回倍率，由调用方乘以掷骰点数；抵押与否由调用方判断。
// 非地产返回 0。
func (d *Deeds) Rent(index int) int {
	f := d.board.Field(index)
	deed, ok := d.deeds[index]
	if f == nil || !ok {
		return 0
	}

	if f.Street != nil {
		switch h := deed.Houses; {
		case h >= 1 && h <= 4:
			return f.Street.Houses[h-1]
		case h == Hotel:
			return f.Street.Hotel
		case d.HasFullSet(index):
			return f.Street.DoubleRent
		default:
			return f.Street.Rent
		}
	}

	tiers := f.Tiered.Tiers
	n := d.OwnedInSet(index)
	if n < 1 {
		n = 1
	}
	if n > len(tiers) {
		n = len(tiers)
	}
	return tiers[n-1]
}

// OwnedInSet 同套组中与该格同一所有者的地产数量，无主时为 0
func (d *Deeds) OwnedInSet(index int) int {
	owner := d.Owner(index)
	if owner == "" {
		return 0
	}
	count := 0
	for _, i := range d.board.Set(d.board.Field(index).Property.Set) {
		if d.deeds[i].Owner == owner {
			count++
		}
	}
	return count
}

// HasFullSet 该格所有者是否拥有整个套组
func (d *Deeds) HasFullSet(index int) bool {
	if d.Owner(index) == "" {
		return false
	}
	return d.OwnedInSet(index) == len(d.board.Set(d.board.Field(index).Property.Set))
}

// CountImprovements 统计玩家名下街道的房屋数和酒店数
func (d *Deeds) CountImprovements(owner string) (houses, hotels int) {
	if owner == "" {
		return 0, 0
	}
	for index, deed := range d.deeds {
		if deed.Owner != owner || d.board.Field(index).Street == nil {
			continue
		}
		if deed.Houses == Hotel {
			hotels++
		} else {
			houses += deed.Houses
		}
	}
	return houses, hotels
}
