// Package dice 骰子与掷骰结果
package dice

// Roll 一次掷骰的结果，创建后不可修改
type Roll struct {
	values []int
}

// NewRoll 由点数构造掷骰结果
func NewRoll(values ...int) Roll {
	return Roll{values: append([]int(nil), values...)}
}

// Values 返回每颗骰子的点数（副本）
func (r Roll) Values() []int {
	return append([]int(nil), r.values...)
}

// Sum 点数之和
func (r Roll) Sum() int {
	sum := 0
	for _, v := range r.values {
		sum += v
	}
	return sum
}

// IsDouble 所有骰子点数相同；少于两颗骰子时不成立
func (r Roll) IsDouble() bool {
	if len(r.values) < 2 {
		return false
	}
	for _, v := range r.values[1:] {
		if v != r.values[0] {
			return false
		}
	}
	return true
}

// IsZero 是否为空结果（尚未掷骰）
func (r Roll) IsZero() bool {
	return len(r.values) == 0
}

// Dice 一组骰子，记录最近一次登记的掷骰与连续双数次数
type Dice struct {
	count    int
	sides    int
	src      Source
	lastRoll Roll
	doubles  int
}

// New 创建骰子
func New(count, sides int, src Source) *Dice {
	return &Dice{count: count, sides: sides, src: src}
}

// Roll 掷骰。register 为 true 时更新最近掷骰和连续双数计数，
// 越狱尝试与十倍租金掷骰使用 register=false。
func (d *Dice) Roll(register bool) Roll {
	values := make([]int, d.count)
	for i := range values {
		values[i] = d.src.Intn(d.sides) + 1
	}
	roll := Roll{values: values}

	if register {
		d.lastRoll = roll
		if roll.IsDouble() {
			d.doubles++
		} else {
			d.doubles = 0
		}
	}
	return roll
}

// LastRoll 最近一次登记的掷骰
func (d *Dice) LastRoll() Roll {
	return d.lastRoll
}

// Doubles 连续双数次数
func (d *Dice) Doubles() int {
	return d.doubles
}

// TripleDouble 是否连续三次双数
func (d *Dice) TripleDouble() bool {
	return d.doubles >= 3
}

// Reset 清空连续双数计数和最近掷骰，每个新回合开始时调用
func (d *Dice) Reset() {
	d.doubles = 0
	d.lastRoll = Roll{}
}
