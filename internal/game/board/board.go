package board

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed classic.yaml
var classicData []byte

// Board 棋盘，只描述格子与条款，地产状态见 Deeds
type Board struct {
	fields []*Field
	sets   map[string][]int
}

type fieldRecord struct {
	Key             string `yaml:"key"`
	Kind            string `yaml:"kind"`
	Name            string `yaml:"name"`
	Set             string `yaml:"set"`
	Price           int    `yaml:"price"`
	MortgageValue   int    `yaml:"mortgage_value"`
	UnmortgagePrice int    `yaml:"unmortgage_price"`
	Rent            int    `yaml:"rent"`
	DoubleRent      int    `yaml:"double_rent"`
	Houses          []int  `yaml:"houses"`
	Hotel           int    `yaml:"hotel"`
	HousePrice      int    `yaml:"house_price"`
	HotelPrice      int    `yaml:"hotel_price"`
	Tiers           []int  `yaml:"tiers"`
	Tax             int    `yaml:"tax"`
}

type boardDocument struct {
	Fields []fieldRecord `yaml:"fields"`
}

// Classic 经典伦敦版棋盘，每次调用返回独立的实例
func Classic() *Board {
	b, err := Load(bytes.NewReader(classicData))
	if err != nil {
		panic(fmt.Sprintf("classic board: %v", err))
	}
	return b
}

// Load 从 YAML 描述构建棋盘
func Load(r io.Reader) (*Board, error) {
	var doc boardDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	if len(doc.Fields) != Size {
		return nil, fmt.Errorf("board must have %d fields, got %d", Size, len(doc.Fields))
	}

	b := &Board{
		fields: make([]*Field, 0, Size),
		sets:   make(map[string][]int),
	}
	for i, rec := range doc.Fields {
		f, err := rec.build(i)
		if err != nil {
			return nil, err
		}
		if f.Property != nil {
			b.sets[f.Property.Set] = append(b.sets[f.Property.Set], i)
		}
		b.fields = append(b.fields, f)
	}

	if b.fields[Jail].Kind != KindJail {
		return nil, fmt.Errorf("field %d must be the jail, got %s", Jail, b.fields[Jail].Kind)
	}
	for i, f := range b.fields[:Length] {
		if f.Kind == KindJail {
			return nil, fmt.Errorf("jail at playable index %d", i)
		}
	}
	return b, nil
}

func (rec fieldRecord) build(index int) (*Field, error) {
	kind, err := ParseKind(rec.Kind)
	if err != nil {
		return nil, fmt.Errorf("field %d: %w", index, err)
	}

	f := &Field{Index: index, Key: rec.Key, Name: rec.Name, Kind: kind}
	if kind == KindTax {
		f.Tax = rec.Tax
	}
	if !kind.IsProperty() {
		return f, nil
	}

	if rec.Set == "" {
		return nil, fmt.Errorf("property %q has no set", rec.Key)
	}
	f.Property = &PropertyTerms{
		Price:           rec.Price,
		Set:             rec.Set,
		MortgageValue:   rec.MortgageValue,
		UnmortgagePrice: rec.UnmortgagePrice,
	}

	switch kind {
	case KindStreet:
		if len(rec.Houses) != 4 {
			return nil, fmt.Errorf("street %q needs 4 house tiers", rec.Key)
		}
		f.Street = &StreetTerms{
			Color:      rec.Set,
			Rent:       rec.Rent,
			DoubleRent: rec.DoubleRent,
			Hotel:      rec.Hotel,
			HousePrice: rec.HousePrice,
			HotelPrice: rec.HotelPrice,
		}
		copy(f.Street.Houses[:], rec.Houses)
	default:
		if len(rec.Tiers) == 0 {
			return nil, fmt.Errorf("%s %q has no rent tiers", kind, rec.Key)
		}
		f.Tiered = &TieredTerms{Tiers: append([]int(nil), rec.Tiers...)}
	}
	return f, nil
}

// Field 按索引获取格子，越界返回 nil
func (b *Board) Field(index int) *Field {
	if index < 0 || index >= len(b.fields) {
		return nil
	}
	return b.fields[index]
}

// Fields 全部格子，返回的切片可自由修改
func (b *Board) Fields() []*Field {
	return append([]*Field(nil), b.fields...)
}

// Len 格子总数（含监狱）
func (b *Board) Len() int {
	return len(b.fields)
}

// Set 套组内的格子索引
func (b *Board) Set(name string) []int {
	return b.sets[name]
}

// NearestOfKind 从 position 向前找到最近的指定类型格子
func (b *Board) NearestOfKind(position int, kind Kind) (int, bool) {
	for step := 1; step <= Length; step++ {
		i := Advance(position, step)
		if b.fields[i].Kind == kind {
			return i, true
		}
	}
	return 0, false
}
