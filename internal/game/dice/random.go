package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Source 均匀分布的整数来源，*rand.Rand 满足该接口
type Source interface {
	Intn(n int) int
}

// Shuffler 洗牌来源，*rand.Rand 满足该接口
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// NewSeed 使用 crypto/rand 生成随机种子
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRand 创建伪随机数生成器，seed 为 0 时自动生成种子
func NewRand(seed int64) (*rand.Rand, int64, error) {
	if seed == 0 {
		var err error
		if seed, err = NewSeed(); err != nil {
			return nil, 0, err
		}
	}
	return rand.New(rand.NewSource(seed)), seed, nil
}

// ScriptedSource 按预设点数依次出骰，用于测试；用完后从头循环
type ScriptedSource struct {
	faces []int
	next  int
}

// Scripted 创建预设点数来源，faces 为骰面点数（1 起）
func Scripted(faces ...int) *ScriptedSource {
	return &ScriptedSource{faces: faces}
}

// Intn 返回下一个预设点数减一
func (s *ScriptedSource) Intn(n int) int {
	if len(s.faces) == 0 {
		return 0
	}
	face := s.faces[s.next%len(s.faces)]
	s.next++
	return ((face-1)%n + n) % n
}

// Push 追加预设点数
func (s *ScriptedSource) Push(faces ...int) {
	s.faces = append(s.faces, faces...)
}

// NoShuffle 保持原顺序的洗牌来源，用于测试
type NoShuffle struct{}

// Shuffle 不做任何交换
func (NoShuffle) Shuffle(int, func(i, j int)) {}
