package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollProperties(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		sum    int
		double bool
	}{
		{"double", []int{3, 3}, 6, true},
		{"plain", []int{1, 2}, 3, false},
		{"single die never double", []int{4}, 4, false},
		{"three of a kind", []int{2, 2, 2}, 6, true},
		{"three mixed", []int{2, 2, 5}, 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRoll(tt.values...)
			assert.Equal(t, tt.sum, r.Sum())
			assert.Equal(t, tt.double, r.IsDouble())
			assert.Equal(t, tt.values, r.Values())
		})
	}
}

func TestRollValuesIsCopy(t *testing.T) {
	r := NewRoll(1, 2)
	v := r.Values()
	v[0] = 6
	assert.Equal(t, []int{1, 2}, r.Values())
}

func TestRegisteredRollTracksDoubles(t *testing.T) {
	d := New(2, 6, Scripted(3, 3, 4, 4, 1, 2))

	r := d.Roll(true)
	assert.Equal(t, []int{3, 3}, r.Values())
	assert.Equal(t, 1, d.Doubles())

	d.Roll(true)
	assert.Equal(t, 2, d.Doubles())
	assert.False(t, d.TripleDouble())

	d.Roll(true)
	assert.Equal(t, 0, d.Doubles())
	assert.Equal(t, 3, d.LastRoll().Sum())
}

func TestTripleDouble(t *testing.T) {
	d := New(2, 6, Scripted(1, 1, 2, 2, 6, 6))
	for i := 0; i < 3; i++ {
		d.Roll(true)
	}
	assert.True(t, d.TripleDouble())

	d.Reset()
	assert.False(t, d.TripleDouble())
	assert.True(t, d.LastRoll().IsZero())
}

func TestUnregisteredRollLeavesState(t *testing.T) {
	d := New(2, 6, Scripted(2, 2, 5, 5))
	first := d.Roll(true)

	extra := d.Roll(false)
	assert.Equal(t, []int{5, 5}, extra.Values())
	assert.Equal(t, first, d.LastRoll())
	assert.Equal(t, 1, d.Doubles())
}

func TestSeededRollsInRange(t *testing.T) {
	rng, seed, err := NewRand(0)
	require.NoError(t, err)
	assert.NotZero(t, seed)

	d := New(2, 6, rng)
	for i := 0; i < 500; i++ {
		for _, v := range d.Roll(true).Values() {
			assert.GreaterOrEqual(t, v, 1)
			assert.LessOrEqual(t, v, 6)
		}
	}
}

func TestNewRandDeterministic(t *testing.T) {
	a, _, err := NewRand(42)
	require.NoError(t, err)
	b, _, err := NewRand(42)
	require.NoError(t, err)

	da, db := New(2, 6, a), New(2, 6, b)
	for i := 0; i < 20; i++ {
		assert.Equal(t, da.Roll(true).Values(), db.Roll(true).Values())
	}
}

func TestScriptedCycles(t *testing.T) {
	s := Scripted(6)
	assert.Equal(t, 5, s.Intn(6))
	assert.Equal(t, 5, s.Intn(6))
	s.Push(1)
	s.next = 1
	assert.Equal(t, 0, s.Intn(6))
}
