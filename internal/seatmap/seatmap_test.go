package seatmap

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	seats := Layout()
	require.Len(t, seats, Size)

	assert.Equal(t, Seat{ID: "A1", Row: "A", Number: 1, IsAvailable: true}, seats[0])
	assert.Equal(t, "I4", seats[35].ID)
	assert.Equal(t, []string{"J", "K", "L", "M"}, []string{seats[36].ID, seats[37].ID, seats[38].ID, seats[39].ID})

	ids := map[string]bool{}
	for _, s := range seats {
		assert.False(t, ids[s.ID], "duplicate seat %s", s.ID)
		ids[s.ID] = true
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("C3"))
	assert.True(t, Valid("M"))
	assert.False(t, Valid("A5"))
	assert.False(t, Valid("J1"))
	assert.False(t, Valid(""))
}

func TestDerive(t *testing.T) {
	m := Derive(map[string]bool{"A1": true, "K": true})
	assert.False(t, m.Available("A1"))
	assert.False(t, m.Available("K"))
	assert.True(t, m.Available("A2"))
	assert.False(t, m.Available("Z9"))
	assert.Equal(t, Size-2, m.AvailableCount())
}

func TestRandomIsReproducibleWithSeed(t *testing.T) {
	a := Random(rand.New(rand.NewSource(7)), 0.7)
	b := Random(rand.New(rand.NewSource(7)), 0.7)
	assert.Equal(t, a, b)

	assert.Equal(t, Size, Random(rand.New(rand.NewSource(1)), 1).AvailableCount())
	assert.Equal(t, 0, Random(rand.New(rand.NewSource(1)), 0).AvailableCount())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeDerived, m)

	m, err = ParseMode("random")
	require.NoError(t, err)
	assert.Equal(t, ModeRandom, m)

	_, err = ParseMode("chaos")
	assert.Error(t, err)
}

type fakeOccupancy struct {
	taken  map[string]bool
	err    error
	holder string
}

func (f *fakeOccupancy) TakenSeats(ctx context.Context, tourID uint, date, holder string) (map[string]bool, error) {
	f.holder = holder
	return f.taken, f.err
}

func TestGeneratorDerived(t *testing.T) {
	occ := &fakeOccupancy{taken: map[string]bool{"B2": true}}
	g := NewGenerator(ModeDerived, occ, 0.7, nil)

	m, err := g.Generate(context.Background(), 2, "2024-03-01", "draft-1")
	require.NoError(t, err)
	assert.False(t, m.Available("B2"))
	assert.Equal(t, "draft-1", occ.holder)

	occ.err = errors.New("redis down")
	_, err = g.Generate(context.Background(), 2, "2024-03-01", "draft-1")
	assert.ErrorIs(t, err, occ.err)
}

func TestGeneratorRandomIgnoresOccupancy(t *testing.T) {
	g := NewGenerator(ModeRandom, nil, 1, rand.New(rand.NewSource(3)))
	m, err := g.Generate(context.Background(), 1, "2024-03-01", "")
	require.NoError(t, err)
	assert.Equal(t, Size, m.AvailableCount())
}
