// Package seatmap lays out the 40-seat coach used by every tour and works out
// which of those seats can still be sold.
package seatmap

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

const (
	SeatsPerRow = 4
	// Size is the number of seats on the coach: 9 rows of 4 plus 4 back-row singletons.
	Size = 40
)

var (
	mainRows = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	backRow  = []string{"J", "K", "L", "M"}
)

type Seat struct {
	ID          string `json:"id"`
	Row         string `json:"row"`
	Number      int    `json:"number"`
	IsAvailable bool   `json:"isAvailable"`
}

// Map is an ordered seat layout: the 36 grid seats first, then the back row.
type Map []Seat

// Layout returns every seat marked available.
func Layout() Map {
	seats := make(Map, 0, Size)
	for _, row := range mainRows {
		for num := 1; num <= SeatsPerRow; num++ {
			seats = append(seats, Seat{ID: fmt.Sprintf("%s%d", row, num), Row: row, Number: num, IsAvailable: true})
		}
	}
	for _, id := range backRow {
		seats = append(seats, Seat{ID: id, Row: id, Number: 1, IsAvailable: true})
	}
	return seats
}

// Valid reports whether id names a seat on the coach.
func Valid(id string) bool {
	for _, s := range Layout() {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (m Map) Find(id string) (Seat, bool) {
	for _, s := range m {
		if s.ID == id {
			return s, true
		}
	}
	return Seat{}, false
}

func (m Map) Available(id string) bool {
	s, ok := m.Find(id)
	return ok && s.IsAvailable
}

func (m Map) AvailableCount() int {
	n := 0
	for _, s := range m {
		if s.IsAvailable {
			n++
		}
	}
	return n
}

// Derive marks every seat in taken unavailable.
func Derive(taken map[string]bool) Map {
	seats := Layout()
	for i := range seats {
		seats[i].IsAvailable = !taken[seats[i].ID]
	}
	return seats
}

// Random marks each seat available independently with probability p.
func Random(rnd *rand.Rand, p float64) Map {
	seats := Layout()
	for i := range seats {
		seats[i].IsAvailable = rnd.Float64() < p
	}
	return seats
}

type Mode string

const (
	ModeDerived Mode = "derived"
	ModeRandom  Mode = "random"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDerived, "":
		return ModeDerived, nil
	case ModeRandom:
		return ModeRandom, nil
	}
	return "", fmt.Errorf("unknown seat map mode %q", s)
}

// Occupancy reports the seats already sold or held for a tour departure.
// Holds owned by holder are not reported.
type Occupancy interface {
	TakenSeats(ctx context.Context, tourID uint, date, holder string) (map[string]bool, error)
}

type Generator struct {
	mode      Mode
	occupancy Occupancy
	openProb  float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(mode Mode, occupancy Occupancy, openProb float64, rnd *rand.Rand) *Generator {
	return &Generator{mode: mode, occupancy: occupancy, openProb: openProb, rnd: rnd}
}

func (g *Generator) Mode() Mode {
	return g.mode
}

// Generate builds the seat map a given holder sees for a tour departure.
func (g *Generator) Generate(ctx context.Context, tourID uint, date, holder string) (Map, error) {
	if g.mode == ModeRandom {
		g.mu.Lock()
		defer g.mu.Unlock()
		return Random(g.rnd, g.openProb), nil
	}

	taken, err := g.occupancy.TakenSeats(ctx, tourID, date, holder)
	if err != nil {
		return nil, fmt.Errorf("failed to load seat occupancy: %w", err)
	}
	return Derive(taken), nil
}
