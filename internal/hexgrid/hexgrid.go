// Package hexgrid supplies axial hex positions, 6-way adjacency, and the
// radius bound used by the board.
package hexgrid

import (
	"fmt"
	"sort"
)

// Position is an axial hex coordinate. The implicit cube coordinate is
// s = -q - r.
type Position struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// Origin is the board centre.
var Origin = Position{}

// Directions lists the six axial neighbor offsets, clockwise from east.
var Directions = [6]Position{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// At builds a position.
func At(q, r int) Position {
	return Position{Q: q, R: r}
}

// S returns the implicit third cube coordinate.
func (p Position) S() int {
	return -p.Q - p.R
}

// Add returns p offset by d.
func (p Position) Add(d Position) Position {
	return Position{Q: p.Q + d.Q, R: p.R + d.R}
}

// Neighbors returns the six adjacent positions in Directions order.
func (p Position) Neighbors() [6]Position {
	var out [6]Position
	for i, dir := range Directions {
		out[i] = p.Add(dir)
	}
	return out
}

// Adjacent reports whether a and b share an edge.
func Adjacent(a, b Position) bool {
	return Distance(a, b) == 1
}

// Distance returns the hex distance between a and b.
func Distance(a, b Position) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

// Ring returns the distance from the origin.
func (p Position) Ring() int {
	return Distance(p, Origin)
}

// InBounds reports whether p lies on a hexagonal board of the given radius:
// max(|q|, |r|, |q+r|) <= radius.
func (p Position) InBounds(radius int) bool {
	if radius < 0 {
		return false
	}
	return max(abs(p.Q), abs(p.R), abs(p.Q+p.R)) <= radius
}

// Within enumerates every in-bounds position for radius, ordered by ring and
// then by (q, r). A board of radius R holds 3R(R+1)+1 positions.
func Within(radius int) []Position {
	if radius < 0 {
		return nil
	}
	out := make([]Position, 0, 3*radius*(radius+1)+1)
	for q := -radius; q <= radius; q++ {
		for r := max(-radius, -q-radius); r <= min(radius, -q+radius); r++ {
			out = append(out, Position{Q: q, R: r})
		}
	}
	Sort(out)
	return out
}

// Sort orders positions by ring, then q, then r.
func Sort(positions []Position) {
	sort.Slice(positions, func(i, j int) bool {
		return Less(positions[i], positions[j])
	})
}

// Less is the ordering used by Sort.
func Less(a, b Position) bool {
	ra, rb := a.Ring(), b.Ring()
	if ra != rb {
		return ra < rb
	}
	if a.Q != b.Q {
		return a.Q < b.Q
	}
	return a.R < b.R
}

// String renders the position as "(q,r)".
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Q, p.R)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
