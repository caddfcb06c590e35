package movement

import (
	"container/heap"

	"github.com/louisbranch/boardrules/internal/hexgrid"
)

type frontierItem struct {
	pos       hexgrid.Position
	remaining int
}

// frontier is a max-heap on remaining budget; ties break on ring order so
// explanations come out in the same order every run.
type frontier []frontierItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].remaining != f[j].remaining {
		return f[i].remaining > f[j].remaining
	}
	return hexgrid.Less(f[i].pos, f[j].pos)
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(frontierItem)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// search spreads the set's budget outward from its origin. A position is
// expanded again only when reached with strictly more budget than before,
// and remaining budget never exceeds the starting budget, so the search
// terminates even when relations refund budget.
func search(set *ValidMoveSet, steps *stepper, radius int) {
	origin, start := set.Origin, set.Budget
	queue := &frontier{{pos: origin, remaining: start}}
	for queue.Len() > 0 {
		current := heap.Pop(queue).(frontierItem)
		if current.pos != origin && current.remaining < set.Valid[current.pos] {
			continue
		}
		for _, next := range current.pos.Neighbors() {
			if next == origin || !next.InBounds(radius) {
				continue
			}
			result := steps.evaluate(next, current.remaining)
			if !result.valid {
				set.block(next, result.reasons)
				continue
			}
			remaining := min(result.remaining, start)
			if set.allow(next, remaining) && remaining > 0 {
				heap.Push(queue, frontierItem{pos: next, remaining: remaining})
			}
		}
	}
}
