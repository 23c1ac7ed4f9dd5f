// Package pathfind finds routes across a tile grid.
package pathfind

import (
	"container/heap"
	"image"
)

// Blocked reports whether a cell cannot be entered.
type Blocked func(p image.Point) bool

// AStar is a 4-way grid A* search.
type AStar struct {
	// MaxNodes limits expansions; zero means every cell of the grid, so a
	// nil result always means no route exists.
	MaxNodes int
}

// FindPath returns the cells to step through from start to goal, excluding
// start and including goal. It returns nil when goal is unreachable, out of
// the w x h grid, blocked, or equal to start.
func (a AStar) FindPath(blocked Blocked, w, h int, start, goal image.Point) []image.Point {
	if w <= 0 || h <= 0 || start == goal {
		return nil
	}
	bounds := image.Rect(0, 0, w, h)
	if !start.In(bounds) || !goal.In(bounds) {
		return nil
	}
	if blocked != nil && blocked(goal) {
		return nil
	}

	maxNodes := a.MaxNodes
	if maxNodes <= 0 {
		maxNodes = w * h
	}

	idx := func(p image.Point) int { return p.Y*w + p.X }
	startIdx, goalIdx := idx(start), idx(goal)

	cameFrom := make(map[int]int, 128)
	gScore := map[int]int{startIdx: 0}
	closed := make(map[int]bool, 128)

	open := &nodeQueue{}
	heap.Push(open, node{p: start, f: heuristic(start, goal)})

	neighbors := [4]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for expanded := 0; open.Len() > 0 && expanded < maxNodes; {
		current := heap.Pop(open).(node)
		ci := idx(current.p)
		if closed[ci] {
			continue
		}
		closed[ci] = true
		expanded++

		if ci == goalIdx {
			return reconstruct(cameFrom, ci, startIdx, w)
		}

		for _, d := range neighbors {
			n := current.p.Add(d)
			if !n.In(bounds) {
				continue
			}
			if blocked != nil && blocked(n) {
				continue
			}
			ni := idx(n)
			tentative := gScore[ci] + 1
			if prev, seen := gScore[ni]; seen && tentative >= prev {
				continue
			}
			cameFrom[ni] = ci
			gScore[ni] = tentative
			heap.Push(open, node{p: n, g: tentative, f: tentative + heuristic(n, goal)})
		}
	}
	return nil
}

func reconstruct(cameFrom map[int]int, current, startIdx, w int) []image.Point {
	path := make([]image.Point, 0, 32)
	for current != startIdx {
		path = append(path, image.Pt(current%w, current/w))
		prev, ok := cameFrom[current]
		if !ok {
			return nil
		}
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func heuristic(a, b image.Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type node struct {
	p    image.Point
	g, f int
}

// nodeQueue orders by f, breaking ties towards larger g so searches run
// deeper before wider.
type nodeQueue []node

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].g > q[j].g
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x any) { *q = append(*q, x.(node)) }

func (q *nodeQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}
