package pathfind

import (
	"image"
	"strings"
	"testing"
)

// grid parses rows of '.' (open) and '#' (blocked).
func grid(rows ...string) (Blocked, int, int) {
	h := len(rows)
	w := len(rows[0])
	return func(p image.Point) bool {
		return rows[p.Y][p.X] == '#'
	}, w, h
}

func TestFindPath(t *testing.T) {
	cases := []struct {
		name    string
		rows    []string
		start   image.Point
		goal    image.Point
		wantLen int // -1 = no path
	}{
		{"straight", []string{"....."}, image.Pt(0, 0), image.Pt(4, 0), 4},
		{"around_wall", []string{
			"...",
			"##.",
			"...",
		}, image.Pt(0, 0), image.Pt(0, 2), 6},
		{"walled_off", []string{
			".#.",
			".#.",
			".#.",
		}, image.Pt(0, 0), image.Pt(2, 2), -1},
		{"goal_blocked", []string{"..#"}, image.Pt(0, 0), image.Pt(2, 0), -1},
		{"goal_outside", []string{"..."}, image.Pt(0, 0), image.Pt(5, 0), -1},
		{"same_cell", []string{"..."}, image.Pt(1, 0), image.Pt(1, 0), -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			blocked, w, h := grid(c.rows...)
			path := AStar{}.FindPath(blocked, w, h, c.start, c.goal)
			if c.wantLen < 0 {
				if len(path) != 0 {
					t.Fatalf("expected no path, got %v", path)
				}
				return
			}
			if len(path) != c.wantLen {
				t.Fatalf("path length = %d, want %d (%v)", len(path), c.wantLen, path)
			}
			if path[len(path)-1] != c.goal {
				t.Fatalf("path ends at %v, want %v", path[len(path)-1], c.goal)
			}
			prev := c.start
			for _, p := range path {
				d := p.Sub(prev)
				if abs(d.X)+abs(d.Y) != 1 {
					t.Fatalf("non-adjacent step %v -> %v", prev, p)
				}
				if blocked(p) {
					t.Fatalf("path crosses blocked cell %v", p)
				}
				prev = p
			}
		})
	}
}

func TestFindPathRespectsNodeLimit(t *testing.T) {
	rows := make([]string, 20)
	for i := range rows {
		rows[i] = strings.Repeat(".", 20)
	}
	blocked, w, h := grid(rows...)
	if path := (AStar{MaxNodes: 3}).FindPath(blocked, w, h, image.Pt(0, 0), image.Pt(19, 19)); path != nil {
		t.Fatalf("expected search to give up, got %d steps", len(path))
	}
	if path := (AStar{}).FindPath(blocked, w, h, image.Pt(0, 0), image.Pt(19, 19)); len(path) != 38 {
		t.Fatalf("path length = %d, want 38", len(path))
	}
}

func TestFindPathLongCorridor(t *testing.T) {
	cases := []struct {
		name string
		w, h int
		goal image.Point
		want int
	}{
		{"straight", 6000, 1, image.Pt(5000, 0), 5000},
		{"far_end", 6000, 1, image.Pt(5999, 0), 5999},
		{"wide_open", 100, 100, image.Pt(99, 99), 198},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := AStar{}.FindPath(nil, c.w, c.h, image.Pt(0, 0), c.goal)
			if len(path) != c.want {
				t.Fatalf("path length = %d, want %d", len(path), c.want)
			}
			if path[len(path)-1] != c.goal {
				t.Fatalf("path ends at %v, want %v", path[len(path)-1], c.goal)
			}
		})
	}
}
