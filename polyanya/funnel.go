package polyanya

import (
	"github.com/golang/geo/r2"

	"github.com/digitalextinction/movementcore/geomutil"
)

// funnelPortal is one gate the path must pass through, given as its left
// and right bound from the traveller's perspective.
type funnelPortal struct {
	Left, Right r2.Point
}

// runFunnel implements the "simple stupid funnel algorithm": it walks the
// portal corridor maintaining an apex and a left/right bound, advancing the
// apex to a pinch point whenever a new portal edge would cross to the wrong
// side of the opposite bound. Ties on collinear points favor whichever side
// keeps the funnel open, which is the shorter of the two totals.
func runFunnel(start, end r2.Point, portals []funnelPortal) []r2.Point {
	all := make([]funnelPortal, 0, len(portals)+1)
	all = append(all, portals...)
	all = append(all, funnelPortal{Left: end, Right: end})

	path := []r2.Point{start}
	apex, left, right := start, start, start
	apexIndex, leftIndex, rightIndex := -1, 0, 0

	for i := 0; i < len(all); i++ {
		p := all[i]

		if geomutil.Orient2D(apex, right, p.Right) <= 0 {
			if apex == right || geomutil.Orient2D(apex, left, p.Right) > 0 {
				right = p.Right
				rightIndex = i
			} else {
				path = append(path, left)
				apex, left, right = left, left, left
				apexIndex = leftIndex
				i = apexIndex
				continue
			}
		}

		if geomutil.Orient2D(apex, left, p.Left) >= 0 {
			if apex == left || geomutil.Orient2D(apex, right, p.Left) < 0 {
				left = p.Left
				leftIndex = i
			} else {
				path = append(path, right)
				apex, left, right = right, right, right
				apexIndex = rightIndex
				i = apexIndex
				continue
			}
		}
	}

	path = append(path, end)
	return dedupPoints(path)
}

func dedupPoints(pts []r2.Point) []r2.Point {
	out := pts[:0:0]
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}
