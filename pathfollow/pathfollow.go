// Package pathfollow tracks a unit's progress along a planned polyline.
// Waypoints are stored destination-first, so the cursor only ever counts
// down; the unit has arrived when the cursor reaches zero and the
// destination is within tolerance.
package pathfollow

import (
	"github.com/golang/geo/r2"

	"github.com/digitalextinction/movementcore/assertx"
	"github.com/digitalextinction/movementcore/geomutil"
)

// CurrentSegmentBias weights advancement along the segment the unit is on.
// A unit pushed off its path by avoidance re-acquires the polyline faster
// because progress on the current segment is consumed at this multiple.
const CurrentSegmentBias = 4.0

// ScheduledPath is the mutable per-unit cursor over a planned polyline.
// waypoints[0] is the destination and waypoints[len-1] the original start.
type ScheduledPath struct {
	waypoints []r2.Point
	current   int
}

// New builds a ScheduledPath from waypoints ordered start->destination, the
// order the planner produces them in.
func New(startToDest []r2.Point) *ScheduledPath {
	assertx.True(len(startToDest) > 0, "pathfollow: empty waypoint list")
	rev := make([]r2.Point, len(startToDest))
	for i, w := range startToDest {
		rev[len(startToDest)-1-i] = w
	}
	return &ScheduledPath{waypoints: rev, current: len(rev) - 1}
}

// Destination returns the final waypoint.
func (p *ScheduledPath) Destination() r2.Point {
	return p.waypoints[0]
}

// Current returns the cursor: the current segment runs from
// waypoints[Current()] to waypoints[Current()-1], so the unit is moving
// toward index Current()-1, and the cursor is zero once the destination is
// reached. It never increases over the path's lifetime.
func (p *ScheduledPath) Current() int {
	return p.current
}

// RemainingLength returns the polyline length still ahead of pos: the
// distance from pos to the end of the current segment plus all segments
// after it.
func (p *ScheduledPath) RemainingLength(pos r2.Point) float64 {
	if p.current == 0 {
		return pos.Sub(p.waypoints[0]).Norm()
	}
	total := pos.Sub(p.waypoints[p.current-1]).Norm()
	for i := p.current - 1; i > 0; i-- {
		total += geomutil.SegmentLength(p.waypoints[i], p.waypoints[i-1])
	}
	return total
}

// Advance walks the cursor forward by distance d from pos and returns the
// point the unit should steer toward this tick. The distance from pos to
// its projection on the path is paid out of d first, so a unit far off
// track steers straight back to the polyline; progress along the current
// segment itself is consumed at CurrentSegmentBias. arrived is true once
// the cursor has reached the destination waypoint.
func (p *ScheduledPath) Advance(pos r2.Point, d float64) (target r2.Point, arrived bool) {
	assertx.True(d >= 0, "pathfollow: negative advance distance %f", d)
	if p.current == 0 {
		return p.waypoints[0], true
	}

	advancement, factor := geomutil.ProjectOnSegment(pos, p.waypoints[p.current], p.waypoints[p.current-1])
	remaining := d - pos.Sub(advancement).Norm()
	if remaining <= 0 {
		return advancement, false
	}

	// The bias applies only while the projection actually lies on the
	// current segment; a unit still behind the segment start advances
	// toward it unbiased.
	biased := p.current
	if factor <= 0 {
		biased = p.current + 1
	}
	for p.current > 0 {
		segmentEnd := p.waypoints[p.current-1]
		remainder := segmentEnd.Sub(advancement)
		remainderLength := remainder.Norm()
		if p.current == biased {
			remainderLength /= CurrentSegmentBias
		}
		if remainderLength > remaining {
			advancement = advancement.Add(remainder.Mul(remaining / remainderLength))
			break
		}
		p.current--
		advancement = segmentEnd
		remaining -= remainderLength
	}
	return advancement, p.current == 0
}
