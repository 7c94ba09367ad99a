package polyanya

import (
	"github.com/golang/geo/r2"

	"github.com/digitalextinction/movementcore/geomutil"
)

// trimToProps shortens path so its endpoint lies between props.MinDistance
// and props.MaxDistance from target. Exceeding MaxDistance after trimming
// is a search failure.
func trimToProps(path Path, target r2.Point, props Properties) (Path, bool) {
	if len(path.Waypoints) == 0 {
		return path, false
	}
	if props.MinDistance > 0 {
		trimmed, ok := geomutil.TruncatePolyline(path.Waypoints, props.MinDistance)
		if !ok {
			return Path{}, false
		}
		path = Path{Waypoints: trimmed}
	}
	end := path.Waypoints[len(path.Waypoints)-1]
	if end.Sub(target).Norm() > props.MaxDistance {
		return Path{}, false
	}
	return path, true
}
