package kinematic

import (
	"math"

	"github.com/digitalextinction/movementcore/assertx"
)

// FlightProfile parameterises the 1-D altitude controller. Ground units
// use a profile with MaxHeight zero and share the same code path.
type FlightProfile struct {
	MaxHeight float64
	MaxVSpeed float64
	// MaxVAcceleration is the thrust available to brake a descent;
	// GAcceleration brakes an ascent (cut thrust and let gravity work).
	MaxVAcceleration float64
	GAcceleration    float64
}

// Grounded reports whether the profile belongs to a non-flying unit.
func (p FlightProfile) Grounded() bool {
	return p.MaxHeight == 0
}

// DesiredVerticalSpeed returns the vertical speed to fly at given the
// current height and whether the unit is moving horizontally. The target
// altitude is MaxHeight while moving and 0 when parked; the returned speed
// is capped so the unit can always stop at the target within its braking
// capacity: v = sign(Δh) · min(MaxVSpeed, sqrt(2·|Δh|·a_brake)).
func (p FlightProfile) DesiredVerticalSpeed(height float64, moving bool) float64 {
	assertx.True(!math.IsNaN(height), "kinematic: non-finite height")
	if p.Grounded() {
		return 0
	}

	targetHeight := 0.0
	if moving {
		targetHeight = p.MaxHeight
	}
	delta := targetHeight - height
	if delta == 0 {
		return 0
	}

	brake := p.GAcceleration // ascending: gravity stops the climb
	if delta < 0 {
		brake = p.MaxVAcceleration // descending: thrust stops the fall
	}
	speed := math.Min(p.MaxVSpeed, math.Sqrt(2*math.Abs(delta)*brake))
	return math.Copysign(speed, delta)
}
