// Package config collects the tunable constants of the movement core into
// one validated struct. Values are metres, seconds and radians throughout.
package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Tuning holds every knob the simulation reads. The zero value is not
// valid; start from Default.
type Tuning struct {
	// ExclusionOffset inflates obstacle footprints so unit discs cannot
	// clip geometry, and insets the playable area from the map edge.
	ExclusionOffset float64
	// TileSize is the spatial index's uniform grid pitch.
	TileSize float64

	MaxSpeed        float64
	MaxAcceleration float64
	MaxAngularSpeed float64

	MaxVSpeed        float64
	MaxVAcceleration float64
	GAcceleration    float64

	// TargetTolerance is how close to a destination counts as arrived.
	TargetTolerance float64

	MaxSearchSteps int
	MaxOpenSetSize int

	// CacheTTL ages entries out of the per-unit nearby-obstacle caches.
	CacheTTL time.Duration
}

// Default returns the production tuning.
func Default() Tuning {
	return Tuning{
		ExclusionOffset:  2.0,
		TileSize:         10.0,
		MaxSpeed:         10.0,
		MaxAcceleration:  10.0,
		MaxAngularSpeed:  3.0,
		MaxVSpeed:        4.0,
		MaxVAcceleration: 8.0,
		GAcceleration:    9.8,
		TargetTolerance:  2.0,
		MaxSearchSteps:   10_000_000,
		MaxOpenSetSize:   1_000_000,
		CacheTTL:         500 * time.Millisecond,
	}
}

// Validate returns every constraint violation in t, combined.
func (t Tuning) Validate() error {
	var err error
	positive := func(name string, v float64) {
		if v <= 0 {
			err = multierr.Append(err, fmt.Errorf("config: %s must be positive, got %f", name, v))
		}
	}
	positive("ExclusionOffset", t.ExclusionOffset)
	positive("TileSize", t.TileSize)
	positive("MaxSpeed", t.MaxSpeed)
	positive("MaxAcceleration", t.MaxAcceleration)
	positive("MaxAngularSpeed", t.MaxAngularSpeed)
	positive("MaxVSpeed", t.MaxVSpeed)
	positive("MaxVAcceleration", t.MaxVAcceleration)
	positive("GAcceleration", t.GAcceleration)
	positive("TargetTolerance", t.TargetTolerance)
	if t.MaxSearchSteps <= 0 {
		err = multierr.Append(err, fmt.Errorf("config: MaxSearchSteps must be positive, got %d", t.MaxSearchSteps))
	}
	if t.MaxOpenSetSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("config: MaxOpenSetSize must be positive, got %d", t.MaxOpenSetSize))
	}
	if t.CacheTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("config: CacheTTL must be positive, got %s", t.CacheTTL))
	}
	return err
}
