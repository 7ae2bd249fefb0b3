// v0
// internal/disturbance/profile.go
package disturbance

import (
	"fmt"
	"strings"
)

// Profile names accepted by FromProfile.
const (
	ProfileConstant = "constant"
	ProfileDaily    = "daily"
	ProfileSimplex  = "simplex"
	ProfileBusiness = "business"
)

// ProfileParams are the knobs shared by all named profiles.
type ProfileParams struct {
	BaseExternal float64 `json:"baseExternal"`
	BaseLoad     float64 `json:"baseLoad"`
	Seed         int64   `json:"seed"`
	// Noise enables the random component of profiles that have one.
	Noise bool `json:"noise"`
}

// FromProfile builds a generator by name. The business profile pairs the
// daily outdoor temperature with the hour-of-day load.
func FromProfile(name string, p ProfileParams) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProfileConstant, "":
		return Constant(p.BaseExternal, p.BaseLoad), nil
	case ProfileDaily:
		return daily(p), nil
	case ProfileSimplex:
		return NewSimplex(p.BaseExternal, p.BaseLoad, p.Seed), nil
	case ProfileBusiness:
		jitter := 0.0
		if p.Noise {
			jitter = 1
		}
		return Split(daily(p), NewBusinessHours(jitter, uint64(p.Seed)+1)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
}

func daily(p ProfileParams) *Daily {
	d := NewDaily(p.BaseExternal, p.BaseLoad, uint64(p.Seed))
	if !p.Noise {
		d.ExternalNoise, d.LoadNoise = 0, 0
	}
	return d
}
