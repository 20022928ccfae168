package capture

import "fmt"

// DefaultLadder is ordered from most specific to most permissive.
func DefaultLadder() []ConstraintProfile {
	return []ConstraintProfile{
		{Name: "hd-environment", Resolution: &Resolution{Width: 1280, Height: 720}, Facing: FacingEnvironment, FrameRate: 30},
		{Name: "vga-environment", Resolution: &Resolution{Width: 640, Height: 480}, Facing: FacingEnvironment},
		{Name: "environment", Facing: FacingEnvironment},
		{Name: "hd-user", Resolution: &Resolution{Width: 1280, Height: 720}, Facing: FacingUser},
		{Name: "user", Facing: FacingUser},
		{Name: "any"},
	}
}

// ValidateLadder checks a ladder before it is installed.
func ValidateLadder(profiles []ConstraintProfile) error {
	if len(profiles) == 0 {
		return ErrEmptyLadder
	}
	for i, p := range profiles {
		switch p.Facing {
		case FacingAny, FacingEnvironment, FacingUser:
		default:
			return fmt.Errorf("profile %d (%s): unknown facing %q", i, p, p.Facing)
		}
		if p.Resolution != nil && (p.Resolution.Width <= 0 || p.Resolution.Height <= 0) {
			return fmt.Errorf("profile %d (%s): invalid resolution %s", i, p, p.Resolution)
		}
		if p.FrameRate < 0 {
			return fmt.Errorf("profile %d (%s): negative frame rate", i, p)
		}
	}
	return nil
}

func cloneLadder(profiles []ConstraintProfile) []ConstraintProfile {
	out := make([]ConstraintProfile, len(profiles))
	for i, p := range profiles {
		out[i] = p
		if p.Resolution != nil {
			r := *p.Resolution
			out[i].Resolution = &r
		}
	}
	return out
}
