package params

import (
	"fmt"
	"math"
)

// ValidationSeverity indicates whether a finding makes the parameters
// unusable or only explains an empty frame.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // rejected
	SeverityWarning                           // renders, possibly nothing
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Field    string
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Field, e.Message)
}

// Validate checks p and returns its findings. An empty slice means p is
// valid. Empty clip boxes and zero-width bands are warnings: they render
// nothing but are not faults.
func Validate(p Params) []ValidationError {
	var errs []ValidationError
	add := func(sev ValidationSeverity, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: sev})
	}

	if math.IsNaN(p.IsoLevel) || p.IsoLevel < 0 || p.IsoLevel > 1 {
		add(SeverityError, "isoLevel", "%v is outside [0, 1]", p.IsoLevel)
	}
	if math.IsNaN(p.IsoRange) || p.IsoRange < 0 || p.IsoRange > 1 {
		add(SeverityError, "isoRange", "%v is outside [0, 1]", p.IsoRange)
	} else if p.IsoRange == 0 {
		add(SeverityWarning, "isoRange", "zero-width band, the isosurface is empty")
	}
	if p.RaySteps < MinRaySteps || p.RaySteps > MaxRaySteps {
		add(SeverityError, "raySteps", "%d is outside [%d, %d]", p.RaySteps, MinRaySteps, MaxRaySteps)
	}
	if p.Mode != ModeVolume && p.Mode != ModeIsosurface {
		add(SeverityError, "renderer", "unknown mode %s", p.Mode)
	}

	b := p.ClipBox
	switch {
	case b.Empty():
		add(SeverityWarning, "clipBox", "box %s is empty, nothing will be drawn", b)
	case b.Min.X < 0 || b.Min.Y < 0 || b.Min.Z < 0 || b.Max.X > 1 || b.Max.Y > 1 || b.Max.Z > 1:
		add(SeverityWarning, "clipBox", "box %s extends beyond the volume", b)
	}
	return errs
}

// HasErrors reports whether any finding is an error.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
