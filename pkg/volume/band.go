package volume

import "math"

// Band is the half-open density interval [Lo, Hi) that extraction treats as
// solid. Lo and Hi are normalized; extraction compares raw samples against
// Raw so that a band reaching below zero does not swallow the air around a
// scan.
type Band struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// NewBand returns the band centred on level with half-width rng.
func NewBand(level, rng float64) Band {
	return Band{Lo: level - rng, Hi: level + rng}
}

// Threshold returns the single-isovalue band [iso, +Inf).
func Threshold(iso float64) Band {
	return Band{Lo: iso, Hi: math.Inf(1)}
}

// Contains reports whether the normalized density s is inside the band.
func (b Band) Contains(s float64) bool {
	return s >= b.Lo && s < b.Hi
}

// Degenerate reports whether the band can contain nothing.
func (b Band) Degenerate() bool {
	return !(b.Lo < b.Hi)
}

// Raw converts the band bounds to raw sample units. An infinite bound stays
// infinite.
func (b Band) Raw(n Normalization) (lo, hi float64) {
	return n.Raw(b.Lo), n.Raw(b.Hi)
}
