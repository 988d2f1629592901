package raymarch

import (
	"math"

	"github.com/chazu/medvol/pkg/clip"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// BoxIntersect intersects the ray ro + t·rd with box using the slab method.
// It reports a hit when the exit lies in front of the origin and after the
// entry. tEnter is negative when ro is inside the box. An empty box never
// hits.
func BoxIntersect(ro, rd v3.Vec, box clip.Box) (tEnter, tExit float64, ok bool) {
	if box.Empty() {
		return 0, 0, false
	}
	tEnter, tExit = math.Inf(-1), math.Inf(1)
	o := [3]float64{ro.X, ro.Y, ro.Z}
	d := [3]float64{rd.X, rd.Y, rd.Z}
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}

	for a := 0; a < 3; a++ {
		inv := 1 / d[a]
		t0 := (lo[a] - o[a]) * inv
		t1 := (hi[a] - o[a]) * inv
		// A ray parallel to the slab and starting on its plane gives 0·Inf.
		if math.IsNaN(t0) {
			t0 = math.Inf(-1)
		}
		if math.IsNaN(t1) {
			t1 = math.Inf(1)
		}
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tEnter = math.Max(tEnter, t0)
		tExit = math.Min(tExit, t1)
	}

	if tExit > 0 && tEnter < tExit {
		return tEnter, tExit, true
	}
	return 0, 0, false
}
