package volume

import "math"

// Raw sample values of the phantom's tissue shells.
const (
	phantomTissue = DefaultOffset + 0.35*DefaultScale
	phantomSkull  = DefaultOffset + 0.95*DefaultScale
	phantomBrain  = DefaultOffset + 0.55*DefaultScale
)

// Phantom synthesizes a head-like test scan in raw units: concentric
// ellipsoids of soft tissue, bone and brain surrounded by air.
func Phantom(dims [3]int) []uint16 {
	raw := make([]uint16, dims[0]*dims[1]*dims[2])
	idx := 0
	for k := 0; k < dims[2]; k++ {
		for j := 0; j < dims[1]; j++ {
			for i := 0; i < dims[0]; i++ {
				x := (float64(i)+0.5)/float64(dims[0]) - 0.5
				y := (float64(j)+0.5)/float64(dims[1]) - 0.5
				z := ((float64(k)+0.5)/float64(dims[2]) - 0.5) * 0.9
				r := math.Sqrt(x*x + y*y + z*z)
				switch {
				case r < 0.30:
					raw[idx] = phantomBrain
				case r < 0.36:
					raw[idx] = phantomSkull
				case r < 0.45:
					raw[idx] = phantomTissue
				}
				idx++
			}
		}
	}
	return raw
}
