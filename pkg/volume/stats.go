package volume

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the density distribution of a volume.
type Stats struct {
	Min, Max float64
	Mean     float64
	StdDev   float64
	Median   float64

	// Occupancy is the fraction of voxels with non-zero density.
	Occupancy float64
}

// Stats computes the density summary. The median uses the empirical
// quantile of the sorted densities.
func (v *Volume) Stats() Stats {
	xs := make([]float64, len(v.data))
	occupied := 0
	for i, d := range v.data {
		xs[i] = float64(d)
		if d > 0 {
			occupied++
		}
	}
	sort.Float64s(xs)

	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}
	return Stats{
		Min:       xs[0],
		Max:       xs[len(xs)-1],
		Mean:      mean,
		StdDev:    std,
		Median:    stat.Quantile(0.5, stat.Empirical, xs, nil),
		Occupancy: float64(occupied) / float64(len(xs)),
	}
}
