package company

// perSourceWeight is the confidence contributed by each independent source.
const perSourceWeight = 0.25

// Score returns the corroboration score of r: 0.25 per distinct data source,
// capped at 1.0. It depends only on the current DataSources.
func Score(r Record) float64 {
	distinct := make(map[string]struct{}, len(r.DataSources))
	for _, s := range r.DataSources {
		distinct[s] = struct{}{}
	}
	return min(1.0, float64(len(distinct))*perSourceWeight)
}
