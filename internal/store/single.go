package store

import (
	"sort"

	"energy_dashboard/internal/model"
)

// SingleValueTable is a time-series table projected onto one simulation model.
type SingleValueTable map[string]map[string]model.SingleValueDatum

// Times returns every time bucket, sorted.
func (t SingleValueTable) Times() []string {
	times := make([]string, 0, len(t))
	for time := range t {
		times = append(times, time)
	}
	sort.Strings(times)
	return times
}

// Sum adds up every key across all time buckets. Missing values are ignored,
// so a key is null only when it is null everywhere.
func (t SingleValueTable) Sum() map[string]model.SingleValueDatum {
	summed := make(map[string]model.SingleValueDatum)
	for _, row := range t {
		for key, d := range row {
			acc := summed[key]
			acc.Measured = addIfExists(acc.Measured, d.Measured)
			acc.Modeled = addIfExists(acc.Modeled, d.Modeled)
			summed[key] = acc
		}
	}
	return summed
}

func addIfExists(acc, v *float64) *float64 {
	if v == nil {
		return acc
	}
	if acc == nil {
		return model.Float(*v)
	}
	return model.Float(*acc + *v)
}
