package store

import (
	"sort"

	"energy_dashboard/internal/model"
)

// TimeSeries holds one request's observations, indexed by time bucket and key.
//
// It is not safe for concurrent writes. The fetcher fans in all responses
// before populating it and the evaluator runs strictly afterwards.
type TimeSeries struct {
	data map[string]map[string]*model.Datum // time -> key -> datum
}

func New() *TimeSeries {
	return &TimeSeries{
		data: make(map[string]map[string]*model.Datum),
	}
}

// datum returns the record for (time, key), creating it if needed.
func (s *TimeSeries) datum(time, key string) *model.Datum {
	byKey, ok := s.data[time]
	if !ok {
		byKey = make(map[string]*model.Datum)
		s.data[time] = byKey
	}
	d, ok := byKey[key]
	if !ok {
		d = &model.Datum{}
		byKey[key] = d
	}
	return d
}

// UpsertMeasured records a measured value. A nil value still creates the
// record (an explicit null) but never clears a number already recorded.
func (s *TimeSeries) UpsertMeasured(time, key string, value *float64) {
	d := s.datum(time, key)
	if value != nil {
		v := *value
		d.Measured = &v
	}
}

// UpsertModeled merges per-model values into the record. A nil map creates the
// record without touching modeled values.
func (s *TimeSeries) UpsertModeled(time, key string, values map[string]*float64) {
	d := s.datum(time, key)
	if values == nil {
		return
	}
	if d.Modeled == nil {
		d.Modeled = make(map[string]*float64, len(values))
	}
	for m, v := range values {
		if v == nil {
			d.Modeled[m] = nil
			continue
		}
		val := *v
		d.Modeled[m] = &val
	}
}

// Datum returns a copy of the record for (time, key).
func (s *TimeSeries) Datum(time, key string) (model.Datum, bool) {
	d, ok := s.data[time][key]
	if !ok {
		return model.Datum{}, false
	}
	return *d, true
}

// Keys returns the records at one time bucket.
func (s *TimeSeries) Keys(time string) map[string]model.Datum {
	byKey := s.data[time]
	out := make(map[string]model.Datum, len(byKey))
	for k, d := range byKey {
		out[k] = *d
	}
	return out
}

// Data returns a copy of the full table.
func (s *TimeSeries) Data() map[string]map[string]model.Datum {
	out := make(map[string]map[string]model.Datum, len(s.data))
	for t := range s.data {
		out[t] = s.Keys(t)
	}
	return out
}

// Times returns every time bucket, sorted.
func (s *TimeSeries) Times() []string {
	times := make([]string, 0, len(s.data))
	for t := range s.data {
		times = append(times, t)
	}
	sort.Strings(times)
	return times
}

// Len returns the number of time buckets.
func (s *TimeSeries) Len() int {
	return len(s.data)
}

// Select returns a table holding only the given time bucket. The records are
// shared with s.
func (s *TimeSeries) Select(time string) (*TimeSeries, bool) {
	byKey, ok := s.data[time]
	if !ok {
		return nil, false
	}
	return &TimeSeries{data: map[string]map[string]*model.Datum{time: byKey}}, true
}

// FilterMeasured returns a table without the time buckets that carry no
// measured number at all. The records are shared with s.
func (s *TimeSeries) FilterMeasured() *TimeSeries {
	out := New()
	for t, byKey := range s.data {
		for _, d := range byKey {
			if d.Measured != nil {
				out.data[t] = byKey
				break
			}
		}
	}
	return out
}

// SingleModel projects the table onto one simulation model. An empty model
// yields null modeled values throughout.
func (s *TimeSeries) SingleModel(modelName string) SingleValueTable {
	out := make(SingleValueTable, len(s.data))
	for t, byKey := range s.data {
		row := make(map[string]model.SingleValueDatum, len(byKey))
		for k, d := range byKey {
			sv := model.SingleValueDatum{Measured: d.Measured}
			if modelName != "" {
				sv.Modeled = d.ModelValue(modelName)
			}
			row[k] = sv
		}
		out[t] = row
	}
	return out
}
