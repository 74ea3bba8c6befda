package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"energy_dashboard/internal/api"
	"energy_dashboard/internal/model"
)

// SummarySource is the combined measured and modeled endpoint used for bars.
type SummarySource interface {
	SummaryData(ctx context.Context, q api.SummaryQuery) (model.Data, error)
}

// BarRecord holds the values of one time bucket keyed by bar key. It encodes
// as a flat object with a "time" member.
type BarRecord struct {
	Time   string
	Values map[string]float64
}

func (r BarRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	out["time"] = r.Time
	return json.Marshal(out)
}

type BarKey struct {
	Key string `json:"key"`
	model.KeyInfo
	DataType model.DataType `json:"dataType"`
	Negated  bool           `json:"negated"`
}

type Bars struct {
	BarData  []BarRecord `json:"barData"`
	LineData []BarRecord `json:"lineData"`
	Keys     []BarKey    `json:"keys"`
}

// Empty reports whether neither list holds a record.
func (b Bars) Empty() bool {
	return len(b.BarData) == 0 && len(b.LineData) == 0
}

type BarRequest struct {
	Year       string
	Model      string
	Resolution model.Resolution
}

// BuildBars fetches every data source concurrently and folds the field values
// of each key into per-time records. Measured keys go to BarData, modeled keys
// to LineData. Every time present only in LineData gets an empty BarData
// record. Keys are ordered non-negated, then negated measured, then negated
// modeled, otherwise in order of first appearance.
func BuildBars(ctx context.Context, src SummarySource, sources []model.DataSourceContext, req BarRequest) (Bars, error) {
	responses := make([]model.Data, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, ds := range sources {
		g.Go(func() error {
			data, err := src.SummaryData(gctx, api.SummaryQuery{
				MeasuredDataMeasurement: ds.MeasuredDataMeasurement,
				ModeledDataMeasurement:  ds.ModeledDataMeasurement,
				Fields:                  ds.Fields(),
				Models:                  []string{req.Model},
				Year:                    req.Year,
				Resolution:              req.Resolution,
			})
			if err != nil {
				return fmt.Errorf("summary data for %s: %w", ds.MeasuredDataMeasurement, err)
			}
			responses[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Bars{}, err
	}

	measured := newRecordList()
	modeled := newRecordList()
	keys := newKeyList()
	for i, ds := range sources {
		for _, entry := range responses[i].Entries {
			for _, kc := range ds.Keys {
				v := foldFields(entry, kc, req.Model)
				if v == nil {
					continue
				}
				value := *v
				if ds.Negate {
					value = -value
				}
				if kc.DataType == model.Modeled {
					modeled.set(entry.Time, kc.Key, value)
				} else {
					measured.set(entry.Time, kc.Key, value)
				}
				keys.set(BarKey{Key: kc.Key, KeyInfo: kc.KeyInfo, DataType: kc.DataType, Negated: ds.Negate})
			}
		}
	}

	for _, r := range modeled.records {
		measured.ensure(r.Time)
	}

	return Bars{
		BarData:  measured.sorted(),
		LineData: modeled.sorted(),
		Keys:     orderKeys(keys.keys),
	}, nil
}

// foldFields sums the non-null values of the key's fields. It returns nil when
// every field is null or missing.
func foldFields(entry model.DataEntry, kc model.KeyInfoContext, modelName string) *float64 {
	var sum *float64
	for _, field := range kc.Fields {
		cd, ok := entry.Lookup(field, kc.Carrier)
		if !ok {
			continue
		}
		var v *float64
		if kc.DataType == model.Modeled {
			v = cd.Modeled.Models[modelName]
		} else {
			v = cd.Measured.V
		}
		if v == nil {
			continue
		}
		if sum == nil {
			sum = model.Float(0)
		}
		*sum += *v
	}
	return sum
}

// orderKeys partitions keys into non-negated, negated measured and negated
// modeled, keeping the order within each group.
func orderKeys(keys []BarKey) []BarKey {
	var plain, negMeasured, negModeled []BarKey
	for _, k := range keys {
		switch {
		case !k.Negated:
			plain = append(plain, k)
		case k.DataType == model.Modeled:
			negModeled = append(negModeled, k)
		default:
			negMeasured = append(negMeasured, k)
		}
	}
	out := make([]BarKey, 0, len(keys))
	out = append(out, plain...)
	out = append(out, negMeasured...)
	return append(out, negModeled...)
}

// BarExtent returns the largest and smallest stacked total over records, where
// each record stacks its positive and its negative values separately.
func BarExtent(records []BarRecord) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, r := range records {
		var pos, neg float64
		for _, v := range r.Values {
			if v > 0 {
				pos += v
			} else {
				neg += v
			}
		}
		ok = true
		max = math.Max(max, math.Max(pos, neg))
		min = math.Min(min, math.Min(pos, neg))
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

type recordList struct {
	records []*BarRecord
	index   map[string]*BarRecord
}

func newRecordList() *recordList {
	return &recordList{index: make(map[string]*BarRecord)}
}

func (l *recordList) ensure(time string) *BarRecord {
	if r, ok := l.index[time]; ok {
		return r
	}
	r := &BarRecord{Time: time, Values: make(map[string]float64)}
	l.records = append(l.records, r)
	l.index[time] = r
	return r
}

func (l *recordList) set(time, key string, v float64) {
	l.ensure(time).Values[key] = v
}

func (l *recordList) sorted() []BarRecord {
	out := make([]BarRecord, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// keyList keeps keys in order of first appearance; later sightings update the
// entry in place.
type keyList struct {
	keys  []BarKey
	index map[string]int
}

func newKeyList() *keyList {
	return &keyList{index: make(map[string]int)}
}

func (l *keyList) set(k BarKey) {
	if i, ok := l.index[k.Key]; ok {
		l.keys[i] = k
		return
	}
	l.index[k.Key] = len(l.keys)
	l.keys = append(l.keys, k)
}
