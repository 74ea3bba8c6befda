// Package chart turns a reconciled time-series table into chart-ready view
// models: paired lines, diverging bars and Sankey graphs.
package chart

import (
	"math"

	"energy_dashboard/internal/model"
	"energy_dashboard/internal/options"
	"energy_dashboard/internal/store"
)

// LinePoint is one time of a line. Either contribution may be null, never both.
type LinePoint struct {
	Time     string   `json:"time"`
	Positive *float64 `json:"positiveContribution"`
	Negative *float64 `json:"negativeContribution"`
}

type LineSerie struct {
	model.LineContext
	DataType model.DataType `json:"dataType"`
	Data     []LinePoint    `json:"data"`
}

type Lines struct {
	Measured LineSerie `json:"measuredLineSerie"`
	Modeled  LineSerie `json:"modeledLineSerie"`
}

// BuildLines builds the measured and modeled series of lc from table. A time
// is left out of a serie only when both contributions are null there.
func BuildLines(lc model.LinesContext, table store.SingleValueTable) (Lines, error) {
	times := table.Times()
	lines := Lines{
		Measured: buildSerie(lc.Measured, model.Measured, times, table),
		Modeled:  buildSerie(lc.Modeled, model.Modeled, times, table),
	}
	if len(lines.Measured.Data) == 0 {
		return Lines{}, options.NoData()
	}
	return lines, nil
}

func buildSerie(ctx model.LineContext, dt model.DataType, times []string, table store.SingleValueTable) LineSerie {
	serie := LineSerie{LineContext: ctx, DataType: dt, Data: []LinePoint{}}
	for _, t := range times {
		row := table[t]
		pos := row[ctx.PositiveContribution].Get(dt)
		neg := row[ctx.NegativeContribution].Get(dt)
		if pos == nil && neg == nil {
			continue
		}
		serie.Data = append(serie.Data, LinePoint{Time: t, Positive: pos, Negative: neg})
	}
	return serie
}

// NetPoint is positive minus negative contribution at one time.
type NetPoint struct {
	Time  string   `json:"x"`
	Value *float64 `json:"y"`
}

// Net returns positive - negative per point, null where either side is null.
func (s LineSerie) Net() []NetPoint {
	out := make([]NetPoint, 0, len(s.Data))
	for _, p := range s.Data {
		np := NetPoint{Time: p.Time}
		if p.Positive != nil && p.Negative != nil {
			np.Value = model.Float(*p.Positive - *p.Negative)
		}
		out = append(out, np)
	}
	return out
}

// Accumulate returns the running total of points. Null points are left out of
// the result and neither advance nor reset the total.
func Accumulate(points []NetPoint) []NetPoint {
	out := make([]NetPoint, 0, len(points))
	total := 0.0
	for _, p := range points {
		if p.Value == nil {
			continue
		}
		total += *p.Value
		out = append(out, NetPoint{Time: p.Time, Value: model.Float(total)})
	}
	return out
}

// Extent returns the smallest and largest non-null value across series. ok is
// false when there is none.
func Extent(series ...[]NetPoint) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, p := range s {
			if p.Value == nil {
				continue
			}
			ok = true
			min = math.Min(min, *p.Value)
			max = math.Max(max, *p.Value)
		}
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}
