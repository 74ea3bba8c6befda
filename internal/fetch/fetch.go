// Package fetch builds a populated time-series table from the energy-summary
// API for one data context.
package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"energy_dashboard/internal/api"
	"energy_dashboard/internal/calc"
	"energy_dashboard/internal/model"
	"energy_dashboard/internal/store"
)

// Source is the part of the API the fetcher needs.
type Source interface {
	MeasuredFieldData(ctx context.Context, q api.MeasuredFieldQuery) (model.Data, error)
	ModeledFieldData(ctx context.Context, q api.ModeledFieldQuery) (model.Data, error)
}

type Fetcher struct {
	Source    Source
	Evaluator *calc.Evaluator
	Logger    *slog.Logger
}

func New(src Source, logger *slog.Logger) *Fetcher {
	return &Fetcher{Source: src, Evaluator: calc.New(logger), Logger: logger}
}

type Request struct {
	Year         string
	Models       []string
	Resolution   model.Resolution
	ConvertToCO2 bool
}

// TimeSeries fetches every measurement source of dc concurrently, populates a
// fresh table and then derives the calculated keys. The first failing request
// cancels the others and its error is returned.
func (f *Fetcher) TimeSeries(ctx context.Context, dc model.FetchDataContext, req Request) (*store.TimeSeries, error) {
	measured := make([]model.Data, len(dc.Measured))
	var modeled []model.Data
	if len(req.Models) > 0 {
		modeled = make([]model.Data, len(dc.Modeled))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, mc := range dc.Measured {
		g.Go(func() error {
			data, err := f.Source.MeasuredFieldData(gctx, api.MeasuredFieldQuery{
				Measurement: mc.Measurement,
				Fields:      mc.Fields(),
				Year:        req.Year,
				Resolution:  req.Resolution,
			})
			if err != nil {
				return fmt.Errorf("measured data for %s: %w", mc.Measurement, err)
			}
			measured[i] = data
			return nil
		})
	}
	if len(req.Models) > 0 {
		for i, mc := range dc.Modeled {
			g.Go(func() error {
				data, err := f.Source.ModeledFieldData(gctx, api.ModeledFieldQuery{
					Measurement: mc.Measurement,
					Fields:      mc.Fields(),
					Models:      req.Models,
					Year:        req.Year,
					Resolution:  req.Resolution,
				})
				if err != nil {
					return fmt.Errorf("modeled data for %s: %w", mc.Measurement, err)
				}
				modeled[i] = data
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := store.New()
	for i, mc := range dc.Measured {
		applyMeasured(table, mc, measured[i], req.ConvertToCO2)
	}
	for i, mc := range dc.Modeled {
		if i < len(modeled) {
			applyModeled(table, mc, modeled[i], req.ConvertToCO2)
		}
	}

	if len(dc.Calculated) > 0 {
		f.evaluator().Apply(table, dc.Calculated, req.Models)
	}

	f.logger().Debug("time series fetched",
		slog.Int("measured_sources", len(dc.Measured)),
		slog.Int("modeled_sources", len(modeled)),
		slog.Int("times", table.Len()))
	return table, nil
}

func applyMeasured(table *store.TimeSeries, mc model.MeasurementContext, data model.Data, convertToCO2 bool) {
	for _, entry := range data.Entries {
		for _, dc := range mc.Keys {
			cd, ok := entry.Lookup(dc.Field, dc.Carrier)
			if !ok || !cd.Measured.Set {
				continue
			}
			table.UpsertMeasured(entry.Time, dc.Key, Convert(cd.Measured.V, dc, convertToCO2))
		}
	}
}

func applyModeled(table *store.TimeSeries, mc model.MeasurementContext, data model.Data, convertToCO2 bool) {
	for _, entry := range data.Entries {
		for _, dc := range mc.Keys {
			cd, ok := entry.Lookup(dc.Field, dc.Carrier)
			if !ok || !cd.Modeled.Set {
				continue
			}
			if cd.Modeled.Models == nil {
				table.UpsertModeled(entry.Time, dc.Key, nil)
				continue
			}
			values := make(map[string]*float64, len(cd.Modeled.Models))
			for m, v := range cd.Modeled.Models {
				values[m] = Convert(v, dc, convertToCO2)
			}
			table.UpsertModeled(entry.Time, dc.Key, values)
		}
	}
}

// Convert applies the context's sign negation and, when requested and a factor
// is configured, the CO2 conversion value = -value * factor. Null stays null.
func Convert(value *float64, dc model.DatumContext, convertToCO2 bool) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	if dc.Negate {
		v = -v
	}
	if convertToCO2 && dc.CO2Factor != nil {
		v = -v * *dc.CO2Factor
	}
	return &v
}

func (f *Fetcher) evaluator() *calc.Evaluator {
	if f.Evaluator != nil {
		return f.Evaluator
	}
	return calc.New(f.Logger)
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default().With(slog.String("module", "fetch"))
}
