// Package calc derives calculated keys of a time-series table from
// expressions over other keys.
package calc

import (
	"log/slog"

	"energy_dashboard/internal/expr"
	"energy_dashboard/internal/model"
	"energy_dashboard/internal/store"
)

const DefaultMaxIterations = 10

// Evaluator resolves calculated keys by repeated passes over the table until
// every key resolves or the iteration cap is reached. Keys may reference other
// calculated keys in any order.
type Evaluator struct {
	MaxIterations int
	Logger        *slog.Logger
}

func New(logger *slog.Logger) *Evaluator {
	return &Evaluator{MaxIterations: DefaultMaxIterations, Logger: logger}
}

// Result summarizes one Apply call.
type Result struct {
	Resolved   []string
	Unresolved []string
	Iterations int
}

type compiled struct {
	ctx  model.CalculatedDatumContext
	expr *expr.Expression
}

// Apply writes measured and per-model values of every calculated key into
// table. A key counts as resolved once its measured value evaluates at one
// time or more. Keys left unresolved are logged and returned, not failed.
func (e *Evaluator) Apply(table *store.TimeSeries, calculated []model.CalculatedDatumContext, models []string) Result {
	var res Result
	if len(calculated) == 0 {
		return res
	}
	l := e.logger()

	isCalculated := make(map[string]bool, len(calculated))
	for _, c := range calculated {
		isCalculated[c.Key] = true
	}

	var pending []compiled
	for _, c := range calculated {
		ex, err := expr.Compile(c.Expression)
		if err != nil {
			l.Warn("invalid expression", slog.String("key", c.Key), slog.Any("error", err))
			res.Unresolved = append(res.Unresolved, c.Key)
			continue
		}
		pending = append(pending, compiled{ctx: c, expr: ex})
	}

	maxIter := e.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	times := table.Times()
	for res.Iterations < maxIter && len(pending) > 0 {
		var left []compiled
		for _, c := range pending {
			if e.evaluate(table, times, c, isCalculated, models) {
				res.Resolved = append(res.Resolved, c.ctx.Key)
			} else {
				left = append(left, c)
			}
		}
		pending = left
		res.Iterations++
	}

	for _, c := range pending {
		res.Unresolved = append(res.Unresolved, c.ctx.Key)
	}
	if len(res.Unresolved) > 0 {
		l.Warn("failed to evaluate expressions",
			slog.Any("keys", res.Unresolved),
			slog.Int("iterations", res.Iterations))
	}
	return res
}

// evaluate runs one pass of c over every time bucket and reports whether the
// measured value evaluated anywhere.
func (e *Evaluator) evaluate(table *store.TimeSeries, times []string, c compiled, isCalculated map[string]bool, models []string) bool {
	anyPassed := false
	for _, t := range times {
		row := table.Keys(t)

		if scope := measuredScope(row, isCalculated, c.ctx.ConvertNullsToZero); len(scope) > 0 {
			if v, err := c.expr.Eval(scope); err == nil {
				table.UpsertMeasured(t, c.ctx.Key, &v)
				anyPassed = true
			}
		}

		if len(models) == 0 {
			continue
		}
		results := make(map[string]*float64)
		for _, m := range models {
			scope := modeledScope(row, m, isCalculated, c.ctx.ConvertNullsToZero)
			if v, err := c.expr.Eval(scope); err == nil {
				results[m] = model.Float(v)
			}
		}
		if len(results) > 0 {
			table.UpsertModeled(t, c.ctx.Key, results)
		}
	}
	return anyPassed
}

// measuredScope binds every key with a usable measured value. Nulls of raw keys
// become zero when zeroNulls is set; calculated keys are never coerced since
// they may simply not be resolved yet. The scope is empty when no key at this
// time has a measured number.
func measuredScope(row map[string]model.Datum, isCalculated map[string]bool, zeroNulls bool) map[string]float64 {
	anyValue := false
	for _, d := range row {
		if d.Measured != nil {
			anyValue = true
			break
		}
	}
	if !anyValue {
		return nil
	}

	scope := make(map[string]float64, len(row))
	for key, d := range row {
		switch {
		case d.Measured != nil:
			scope[key] = *d.Measured
		case zeroNulls && !isCalculated[key]:
			scope[key] = 0
		}
	}
	return scope
}

// modeledScope binds every key with a usable value for one model, under the
// same coercion rule as measuredScope. Models missing from a datum are unset
// and stay out of the scope.
func modeledScope(row map[string]model.Datum, modelName string, isCalculated map[string]bool, zeroNulls bool) map[string]float64 {
	scope := make(map[string]float64, len(row))
	for key, d := range row {
		coerce := zeroNulls && !isCalculated[key]
		if d.Modeled == nil {
			if coerce {
				scope[key] = 0
			}
			continue
		}
		v, ok := d.Modeled[modelName]
		if !ok {
			continue
		}
		if v == nil {
			if coerce {
				scope[key] = 0
			}
			continue
		}
		scope[key] = *v
	}
	return scope
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default().With(slog.String("module", "calc"))
}
