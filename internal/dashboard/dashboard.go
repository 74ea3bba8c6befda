// Package dashboard runs the page pipelines: it checks the active options,
// fetches the page data and turns it into view models.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"energy_dashboard/internal/chart"
	"energy_dashboard/internal/config"
	"energy_dashboard/internal/fetch"
	"energy_dashboard/internal/model"
	"energy_dashboard/internal/options"
	"energy_dashboard/internal/store"
)

const (
	PageEnergyBalance      = "energy-balance"
	PageAccumulatedBalance = "accumulated-balance"
	PageEnergyInOut        = "energy-in-out"
)

// PageIDs lists the page ids in navigation order.
var PageIDs = []string{PageEnergyBalance, PageAccumulatedBalance, PageEnergyInOut}

var ErrUnknownPage = errors.New("unknown page")

const (
	UnitEnergy = "kWh"
	UnitCO2    = "kg CO₂ eq."
)

const (
	msgMeasuringPoint = "There is no data for this measuring point. Please select a different measuring point."
	msgFullYearOnly   = "Data is only available for the full year."
	msgNoDataPeriod   = "No data available for the selected period."
	msgNoDataYear     = "No data for this year. Please select a different year."
	msgNoDataMonth    = "No data for this period. Please select a different period."
)

// TimeSeriesSource builds the populated table of a fetch context.
type TimeSeriesSource interface {
	TimeSeries(ctx context.Context, dc model.FetchDataContext, req fetch.Request) (*store.TimeSeries, error)
}

type Service struct {
	TimeSeries TimeSeriesSource
	Summary    chart.SummarySource
	// Threshold overrides the energy-in-out page threshold when positive.
	Threshold float64
	Logger    *slog.Logger
	Now       func() time.Time

	pages atomic.Pointer[config.Pages]
}

func New(ts TimeSeriesSource, summary chart.SummarySource, pages *config.Pages, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default().With(slog.String("module", "dashboard"))
	}
	s := &Service{TimeSeries: ts, Summary: summary, Logger: logger, Now: time.Now}
	s.SetPages(pages)
	return s
}

// SetPages swaps the page contexts. Requests already running keep the
// contexts they started with.
func (s *Service) SetPages(p *config.Pages) {
	s.pages.Store(p)
}

func (s *Service) Pages() *config.Pages {
	return s.pages.Load()
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Options returns the option catalog of page, or the sitewide options when
// page is empty.
func (s *Service) Options(page string) (options.Catalog, error) {
	if page == "" {
		return options.Sitewide(s.now()), nil
	}
	if !knownPage(page) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	return options.ForPage(page, s.now()), nil
}

// Render runs the pipeline of page with v.
func (s *Service) Render(ctx context.Context, page string, v options.Values) (any, error) {
	var (
		view any
		err  error
	)
	switch page {
	case PageEnergyBalance:
		view, err = s.EnergyBalance(ctx, v)
	case PageAccumulatedBalance:
		view, err = s.AccumulatedBalance(ctx, v)
	case PageEnergyInOut:
		view, err = s.EnergyInOut(ctx, v)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("page rendered", slog.String("page", page), slog.Any("options", v))
	return view, nil
}

type EnergyBalanceView struct {
	Title string     `json:"title"`
	Unit  string     `json:"unit"`
	Bars  chart.Bars `json:"bars"`
	Min   float64    `json:"min"`
	Max   float64    `json:"max"`
}

// EnergyBalance builds the monthly bars of the selected measuring point
// against local production.
func (s *Service) EnergyBalance(ctx context.Context, v options.Values) (*EnergyBalanceView, error) {
	if err := s.check(PageEnergyBalance, v, options.KeyYear, options.KeyMeasuringPoint, options.KeyModel); err != nil {
		return nil, err
	}
	p := s.Pages().EnergyBalance

	use := p.Delivered
	if v[options.KeyMeasuringPoint] == options.MeasuringPointDemandGross {
		use = p.GrossDemand
	}
	bars, err := chart.BuildBars(ctx, s.Summary, []model.DataSourceContext{use, p.Production}, chart.BarRequest{
		Year:       v[options.KeyYear],
		Model:      v[options.KeyModel],
		Resolution: p.Resolution,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PageEnergyBalance, err)
	}
	if bars.Empty() {
		return nil, options.InvalidOption(msgNoDataYear)
	}

	view := &EnergyBalanceView{
		Title: "Energy balance for " + v[options.KeyYear],
		Unit:  UnitEnergy,
		Bars:  bars,
	}
	if lo, hi, ok := chart.BarExtent(append(append([]chart.BarRecord{}, bars.BarData...), bars.LineData...)); ok {
		view.Min, view.Max = lo, hi
	}
	return view, nil
}

type AccumulatedBalanceView struct {
	Title string      `json:"title"`
	Unit  string      `json:"unit"`
	Lines chart.Lines `json:"lines"`
	// Accumulated holds the running net balance of the measured and modeled
	// series.
	Accumulated struct {
		Measured []chart.NetPoint `json:"measured"`
		Modeled  []chart.NetPoint `json:"modeled"`
	} `json:"accumulated"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AccumulatedBalance builds the production against consumption lines of a
// full year, in kWh or in CO₂ equivalents.
func (s *Service) AccumulatedBalance(ctx context.Context, v options.Values) (*AccumulatedBalanceView, error) {
	if err := s.check(PageAccumulatedBalance, v, options.KeyYear, options.KeyMonth, options.KeyMeasuringPoint); err != nil {
		return nil, err
	}
	if v[options.KeyMeasuringPoint] != options.MeasuringPointDelivered {
		return nil, options.InvalidOption(msgMeasuringPoint)
	}
	if v[options.KeyMonth] != options.MonthAll {
		return nil, options.InvalidOption(msgFullYearOnly)
	}

	co2 := v.Bool(options.KeyShowAsCO2)
	p := s.Pages().AccumulatedBalance
	table, err := s.period(ctx, PageAccumulatedBalance, p.Data, v, co2)
	if err != nil {
		return nil, err
	}
	lines, err := chart.BuildLines(p.Lines, table.SingleModel(v[options.KeyModel]))
	if err != nil {
		return nil, err
	}

	view := &AccumulatedBalanceView{Lines: lines, Unit: UnitEnergy}
	title := "Accumulated energy balance"
	if co2 {
		title = "Accumulated CO₂ emissions balance"
		view.Unit = UnitCO2
	}
	view.Title = title + periodSuffix(v)
	view.Accumulated.Measured = chart.Accumulate(lines.Measured.Net())
	view.Accumulated.Modeled = chart.Accumulate(lines.Modeled.Net())
	if lo, hi, ok := chart.Extent(view.Accumulated.Measured, view.Accumulated.Modeled); ok {
		view.Min, view.Max = lo, hi
	}
	return view, nil
}

type EnergyInOutView struct {
	Title  string       `json:"title"`
	Unit   string       `json:"unit"`
	Sankey chart.Sankey `json:"sankey"`
}

// EnergyInOut builds the energy flow diagram of the selected period.
func (s *Service) EnergyInOut(ctx context.Context, v options.Values) (*EnergyInOutView, error) {
	if err := s.check(PageEnergyInOut, v, options.KeyYear, options.KeyMonth, options.KeyMeasuringPoint); err != nil {
		return nil, err
	}
	if v[options.KeyMeasuringPoint] != options.MeasuringPointDelivered {
		return nil, options.InvalidOption(msgMeasuringPoint)
	}

	p := s.Pages().EnergyInOut
	table, err := s.period(ctx, PageEnergyInOut, p.Data, v, false)
	if err != nil {
		return nil, err
	}
	table = table.FilterMeasured()
	if table.Len() == 0 {
		return nil, options.InvalidOption(msgNoDataPeriod)
	}

	threshold := p.Threshold
	if s.Threshold > 0 {
		threshold = s.Threshold
	}
	if threshold == 0 {
		threshold = chart.DefaultThreshold
	}
	sankey, err := chart.BuildSankey(p.Sankey, table.SingleModel(v[options.KeyModel]).Sum(), threshold, v)
	if err != nil {
		return nil, err
	}
	return &EnergyInOutView{
		Title:  "Energy in and out" + periodSuffix(v),
		Unit:   UnitEnergy,
		Sankey: sankey,
	}, nil
}

// check validates v against the page catalog and requires keys to be set.
func (s *Service) check(page string, v options.Values, keys ...string) error {
	if err := options.ForPage(page, s.now()).Validate(v); err != nil {
		return err
	}
	return options.Require(v, keys...)
}

// period fetches the monthly table of the selected year and narrows it to the
// selected month unless the whole year is asked for.
func (s *Service) period(ctx context.Context, page string, dc model.FetchDataContext, v options.Values, co2 bool) (*store.TimeSeries, error) {
	req := fetch.Request{
		Year:         v[options.KeyYear],
		Resolution:   model.ResolutionMonthly,
		ConvertToCO2: co2,
	}
	if m := v[options.KeyModel]; m != "" {
		req.Models = []string{m}
	}

	table, err := s.TimeSeries.TimeSeries(ctx, dc, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", page, err)
	}

	month := v[options.KeyMonth]
	if month == options.MonthAll {
		if table.Len() == 0 {
			return nil, options.InvalidOption(msgNoDataYear)
		}
		return table, nil
	}
	sel, ok := table.Select(v[options.KeyYear] + "-" + month)
	if !ok {
		return nil, options.InvalidOption(msgNoDataMonth)
	}
	return sel, nil
}

func periodSuffix(v options.Values) string {
	year := v[options.KeyYear]
	month := v[options.KeyMonth]
	if month == "" || month == options.MonthAll {
		return " for " + year
	}
	return " for " + monthLabel(month) + " " + year
}

func monthLabel(month string) string {
	o, _ := options.Sitewide(time.Time{}).Option(options.KeyMonth)
	for _, it := range o.Items {
		if it.Value == month {
			return it.Label
		}
	}
	return month
}

func knownPage(page string) bool {
	for _, p := range PageIDs {
		if p == page {
			return true
		}
	}
	return false
}
