package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy_dashboard/internal/api"
	"energy_dashboard/internal/chart"
	"energy_dashboard/internal/config"
	"energy_dashboard/internal/fetch"
	"energy_dashboard/internal/model"
	"energy_dashboard/internal/options"
	"energy_dashboard/internal/store"
)

var f = model.Float

type fakeTimeSeries struct {
	table *store.TimeSeries
	err   error

	mu       sync.Mutex
	requests []fetch.Request
}

func (s *fakeTimeSeries) TimeSeries(_ context.Context, _ model.FetchDataContext, req fetch.Request) (*store.TimeSeries, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.table, nil
}

type fakeSummary struct {
	data map[string]model.Data

	mu      sync.Mutex
	queried []string
}

func (s *fakeSummary) SummaryData(_ context.Context, q api.SummaryQuery) (model.Data, error) {
	s.mu.Lock()
	s.queried = append(s.queried, q.MeasuredDataMeasurement)
	s.mu.Unlock()
	return s.data[q.MeasuredDataMeasurement], nil
}

func newService(t *testing.T, ts TimeSeriesSource, summary chart.SummarySource) *Service {
	t.Helper()
	pages, err := config.DefaultPages()
	require.NoError(t, err)
	s := New(ts, summary, pages, nil)
	s.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func requireInvalid(t *testing.T, err error, message string) {
	t.Helper()
	var invalid *options.InvalidOptionError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, message, invalid.Message)
}

func yearValues(overrides options.Values) options.Values {
	return options.Values{
		options.KeyYear:           "2024",
		options.KeyMonth:          options.MonthAll,
		options.KeyMeasuringPoint: options.MeasuringPointDelivered,
		options.KeyModel:          "Reell",
	}.Clone(overrides)
}

func balanceTable() *store.TimeSeries {
	ts := store.New()
	ts.UpsertMeasured("2024-01", "TOTAL_PRODUCTION", f(10))
	ts.UpsertMeasured("2024-01", "TOTAL_CONSUMPTION", f(30))
	ts.UpsertMeasured("2024-02", "TOTAL_PRODUCTION", f(50))
	ts.UpsertMeasured("2024-02", "TOTAL_CONSUMPTION", f(20))
	ts.UpsertModeled("2024-01", "TOTAL_PRODUCTION", map[string]*float64{"Reell": f(12)})
	ts.UpsertModeled("2024-01", "TOTAL_CONSUMPTION", map[string]*float64{"Reell": f(20)})
	ts.UpsertModeled("2024-02", "TOTAL_PRODUCTION", map[string]*float64{"Reell": f(40)})
	ts.UpsertModeled("2024-02", "TOTAL_CONSUMPTION", map[string]*float64{"Reell": f(10)})
	return ts
}

func TestRender_UnknownPage(t *testing.T) {
	s := newService(t, &fakeTimeSeries{}, &fakeSummary{})
	_, err := s.Render(context.Background(), "battery", yearValues(nil))
	assert.ErrorIs(t, err, ErrUnknownPage)

	_, err = s.Options("battery")
	assert.ErrorIs(t, err, ErrUnknownPage)

	c, err := s.Options(PageEnergyInOut)
	require.NoError(t, err)
	_, ok := c.Option(options.KeyShowElProductionDetails)
	assert.True(t, ok)

	c, err = s.Options("")
	require.NoError(t, err)
	assert.Len(t, c, 4)
}

func TestAccumulatedBalance(t *testing.T) {
	src := &fakeTimeSeries{table: balanceTable()}
	s := newService(t, src, &fakeSummary{})

	view, err := s.AccumulatedBalance(context.Background(), yearValues(nil))
	require.NoError(t, err)

	assert.Equal(t, "Accumulated energy balance for 2024", view.Title)
	assert.Equal(t, UnitEnergy, view.Unit)
	require.Len(t, view.Lines.Measured.Data, 2)

	require.Len(t, view.Accumulated.Measured, 2)
	assert.InDelta(t, -20.0, *view.Accumulated.Measured[0].Value, 1e-9)
	assert.InDelta(t, 10.0, *view.Accumulated.Measured[1].Value, 1e-9)
	require.Len(t, view.Accumulated.Modeled, 2)
	assert.InDelta(t, -8.0, *view.Accumulated.Modeled[0].Value, 1e-9)
	assert.InDelta(t, 22.0, *view.Accumulated.Modeled[1].Value, 1e-9)
	assert.InDelta(t, -20.0, view.Min, 1e-9)
	assert.InDelta(t, 22.0, view.Max, 1e-9)

	require.Len(t, src.requests, 1)
	assert.Equal(t, fetch.Request{
		Year:       "2024",
		Models:     []string{"Reell"},
		Resolution: model.ResolutionMonthly,
	}, src.requests[0])
}

func TestAccumulatedBalance_CO2(t *testing.T) {
	src := &fakeTimeSeries{table: balanceTable()}
	s := newService(t, src, &fakeSummary{})

	view, err := s.AccumulatedBalance(context.Background(), yearValues(options.Values{options.KeyShowAsCO2: "true"}))
	require.NoError(t, err)
	assert.Equal(t, "Accumulated CO₂ emissions balance for 2024", view.Title)
	assert.Equal(t, UnitCO2, view.Unit)
	require.Len(t, src.requests, 1)
	assert.True(t, src.requests[0].ConvertToCO2)
}

func TestAccumulatedBalance_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		v       options.Values
		message string
	}{
		{"gross demand", yearValues(options.Values{options.KeyMeasuringPoint: options.MeasuringPointDemandGross}), msgMeasuringPoint},
		{"single month", yearValues(options.Values{options.KeyMonth: "07"}), msgFullYearOnly},
		{"unknown year", yearValues(options.Values{options.KeyYear: "1999"}), "Option year with value 1999 not found in option items"},
		{"other page toggle", yearValues(options.Values{options.KeyShowElProductionDetails: "true"}), "Option showElProductionDetails not found in options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeTimeSeries{table: balanceTable()}
			s := newService(t, src, &fakeSummary{})

			_, err := s.AccumulatedBalance(context.Background(), tt.v)
			requireInvalid(t, err, tt.message)
			assert.Empty(t, src.requests, "rejected before fetching")
		})
	}
}

func TestAccumulatedBalance_OptionsNotSet(t *testing.T) {
	s := newService(t, &fakeTimeSeries{table: balanceTable()}, &fakeSummary{})

	_, err := s.AccumulatedBalance(context.Background(), options.Values{options.KeyYear: "2024", options.KeyMonth: ""})
	var notSet *options.OptionsNotSetError
	require.True(t, errors.As(err, &notSet))
	assert.Equal(t, []string{options.KeyMonth, options.KeyMeasuringPoint}, notSet.Missing)
}

func TestAccumulatedBalance_EmptyYear(t *testing.T) {
	s := newService(t, &fakeTimeSeries{table: store.New()}, &fakeSummary{})
	_, err := s.AccumulatedBalance(context.Background(), yearValues(nil))
	requireInvalid(t, err, msgNoDataYear)
}

func TestAccumulatedBalance_FetchError(t *testing.T) {
	boom := &api.StatusError{Endpoint: api.PathMeasuredFieldData, StatusCode: 500, Status: "500 Internal Server Error"}
	s := newService(t, &fakeTimeSeries{err: boom}, &fakeSummary{})

	_, err := s.Render(context.Background(), PageAccumulatedBalance, yearValues(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, options.IsDomainError(err))
}

func inOutTable() *store.TimeSeries {
	ts := store.New()
	for key, v := range map[string]float64{
		"PV":                     100,
		"EXPORT":                 60,
		"OWNCONSUME":             40,
		"IMPORT":                 50,
		"ELSPECIFIC":             30,
		"HPU":                    20,
		"HWH":                    20,
		"CPU":                    20,
		"TOTALCONSUMPTION":       90,
		"PV_FACADE_MOCKVALUE":    20,
		"PV_UNASSIGNED":          0,
		"CONSUMPTION_UNASSIGNED": 0,
	} {
		ts.UpsertMeasured("2024-01", key, f(v))
	}
	ts.UpsertMeasured("2024-02", "PV", nil)
	return ts
}

func TestEnergyInOut(t *testing.T) {
	src := &fakeTimeSeries{table: inOutTable()}
	s := newService(t, src, &fakeSummary{})

	view, err := s.EnergyInOut(context.Background(), yearValues(options.Values{options.KeyMonth: "01"}))
	require.NoError(t, err)

	assert.Equal(t, "Energy in and out for January 2024", view.Title)
	assert.Contains(t, view.Sankey.Links, chart.SankeyLink{Source: "El. production (PV)", Target: "Export to el. grid", Value: 60})
	assert.Contains(t, view.Sankey.Links, chart.SankeyLink{Source: "Total el. consumption", Target: "El. for cooling machines", Value: 20})
	for _, l := range view.Sankey.Links {
		assert.NotEqual(t, "Roof (Mock value)", l.Source, "facade links need the details toggle")
		assert.NotEqual(t, "Unassigned el. production", l.Target, "small unassigned link is hidden")
	}
	assert.Empty(t, view.Sankey.ModeledLinks)
	require.Len(t, src.requests, 1)
	assert.False(t, src.requests[0].ConvertToCO2)
}

func TestEnergyInOut_Details(t *testing.T) {
	s := newService(t, &fakeTimeSeries{table: inOutTable()}, &fakeSummary{})

	view, err := s.Render(context.Background(), PageEnergyInOut, yearValues(options.Values{
		options.KeyShowElProductionDetails: "true",
	}))
	require.NoError(t, err)
	sankey := view.(*EnergyInOutView).Sankey
	assert.Contains(t, sankey.Links, chart.SankeyLink{Source: "Roof (Mock value)", Target: "El. production (PV)", Value: 20})
	assert.Equal(t, "Energy in and out for 2024", view.(*EnergyInOutView).Title)
}

func TestEnergyInOut_Rejected(t *testing.T) {
	empty := store.New()
	empty.UpsertMeasured("2024-01", "PV", nil)

	tests := []struct {
		name    string
		table   *store.TimeSeries
		v       options.Values
		message string
	}{
		{"missing month", inOutTable(), yearValues(options.Values{options.KeyMonth: "03"}), msgNoDataMonth},
		{"empty year", store.New(), yearValues(nil), msgNoDataYear},
		{"no measured values", empty, yearValues(nil), msgNoDataPeriod},
		{"gross demand", inOutTable(), yearValues(options.Values{options.KeyMeasuringPoint: options.MeasuringPointDemandGross}), msgMeasuringPoint},
		{"loose toggle", inOutTable(), yearValues(options.Values{options.KeyShowElProductionDetails: "1"}), "Option showElProductionDetails with value 1 not found in option items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(t, &fakeTimeSeries{table: tt.table}, &fakeSummary{})
			_, err := s.EnergyInOut(context.Background(), tt.v)
			requireInvalid(t, err, tt.message)
		})
	}
}

func TestEnergyInOut_ThresholdOverride(t *testing.T) {
	ts := inOutTable()
	// 8 of 100 is below the page threshold of 0.1.
	ts.UpsertMeasured("2024-01", "PV_UNASSIGNED", f(8))
	s := newService(t, &fakeTimeSeries{table: ts}, &fakeSummary{})

	link := chart.SankeyLink{Source: "El. production (PV)", Target: "Unassigned el. production", Value: 8}

	view, err := s.EnergyInOut(context.Background(), yearValues(nil))
	require.NoError(t, err)
	assert.NotContains(t, view.Sankey.Links, link)

	s.Threshold = 0.05
	view, err = s.EnergyInOut(context.Background(), yearValues(nil))
	require.NoError(t, err)
	assert.Contains(t, view.Sankey.Links, link)
}

func balancePages() *config.Pages {
	key := func(k, field string, c model.Carrier, dt model.DataType) model.KeyInfoContext {
		return model.KeyInfoContext{Key: k, KeyInfo: model.KeyInfo{Label: k}, DataType: dt, Fields: []string{field}, Carrier: c}
	}
	return &config.Pages{EnergyBalance: config.EnergyBalancePage{
		Resolution: model.ResolutionMonthly,
		GrossDemand: model.DataSourceContext{
			MeasuredDataMeasurement: "gross",
			Keys:                    []model.KeyInfoContext{key("DH", "DH", model.CarrierThermal, model.Measured)},
		},
		Delivered: model.DataSourceContext{
			MeasuredDataMeasurement: "delivered",
			Keys:                    []model.KeyInfoContext{key("DH", "DH", model.CarrierThermal, model.Measured)},
		},
		Production: model.DataSourceContext{
			MeasuredDataMeasurement: "production",
			Negate:                  true,
			Keys:                    []model.KeyInfoContext{key("PV", "PV", model.CarrierElectric, model.Measured)},
		},
	}}
}

func measuredEntry(time, field string, c model.Carrier, v float64) model.DataEntry {
	return model.DataEntry{Time: time, Fields: map[string]map[model.Carrier]model.CarrierDatum{
		field: {c: {Measured: model.Value{Set: true, V: f(v)}}},
	}}
}

func TestEnergyBalance(t *testing.T) {
	summary := &fakeSummary{data: map[string]model.Data{
		"gross":      {Entries: []model.DataEntry{measuredEntry("2024-01", "DH", model.CarrierThermal, 70)}},
		"delivered":  {Entries: []model.DataEntry{measuredEntry("2024-01", "DH", model.CarrierThermal, 40)}},
		"production": {Entries: []model.DataEntry{measuredEntry("2024-01", "PV", model.CarrierElectric, 15)}},
	}}

	tests := []struct {
		name     string
		point    string
		queried  string
		expected float64
	}{
		{"delivered", options.MeasuringPointDelivered, "delivered", 40},
		{"gross demand", options.MeasuringPointDemandGross, "gross", 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary.queried = nil
			s := newService(t, &fakeTimeSeries{}, summary)
			s.SetPages(balancePages())

			view, err := s.EnergyBalance(context.Background(), yearValues(options.Values{options.KeyMeasuringPoint: tt.point}))
			require.NoError(t, err)

			assert.Equal(t, "Energy balance for 2024", view.Title)
			assert.ElementsMatch(t, []string{tt.queried, "production"}, summary.queried)
			require.Len(t, view.Bars.BarData, 1)
			assert.Equal(t, map[string]float64{"DH": tt.expected, "PV": -15}, view.Bars.BarData[0].Values)
			assert.InDelta(t, -15.0, view.Min, 1e-9)
			assert.InDelta(t, tt.expected, view.Max, 1e-9)
		})
	}
}

func TestEnergyBalance_Empty(t *testing.T) {
	s := newService(t, &fakeTimeSeries{}, &fakeSummary{})
	s.SetPages(balancePages())

	_, err := s.EnergyBalance(context.Background(), yearValues(nil))
	requireInvalid(t, err, msgNoDataYear)

	_, err = s.EnergyBalance(context.Background(), options.Values{options.KeyYear: "2024", options.KeyMeasuringPoint: options.MeasuringPointDelivered})
	var notSet *options.OptionsNotSetError
	require.True(t, errors.As(err, &notSet))
	assert.Equal(t, []string{options.KeyModel}, notSet.Missing)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Failure
	}{
		{"not set", &options.OptionsNotSetError{Missing: []string{options.KeyYear}}, Failure{Kind: KindOptionsNotSet, Missing: []string{options.KeyYear}}},
		{"invalid", fmt.Errorf("page: %w", options.InvalidOption(msgNoDataYear)), Failure{Kind: KindInvalidOption, Message: msgNoDataYear}},
		{"no data", options.NoData(), Failure{Kind: KindInvalidOption, Message: options.NoDataMessage}},
		{"unknown page", ErrUnknownPage, Failure{Kind: KindUnknownPage, Message: "unknown page"}},
		{"upstream", errors.New("dial tcp: connection refused"), Failure{Kind: KindError, Message: FetchErrorMessage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Describe(tt.err))
		})
	}
}
