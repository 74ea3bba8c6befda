package model

// Resolution is the time-bucket size requested from the API.
type Resolution string

const (
	ResolutionHourly  Resolution = "hourly"
	ResolutionDaily   Resolution = "daily"
	ResolutionWeekly  Resolution = "weekly"
	ResolutionMonthly Resolution = "monthly"
	ResolutionYearly  Resolution = "yearly"
)

// Carrier is the energy carrier a field value is reported under.
type Carrier string

const (
	CarrierElectric Carrier = "Electric"
	CarrierThermal  Carrier = "Thermal"
	CarrierUnknown  Carrier = "Unknown"
)

type DataType string

const (
	Measured DataType = "measured"
	Modeled  DataType = "modeled"
)

// Datum is one (time, key) observation. Measured is nil when null. Modeled is
// nil when no modeled object was recorded; within it a nil entry is a per-model
// null and a missing model is unset.
type Datum struct {
	Measured *float64            `json:"measured"`
	Modeled  map[string]*float64 `json:"modeled"`
}

// ModelValue returns the value recorded for one simulation model.
func (d Datum) ModelValue(model string) *float64 {
	if d.Modeled == nil {
		return nil
	}
	return d.Modeled[model]
}

// SingleValueDatum is a Datum projected onto one simulation model.
type SingleValueDatum struct {
	Measured *float64 `json:"measured"`
	Modeled  *float64 `json:"modeled"`
}

// Get returns the value for the given data type.
func (d SingleValueDatum) Get(dt DataType) *float64 {
	if dt == Modeled {
		return d.Modeled
	}
	return d.Measured
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
