package model

// Value is a scalar as returned by the API. Set is false when the API omitted
// it; V is nil when the API returned null.
type Value struct {
	Set bool
	V   *float64
}

// ModeledValue is the per-model object as returned by the API. Set is false
// when the API omitted it; Models is nil when the API returned null.
type ModeledValue struct {
	Set    bool
	Models map[string]*float64
}

type CarrierDatum struct {
	Measured Value
	Modeled  ModeledValue
}

// DataEntry holds every field value reported for one time bucket.
type DataEntry struct {
	Time   string
	Fields map[string]map[Carrier]CarrierDatum
}

// Lookup returns the datum for field under carrier.
func (e DataEntry) Lookup(field string, carrier Carrier) (CarrierDatum, bool) {
	byCarrier, ok := e.Fields[field]
	if !ok {
		return CarrierDatum{}, false
	}
	cd, ok := byCarrier[carrier]
	return cd, ok
}

// Metadata echoes the query. Field-data endpoints report a single
// Measurement, the combined endpoint reports Measurements.
type Metadata struct {
	Measurement  string   `json:"measurement,omitempty"`
	Measurements []string `json:"measurements,omitempty"`
	Fields       []string `json:"fields"`
	Models       []string `json:"models,omitempty"`
	Carriers     []string `json:"carriers,omitempty"`
	Unit         string   `json:"unit"`
	Year         int      `json:"year"`
}

// Data is a decoded energy-summary API response.
type Data struct {
	Entries  []DataEntry
	Metadata Metadata
}
