// Package options holds the user-selectable dashboard options, their
// validation and the domain errors raised for unusable combinations.
package options

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Values are the active option values, keyed by option key.
type Values map[string]string

// Bool reports whether the toggle key is set to "true".
func (v Values) Bool(key string) bool {
	return v[key] == ToggleOn
}

// Clone returns a copy of v with the given overrides applied.
func (v Values) Clone(overrides Values) Values {
	out := make(Values, len(v)+len(overrides))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range overrides {
		out[k] = val
	}
	return out
}

const (
	KeyYear                    = "year"
	KeyMonth                   = "month"
	KeyMeasuringPoint          = "measuringPoint"
	KeyModel                   = "model"
	KeyShowElProductionDetails = "showElProductionDetails"
	KeyShowAsCO2               = "showAsCO2"
)

// Toggle options accept exactly these two values.
const (
	ToggleOn  = "true"
	ToggleOff = "false"
)

const (
	MonthAll                  = "all"
	MeasuringPointDemandGross = "demand-gross"
	MeasuringPointDelivered   = "delivered"
)

type Type string

const (
	TypeSelect Type = "select"
	TypeToggle Type = "toggle"
)

type Item struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled,omitempty"`
}

type Option struct {
	Key      string `json:"key"`
	Type     Type   `json:"optionType"`
	Label    string `json:"label"`
	InfoText string `json:"infoText,omitempty"`
	Items    []Item `json:"optionItems,omitempty"`
	Default  string `json:"default"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Allows reports whether value is acceptable for the option.
func (o Option) Allows(value string) bool {
	if o.Type == TypeToggle {
		return value == ToggleOn || value == ToggleOff
	}
	for _, it := range o.Items {
		if it.Value == value {
			return true
		}
	}
	return false
}

// Catalog is an ordered set of options.
type Catalog []Option

func (c Catalog) Option(key string) (Option, bool) {
	for _, o := range c {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}

// With returns the options of c followed by those of other.
func (c Catalog) With(other Catalog) Catalog {
	out := make(Catalog, 0, len(c)+len(other))
	out = append(out, c...)
	return append(out, other...)
}

func (c Catalog) Defaults() Values {
	v := make(Values, len(c))
	for _, o := range c {
		v[o.Key] = o.Default
	}
	return v
}

// Validate rejects unknown keys and values outside an option's items. Empty
// values count as not set and are left to Require.
func (c Catalog) Validate(v Values) error {
	for key, value := range v {
		if value == "" {
			continue
		}
		o, ok := c.Option(key)
		if !ok {
			return InvalidOption("Option %s not found in options", key)
		}
		if !o.Allows(value) {
			return InvalidOption("Option %s with value %s not found in option items", key, value)
		}
	}
	return nil
}

// Permutations lists every combination of enabled select items. Disabled
// options are left out of the combinations.
func Permutations(c Catalog) []Values {
	var out []Values
	var permute func(current Values, i int)
	permute = func(current Values, i int) {
		if i == len(c) {
			out = append(out, current)
			return
		}
		o := c[i]
		if o.Disabled || o.Type != TypeSelect {
			permute(current, i+1)
			return
		}
		for _, it := range o.Items {
			if it.Disabled {
				continue
			}
			permute(current.Clone(Values{o.Key: it.Value}), i+1)
		}
	}
	permute(Values{}, 0)
	return out
}

// ValidOptions runs fn for every permutation and sorts them by outcome.
// Unexpected errors are logged; both kinds count as invalid.
func ValidOptions(ctx context.Context, perms []Values, fn func(context.Context, Values) error, logger *slog.Logger) (valid, invalid []Values) {
	if logger == nil {
		logger = slog.Default().With(slog.String("module", "options"))
	}
	for _, p := range perms {
		if ctx.Err() != nil {
			invalid = append(invalid, p)
			continue
		}
		err := fn(ctx, p)
		switch {
		case err == nil:
			valid = append(valid, p)
		case IsDomainError(err):
			invalid = append(invalid, p)
		default:
			logger.Error("option permutation failed", slog.Any("options", p), slog.Any("error", err))
			invalid = append(invalid, p)
		}
	}
	return valid, invalid
}

// Sitewide returns the options shared by every page. The year defaults to the
// current year when it is selectable and to the newest year otherwise.
func Sitewide(now time.Time) Catalog {
	years := []Item{
		{Value: "2024", Label: "2024"},
		{Value: "2023", Label: "2023"},
	}
	year := years[0].Value
	if y := strconv.Itoa(now.Year()); hasItem(years, y) {
		year = y
	}

	return Catalog{
		{
			Key:     KeyYear,
			Type:    TypeSelect,
			Label:   "Year",
			Items:   years,
			Default: year,
		},
		{
			Key:   KeyMonth,
			Type:  TypeSelect,
			Label: "Month",
			Items: []Item{
				{Value: MonthAll, Label: "All months"},
				{Value: "01", Label: "January"},
				{Value: "02", Label: "February"},
				{Value: "03", Label: "March"},
				{Value: "04", Label: "April"},
				{Value: "05", Label: "May"},
				{Value: "06", Label: "June"},
				{Value: "07", Label: "July"},
				{Value: "08", Label: "August"},
				{Value: "09", Label: "September"},
				{Value: "10", Label: "October"},
				{Value: "11", Label: "November"},
				{Value: "12", Label: "December"},
			},
			Default: MonthAll,
		},
		{
			Key:      KeyMeasuringPoint,
			Type:     TypeSelect,
			Label:    "Measuring point",
			InfoText: "Gross energy demand covers the building's demand including accumulation and distribution losses. Delivered energy also accounts for conversion efficiency, e.g. of heat pumps.",
			Items: []Item{
				{Value: MeasuringPointDemandGross, Label: "Gross energy demand"},
				{Value: MeasuringPointDelivered, Label: "Delivered energy"},
			},
			Default: MeasuringPointDelivered,
		},
		{
			Key:      KeyModel,
			Type:     TypeSelect,
			Label:    "Simulation model",
			InfoText: "Realistic uses the building's actual specifications and conditions. TEK17 is a baseline with the minimal energy-efficiency measures required by TEK17.",
			Items: []Item{
				{Value: "Reell", Label: "Realistic"},
				{Value: "TEK17", Label: "TEK17"},
			},
			Default: "Reell",
		},
	}
}

// PageSpecific returns the extra options of each page, keyed by page id.
func PageSpecific() map[string]Catalog {
	return map[string]Catalog{
		"energy-in-out": {
			{
				Key:     KeyShowElProductionDetails,
				Type:    TypeToggle,
				Label:   "Show el. production details",
				Default: ToggleOff,
			},
		},
		"accumulated-balance": {
			{
				Key:      KeyShowAsCO2,
				Type:     TypeToggle,
				Label:    "Show as CO2 eq.",
				InfoText: "Emissions balance based on average European grid emissions: 0.132 kg CO2 eq./kWh for electrical and 0.198 kg CO2 eq./kWh for thermal energy.",
				Default:  "false",
			},
		},
	}
}

// ForPage returns the sitewide options followed by the page's own.
func ForPage(page string, now time.Time) Catalog {
	return Sitewide(now).With(PageSpecific()[page])
}

// ValidateSitewide checks v against the sitewide catalog.
func ValidateSitewide(v Values) error {
	return Sitewide(time.Now()).Validate(v)
}

func hasItem(items []Item, value string) bool {
	for _, it := range items {
		if it.Value == value {
			return true
		}
	}
	return false
}
