package model

// DatumContext binds an output key to a raw API field.
type DatumContext struct {
	Key       string   `yaml:"key" json:"key"`
	Field     string   `yaml:"field" json:"field"`
	Carrier   Carrier  `yaml:"carrier" json:"carrier"`
	Negate    bool     `yaml:"negate,omitempty" json:"negate,omitempty"`
	CO2Factor *float64 `yaml:"co2_factor,omitempty" json:"co2Factor,omitempty"`
}

// MeasurementContext lists the keys read from one measurement source.
type MeasurementContext struct {
	Measurement string         `yaml:"measurement" json:"measurement"`
	Keys        []DatumContext `yaml:"keys" json:"keys"`
}

// Fields returns the distinct fields referenced by the context, in order.
func (m MeasurementContext) Fields() []string {
	seen := make(map[string]bool, len(m.Keys))
	fields := make([]string, 0, len(m.Keys))
	for _, k := range m.Keys {
		if seen[k.Field] {
			continue
		}
		seen[k.Field] = true
		fields = append(fields, k.Field)
	}
	return fields
}

// CalculatedDatumContext derives a key from an expression over other keys.
// When ConvertNullsToZero is false a null operand leaves the key unresolved
// for that time.
type CalculatedDatumContext struct {
	Key                string `yaml:"key" json:"key"`
	Expression         string `yaml:"expression" json:"expression"`
	ConvertNullsToZero bool   `yaml:"convert_nulls_to_zero,omitempty" json:"convertNullsToZero,omitempty"`
}

type FetchDataContext struct {
	Measured   []MeasurementContext     `yaml:"measured" json:"measured"`
	Modeled    []MeasurementContext     `yaml:"modeled,omitempty" json:"modeled,omitempty"`
	Calculated []CalculatedDatumContext `yaml:"calculated,omitempty" json:"calculated,omitempty"`
}

// IsCalculated reports whether key is produced by an expression.
func (c FetchDataContext) IsCalculated(key string) bool {
	for _, calc := range c.Calculated {
		if calc.Key == key {
			return true
		}
	}
	return false
}

// Bar chart

type LineType string

const (
	LineFull   LineType = "full"
	LineDashed LineType = "dashed"
)

// KeyInfo is the presentation info of one bar chart key.
type KeyInfo struct {
	Label    string   `yaml:"label" json:"label"`
	Color    string   `yaml:"color,omitempty" json:"color,omitempty"`
	Path     string   `yaml:"path,omitempty" json:"path,omitempty"`
	LineType LineType `yaml:"line_type,omitempty" json:"lineType,omitempty"`
}

// KeyInfoContext folds one or more fields into a single bar chart key.
type KeyInfoContext struct {
	Key      string   `yaml:"key" json:"key"`
	KeyInfo  `yaml:",inline"`
	DataType DataType `yaml:"data_type" json:"dataType"`
	Fields   []string `yaml:"fields" json:"fields"`
	Carrier  Carrier  `yaml:"carrier" json:"carrier"`
}

type DataSourceContext struct {
	MeasuredDataMeasurement string           `yaml:"measured_data_measurement" json:"measuredDataMeasurement"`
	ModeledDataMeasurement  string           `yaml:"modeled_data_measurement" json:"modeledDataMeasurement"`
	Keys                    []KeyInfoContext `yaml:"keys" json:"keys"`
	Negate                  bool             `yaml:"negate,omitempty" json:"negate,omitempty"`
}

// Fields returns the distinct fields referenced by any key, in order.
func (d DataSourceContext) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, k := range d.Keys {
		for _, f := range k.Fields {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// Sankey chart

type ActionType string

const (
	ActionNavigateToPage    ActionType = "navigateToPage"
	ActionToggleOptionValue ActionType = "toggleOptionValue"
)

// ActionInfo describes what happens when a chart element is clicked.
type ActionInfo struct {
	Type      ActionType `yaml:"type" json:"actionType"`
	PageID    string     `yaml:"page_id,omitempty" json:"pageId,omitempty"`
	OptionKey string     `yaml:"option_key,omitempty" json:"optionKey,omitempty"`
}

type SankeyNodeContext struct {
	Key     string      `yaml:"key" json:"key"`
	Label   string      `yaml:"label" json:"label"`
	Color   string      `yaml:"color,omitempty" json:"color,omitempty"`
	OnClick *ActionInfo `yaml:"on_click,omitempty" json:"onClick,omitempty"`
}

// OptionConstraint requires an active option to hold a specific value.
type OptionConstraint struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}

type SankeyLinkContext struct {
	Key         string             `yaml:"key" json:"key"`
	Source      string             `yaml:"source" json:"source"`
	Target      string             `yaml:"target" json:"target"`
	ValueFrom   string             `yaml:"value_from" json:"valueFrom"`
	HideIfSmall bool               `yaml:"hide_if_small,omitempty" json:"hideIfSmall,omitempty"`
	ShowIf      []OptionConstraint `yaml:"show_if,omitempty" json:"showIf,omitempty"`
}

type SankeyContext struct {
	Nodes []SankeyNodeContext `yaml:"nodes" json:"nodes"`
	Links []SankeyLinkContext `yaml:"links" json:"links"`
}

// Node returns the node context for key.
func (s SankeyContext) Node(key string) (SankeyNodeContext, bool) {
	for _, n := range s.Nodes {
		if n.Key == key {
			return n, true
		}
	}
	return SankeyNodeContext{}, false
}

// NodeLabel returns the label of the node for key, falling back to the key.
func (s SankeyContext) NodeLabel(key string) string {
	if n, ok := s.Node(key); ok && n.Label != "" {
		return n.Label
	}
	return key
}

// Line chart

type LineStyle string

const (
	LineStyleSolid  LineStyle = "solid"
	LineStyleDashed LineStyle = "dashed"
)

type PointType string

const (
	PointNone     PointType = "none"
	PointCircle   PointType = "circle"
	PointTriangle PointType = "triangle"
)

// LineContext names the keys whose difference forms one line.
type LineContext struct {
	ID                   string    `yaml:"id" json:"id"`
	Label                string    `yaml:"label" json:"label"`
	PositiveContribution string    `yaml:"positive_contribution" json:"-"`
	NegativeContribution string    `yaml:"negative_contribution" json:"-"`
	Color                string    `yaml:"color" json:"color"`
	DynamicLineColor     bool      `yaml:"dynamic_line_color,omitempty" json:"dynamicLineColor,omitempty"`
	LineStyle            LineStyle `yaml:"line_style" json:"lineStyle"`
	PointType            PointType `yaml:"point_type" json:"pointType"`
}

type LinesContext struct {
	Measured LineContext `yaml:"measured" json:"measured"`
	Modeled  LineContext `yaml:"modeled" json:"modeled"`
}
