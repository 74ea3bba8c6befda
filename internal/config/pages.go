package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"energy_dashboard/internal/expr"
	"energy_dashboard/internal/model"
)

//go:embed pages.yaml
var defaultPages []byte

type EnergyBalancePage struct {
	Resolution  model.Resolution        `yaml:"resolution"`
	GrossDemand model.DataSourceContext `yaml:"gross_demand"`
	Delivered   model.DataSourceContext `yaml:"delivered"`
	Production  model.DataSourceContext `yaml:"production"`
}

type AccumulatedBalancePage struct {
	Data  model.FetchDataContext `yaml:"data"`
	Lines model.LinesContext     `yaml:"lines"`
}

type EnergyInOutPage struct {
	Threshold float64                `yaml:"threshold"`
	Data      model.FetchDataContext `yaml:"data"`
	Sankey    model.SankeyContext    `yaml:"sankey"`
}

// Pages holds the contexts of every dashboard page.
type Pages struct {
	EnergyBalance      EnergyBalancePage      `yaml:"energy_balance"`
	AccumulatedBalance AccumulatedBalancePage `yaml:"accumulated_balance"`
	EnergyInOut        EnergyInOutPage        `yaml:"energy_in_out"`
}

// DefaultPages returns the built-in page contexts.
func DefaultPages() (*Pages, error) {
	return ParsePages(defaultPages)
}

// LoadPages reads page contexts from a YAML file. An empty path selects the
// built-in contexts.
func LoadPages(path string) (*Pages, error) {
	if path == "" {
		return DefaultPages()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pages: %w", err)
	}
	p, err := ParsePages(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func ParsePages(data []byte) (*Pages, error) {
	p := &Pages{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("parsing pages: %w", err)
	}
	if p.EnergyBalance.Resolution == "" {
		p.EnergyBalance.Resolution = model.ResolutionMonthly
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks what would otherwise only fail at request time.
func (p *Pages) Validate() error {
	var errs []error
	if !model.ValidResolution(p.EnergyBalance.Resolution) {
		errs = append(errs, fmt.Errorf("energy_balance: invalid resolution %q", p.EnergyBalance.Resolution))
	}
	for name, ds := range map[string]model.DataSourceContext{
		"gross_demand": p.EnergyBalance.GrossDemand,
		"delivered":    p.EnergyBalance.Delivered,
		"production":   p.EnergyBalance.Production,
	} {
		if len(ds.Keys) == 0 {
			errs = append(errs, fmt.Errorf("energy_balance.%s: no keys", name))
		}
	}
	errs = append(errs, validateData("accumulated_balance", p.AccumulatedBalance.Data)...)
	errs = append(errs, validateData("energy_in_out", p.EnergyInOut.Data)...)

	if t := p.EnergyInOut.Threshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("energy_in_out: threshold %v outside (0, 1]", t))
	}
	for _, l := range p.EnergyInOut.Sankey.Links {
		if l.Source == "" || l.Target == "" || l.ValueFrom == "" {
			errs = append(errs, fmt.Errorf("energy_in_out: link %q needs source, target and value_from", l.Key))
		}
	}
	return errors.Join(errs...)
}

func validateData(page string, dc model.FetchDataContext) []error {
	var errs []error
	if len(dc.Measured) == 0 {
		errs = append(errs, fmt.Errorf("%s: no measured sources", page))
	}
	for _, c := range dc.Calculated {
		if _, err := expr.Compile(c.Expression); err != nil {
			errs = append(errs, fmt.Errorf("%s: calculated key %s: %w", page, c.Key, err))
		}
	}
	return errs
}
