package chart

import (
	"math"

	"energy_dashboard/internal/model"
	"energy_dashboard/internal/options"
)

// DefaultThreshold is the materiality fraction below which hide-if-small links
// are dropped.
const DefaultThreshold = 0.1

type SankeyNode struct {
	ID      string            `json:"id"`
	Color   string            `json:"color"`
	OnClick *model.ActionInfo `json:"onClickInfo,omitempty"`
}

// SankeyLink connects two nodes by label.
type SankeyLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

type Sankey struct {
	Nodes        []SankeyNode `json:"nodes"`
	Links        []SankeyLink `json:"links"`
	ModeledLinks []SankeyLink `json:"modeledDataLinks"`
}

// BuildSankey resolves the links of sc from period totals in data, prunes them
// against the active options and the materiality threshold, and keeps the
// nodes that a surviving link references. Measured and modeled links are
// pruned independently.
func BuildSankey(sc model.SankeyContext, data map[string]model.SingleValueDatum, threshold float64, active options.Values) (Sankey, error) {
	s := Sankey{
		Links:        buildLinks(sc, data, model.Measured, threshold, active),
		ModeledLinks: buildLinks(sc, data, model.Modeled, threshold, active),
	}

	referenced := make(map[string]bool)
	for _, links := range [][]SankeyLink{s.Links, s.ModeledLinks} {
		for _, l := range links {
			referenced[l.Source] = true
			referenced[l.Target] = true
		}
	}
	for _, n := range sc.Nodes {
		label := sc.NodeLabel(n.Key)
		if !referenced[label] {
			continue
		}
		color := n.Color
		if color == "" {
			color = model.DefaultNodeColor
		}
		s.Nodes = append(s.Nodes, SankeyNode{ID: label, Color: color, OnClick: n.OnClick})
	}

	if len(s.Nodes) == 0 || len(s.Links) == 0 {
		return Sankey{}, options.NoData()
	}
	return s, nil
}

func buildLinks(sc model.SankeyContext, data map[string]model.SingleValueDatum, dt model.DataType, threshold float64, active options.Values) []SankeyLink {
	links := []SankeyLink{}
	for _, lc := range sc.Links {
		v := data[lc.ValueFrom].Get(dt)
		if v == nil {
			continue
		}
		value, source, target := *v, lc.Source, lc.Target
		if value < 0 {
			value, source, target = -value, target, source
		}

		if !matches(lc.ShowIf, active) {
			continue
		}
		if lc.HideIfSmall && isSmall(value, data[source].Get(dt), data[target].Get(dt), threshold) {
			continue
		}

		links = append(links, SankeyLink{
			Source: sc.NodeLabel(source),
			Target: sc.NodeLabel(target),
			Value:  value,
		})
	}
	return links
}

// matches reports whether every constraint holds for the active options.
func matches(constraints []model.OptionConstraint, active options.Values) bool {
	for _, c := range constraints {
		if active[c.Key] != c.Value {
			return false
		}
	}
	return true
}

// isSmall judges value against the throughput of its source. A link carrying
// the whole source is judged against its target as well.
func isSmall(value float64, source, target *float64, threshold float64) bool {
	if source == nil || *source == 0 {
		return true
	}
	ratio := value / math.Abs(*source)
	if ratio < threshold {
		return true
	}
	if ratio == 1 {
		if target == nil || *target == 0 {
			return true
		}
		if value/math.Abs(*target) < threshold {
			return true
		}
	}
	return false
}
