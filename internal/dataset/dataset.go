// Package dataset holds growth-curve observations and the codecs and
// analyses that operate on them.
package dataset

import (
	"sort"
)

// Observation is one optical-density reading.
type Observation struct {
	Condition     string  `json:"condition"`
	Concentration string  `json:"concentration"`
	Replicate     int     `json:"replicate"`
	Time          float64 `json:"time_h"`
	OD            float64 `json:"od600"`
}

// Dataset is an ordered sequence of observations plus the categorical
// encoding of the concentration column.
type Dataset struct {
	Observations   []Observation
	Concentrations Categorical
}

// Len returns the number of observations.
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.Observations)
}

// Conditions returns the distinct conditions in order of first appearance.
func (ds *Dataset) Conditions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range ds.Observations {
		if !seen[o.Condition] {
			seen[o.Condition] = true
			out = append(out, o.Condition)
		}
	}
	return out
}

// Categorical is a fixed set of labels with a defined order.
type Categorical struct {
	Categories []string `json:"categories"`
	Ordered    bool     `json:"ordered"`
}

// NewOrdered returns an ordered categorical over the given labels.
func NewOrdered(categories []string) Categorical {
	c := make([]string, len(categories))
	copy(c, categories)
	return Categorical{Categories: c, Ordered: true}
}

// Index returns the position of label in the category order, or -1.
func (c Categorical) Index(label string) int {
	for i, cat := range c.Categories {
		if cat == label {
			return i
		}
	}
	return -1
}

// Less orders two labels by category position. Labels outside the
// categories sort after all known labels, lexically among themselves.
func (c Categorical) Less(a, b string) bool {
	ia, ib := c.Index(a), c.Index(b)
	switch {
	case ia >= 0 && ib >= 0:
		return ia < ib
	case ia >= 0:
		return true
	case ib >= 0:
		return false
	default:
		return a < b
	}
}

// Sort orders labels in place by category position.
func (c Categorical) Sort(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		return c.Less(labels[i], labels[j])
	})
}

// categoricalFromData builds an unordered categorical from the labels in
// order of first appearance.
func categoricalFromData(obs []Observation) Categorical {
	seen := make(map[string]bool)
	var cats []string
	for _, o := range obs {
		if !seen[o.Concentration] {
			seen[o.Concentration] = true
			cats = append(cats, o.Concentration)
		}
	}
	return Categorical{Categories: cats}
}
