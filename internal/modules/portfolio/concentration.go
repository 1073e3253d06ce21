package portfolio

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Concentrate computes concentration metrics from holding market values.
// An empty or zero-value portfolio yields zero metrics.
func Concentrate(holdings []Holding) Concentration {
	c := Concentration{HoldingsCount: len(holdings)}

	values := make([]float64, len(holdings))
	for i, h := range holdings {
		values[i] = h.MarketValue.InexactFloat64()
	}
	total := floats.Sum(values)
	if len(values) == 0 || total <= 0 {
		return c
	}

	weights := make([]float64, len(values))
	floats.ScaleTo(weights, 1/total, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(weights)))

	c.Herfindahl = floats.Dot(weights, weights)
	if c.Herfindahl > 0 {
		c.EffectiveHoldings = 1 / c.Herfindahl
	}
	c.LargestWeight = weights[0]
	c.Top5Weight = floats.Sum(weights[:min(5, len(weights))])
	c.Top10Weight = floats.Sum(weights[:min(10, len(weights))])
	if len(weights) > 1 {
		c.WeightStdDev = stat.StdDev(weights, nil)
	}
	return c
}
