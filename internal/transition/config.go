package transition

import (
	"fmt"

	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/scenario"
)

// FromConfig builds the transition matrix from configured edges. An
// empty edge list yields the reference matrix.
func FromConfig(edges []scenario.TransitionEdge) (*Matrix, error) {
	if len(edges) == 0 {
		return Default(), nil
	}
	m := NewMatrix()
	for _, e := range edges {
		from, err := population.ParseDiseaseStatus(e.From)
		if err != nil {
			return nil, fmt.Errorf("transition edge: %w", err)
		}
		to, err := population.ParseDiseaseStatus(e.To)
		if err != nil {
			return nil, fmt.Errorf("transition edge: %w", err)
		}
		var s Sampler
		switch e.Type {
		case "fixed":
			if e.Day < 0 {
				return nil, fmt.Errorf("transition %s -> %s: day must be >= 0 but is %d", e.From, e.To, e.Day)
			}
			s = Fixed(e.Day)
		case "logNormal", "":
			switch {
			case e.Median > 0 && e.Mean > 0:
				return nil, fmt.Errorf("transition %s -> %s: median and mean are mutually exclusive", e.From, e.To)
			case e.Median > 0:
				s, err = LogNormalMedianStd(e.Median, e.Std)
			case e.Mean > 0:
				s, err = LogNormalMeanStd(e.Mean, e.Std)
			default:
				err = fmt.Errorf("neither median nor mean set")
			}
			if err != nil {
				return nil, fmt.Errorf("transition %s -> %s: %w", e.From, e.To, err)
			}
		default:
			return nil, fmt.Errorf("transition %s -> %s: unknown type %q", e.From, e.To, e.Type)
		}
		m.Set(from, to, s)
	}
	return m, nil
}
