// Package transition describes how long a person dwells in a clinical
// state before moving to the next one. Samplers are immutable once
// parsed from configuration.
package transition

import (
	"errors"
	"fmt"
	"math"

	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
)

// ErrMissingEdge is returned when a reachable state pair has no
// configured dwell-time sampler. This is a configuration error and is
// surfaced at matrix construction or first use, never ignored.
var ErrMissingEdge = errors.New("no transition defined")

// Sampler draws the number of days a person stays in a state.
type Sampler interface {
	// Day returns the dwell time in whole days, >= 0.
	Day(r *rng.Rand) int
}

type fixed struct {
	day int
}

func (f fixed) Day(*rng.Rand) int { return f.day }

// Fixed returns a deterministic dwell time of the given day count.
func Fixed(day int) Sampler { return fixed{day: day} }

type logNormal struct {
	mu    float64
	sigma float64
}

func (l logNormal) Day(r *rng.Rand) int {
	return int(math.Round(r.LogNormal(l.mu, l.sigma)))
}

// LogNormal returns a log-normally distributed dwell time with the given
// distribution parameters.
func LogNormal(mu, sigma float64) (Sampler, error) {
	if sigma < 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("sigma must be >= 0 but is %f", sigma)
	}
	return logNormal{mu: mu, sigma: sigma}, nil
}

// LogNormalMedianStd parameterizes a log-normal dwell time by its median
// and standard deviation.
func LogNormalMedianStd(median, std float64) (Sampler, error) {
	if median <= 0 {
		return nil, fmt.Errorf("median must be > 0 but is %f", median)
	}
	mu := math.Log(median)
	if std == 0 {
		// equation below is numerically unstable for std near zero
		return LogNormal(mu, 0)
	}
	ssigma := math.Log(0.5 * math.Exp(-2*mu) * (math.Exp(2*mu) + math.Sqrt(math.Exp(4*mu)+4*math.Exp(2*mu)*std*std)))
	return LogNormal(mu, math.Sqrt(ssigma))
}

// LogNormalMeanStd parameterizes a log-normal dwell time by its mean and
// standard deviation.
func LogNormalMeanStd(mean, std float64) (Sampler, error) {
	if mean <= 0 {
		return nil, fmt.Errorf("mean must be > 0 but is %f", mean)
	}
	if std == 0 {
		return LogNormalMedianStd(mean, 0)
	}
	mu := math.Log((mean * mean) / math.Sqrt(mean*mean+std*std))
	sigma := math.Log(1 + (std*std)/(mean*mean))
	return LogNormal(mu, math.Sqrt(sigma))
}

// Matrix holds the dwell-time sampler for every directed edge of the
// disease state graph.
type Matrix struct {
	edges [population.NumStatuses * population.NumStatuses]Sampler
}

// NewMatrix creates an empty transition matrix.
func NewMatrix() *Matrix {
	return &Matrix{}
}

// Set registers the sampler for the edge from -> to.
func (m *Matrix) Set(from, to population.DiseaseStatus, s Sampler) *Matrix {
	m.edges[int(from)*population.NumStatuses+int(to)] = s
	return m
}

// Sample draws the dwell time for the edge from -> to. A missing edge
// for a reachable pair means the configuration is inconsistent.
func (m *Matrix) Sample(from, to population.DiseaseStatus, r *rng.Rand) (int, error) {
	s := m.edges[int(from)*population.NumStatuses+int(to)]
	if s == nil {
		return 0, fmt.Errorf("%w: %s -> %s", ErrMissingEdge, from, to)
	}
	return s.Day(r), nil
}

// Has reports whether the edge from -> to is configured.
func (m *Matrix) Has(from, to population.DiseaseStatus) bool {
	return m.edges[int(from)*population.NumStatuses+int(to)] != nil
}

// Default returns the reference disease progression: incubation of
// about four days, symptom onset around day six of contagiousness and
// hospital dwell times of one to three weeks.
func Default() *Matrix {
	m := NewMatrix()
	m.Set(population.InfectedButNotContagious, population.Contagious, mustMedianStd(4, 3))
	m.Set(population.Contagious, population.ShowingSymptoms, mustMedianStd(2, 2))
	m.Set(population.Contagious, population.Recovered, mustMedianStd(8, 8))
	m.Set(population.ShowingSymptoms, population.SeriouslySick, mustMedianStd(4, 4))
	m.Set(population.ShowingSymptoms, population.Recovered, mustMedianStd(8, 8))
	m.Set(population.SeriouslySick, population.Critical, mustMedianStd(1, 1))
	m.Set(population.SeriouslySick, population.Recovered, mustMedianStd(14, 14))
	m.Set(population.Critical, population.SeriouslySickAfterCritical, mustMedianStd(21, 21))
	m.Set(population.SeriouslySickAfterCritical, population.Recovered, mustMedianStd(7, 7))
	m.Set(population.Recovered, population.Susceptible, mustMeanStd(360, 15))
	return m
}

func mustMeanStd(mean, std float64) Sampler {
	s, err := LogNormalMeanStd(mean, std)
	if err != nil {
		panic(err)
	}
	return s
}

func mustMedianStd(median, std float64) Sampler {
	s, err := LogNormalMedianStd(median, std)
	if err != nil {
		panic(err)
	}
	return s
}
