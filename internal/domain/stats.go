package domain

import (
	"math"
	"sort"
)

// MetricStats holds min/max/avg for one metric over a window. Nil fields
// mean no non-nil values qualified (the explicit "no data" marker).
type MetricStats struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
	Avg *float64 `json:"avg"`
}

// HasData reports whether at least one value contributed to the metric.
func (m MetricStats) HasData() bool { return m.Avg != nil }

// Stats is the aggregated view over a city's observations in a window.
// Purely derived; recomputable from observation rows at any time.
type Stats struct {
	Temperature       MetricStats `json:"temperature"`
	Humidity          MetricStats `json:"humidity"`
	WindSpeed         MetricStats `json:"wind_speed"`
	Pressure          MetricStats `json:"pressure"`
	DominantCondition string      `json:"dominant_condition,omitempty"`
	Days              int         `json:"days"`
}

// ComputeStats aggregates min/max/avg per metric across observations.
// Nil metric values are excluded from that metric's count and sum, not
// treated as zero. The dominant condition is the most frequent non-empty
// weather_condition, ties broken alphabetically for determinism.
func ComputeStats(obs []Observation) Stats {
	var temp, humidity, wind, pressure accumulator
	conditions := make(map[string]int)

	for _, o := range obs {
		temp.add(o.Temperature)
		wind.add(o.WindSpeed)
		if o.Humidity != nil {
			humidity.add(Float64(float64(*o.Humidity)))
		}
		if o.Pressure != nil {
			pressure.add(Float64(float64(*o.Pressure)))
		}
		if o.WeatherCondition != "" {
			conditions[o.WeatherCondition]++
		}
	}

	return Stats{
		Temperature:       temp.stats(),
		Humidity:          humidity.stats(),
		WindSpeed:         wind.stats(),
		Pressure:          pressure.stats(),
		DominantCondition: dominantCondition(conditions),
		Days:              len(obs),
	}
}

// accumulator tracks running min/max/sum over non-nil values.
type accumulator struct {
	count int
	sum   float64
	min   float64
	max   float64
}

func (a *accumulator) add(v *float64) {
	if v == nil {
		return
	}
	if a.count == 0 {
		a.min = *v
		a.max = *v
	} else {
		a.min = math.Min(a.min, *v)
		a.max = math.Max(a.max, *v)
	}
	a.sum += *v
	a.count++
}

func (a *accumulator) stats() MetricStats {
	if a.count == 0 {
		return MetricStats{}
	}
	return MetricStats{
		Min: Float64(a.min),
		Max: Float64(a.max),
		Avg: Float64(a.sum / float64(a.count)),
	}
}

func dominantCondition(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestCount := 0
	for _, name := range names {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	return best
}
