package openmeteo

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

// normalizeDaily converts the parallel-array archive payload into one
// DailyObservation per day, in chronological order. Days missing any core
// temperature series are dropped.
func normalizeDaily(d archiveDaily) ([]domain.DailyObservation, error) {
	obs := make([]domain.DailyObservation, 0, len(d.Time))

	for i, ds := range d.Time {
		date, err := time.ParseInLocation("2006-01-02", ds, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", ds, err)
		}

		mean := at(d.TemperatureMean, i)
		min := at(d.TemperatureMin, i)
		max := at(d.TemperatureMax, i)
		if mean == nil || min == nil || max == nil {
			continue
		}

		precip := valueOrZero(at(d.PrecipitationSum, i))
		rain := valueOrZero(at(d.RainSum, i))
		snow := valueOrZero(at(d.SnowfallSum, i))

		obs = append(obs, domain.DailyObservation{
			Date:               date,
			Temperature:        mean,
			FeelsLike:          feelsLike(at(d.ApparentTempMax, i), at(d.ApparentTempMin, i), *mean),
			TemperatureMin:     min,
			TemperatureMax:     max,
			Pressure:           roundedMidpoint(at(d.PressureMax, i), at(d.PressureMin, i)),
			Humidity:           roundedMidpoint(at(d.HumidityMax, i), at(d.HumidityMin, i)),
			WindSpeed:          at(d.WindSpeedMax, i),
			WindDirection:      roundedDegrees(at(d.WindDirection, i)),
			WeatherCondition:   weatherCondition(precip, rain, snow),
			WeatherDescription: weatherDescription(precip, rain, snow),
		})
	}

	return obs, nil
}

// at returns the i-th element of a metric array, or nil when the array is
// absent, short, or holds an upstream null at that position.
func at(arr []*float64, i int) *float64 {
	if i >= len(arr) {
		return nil
	}
	return arr[i]
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// feelsLike averages the apparent temperature extremes, falling back to
// the daily mean when either side is missing.
func feelsLike(max, min *float64, mean float64) *float64 {
	if max == nil || min == nil {
		return domain.Float64(mean)
	}
	return domain.Float64((*max + *min) / 2)
}

// roundedMidpoint averages two sides of a metric to a whole number, or nil
// when either side is missing.
func roundedMidpoint(max, min *float64) *int {
	if max == nil || min == nil {
		return nil
	}
	return domain.Int(int(math.Round((*max + *min) / 2)))
}

func roundedDegrees(v *float64) *int {
	if v == nil {
		return nil
	}
	return domain.Int(int(math.Round(*v)))
}

// weatherCondition derives a short condition code from daily precipitation
// totals. Thresholds follow the dashboard's legend: rain above 10mm is
// reported as heavy.
func weatherCondition(precipitation, rain, snowfall float64) string {
	switch {
	case snowfall > 0:
		return "Snow"
	case rain > 10:
		return "Heavy Rain"
	case rain > 0:
		return "Rain"
	case precipitation > 0:
		return "Precipitation"
	default:
		return "Clear"
	}
}

func weatherDescription(precipitation, rain, snowfall float64) string {
	switch {
	case snowfall > 5:
		return "Heavy snow"
	case snowfall > 0:
		return "Light snow"
	case rain > 10:
		return "Heavy rain"
	case rain > 2:
		return "Moderate rain"
	case rain > 0:
		return "Light rain"
	case precipitation > 0:
		return "Precipitation"
	default:
		return "Clear sky"
	}
}
