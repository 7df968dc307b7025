// Package domain models cities and their daily weather observations.
//
// # Data Source
//
// Observations originate from the Open-Meteo historical weather API
// (https://archive-api.open-meteo.com/v1/archive), which returns daily
// aggregates for a coordinate pair and date range. The adapter in
// internal/adapter/openmeteo normalizes the variable-shaped response into
// [DailyObservation] values; everything downstream of that boundary works
// with the normalized form only.
//
// # Normalization Conventions
//
// Open-Meteo reports each daily metric as a parallel array aligned with the
// "time" array, with JSON null for days a metric was not measured. The
// normalized representation keeps that distinction: optional metrics are
// pointers, and nil means "not measured", never zero.
//
// Derived fields:
//
//	feels_like  = (apparent_temperature_max + apparent_temperature_min) / 2,
//	              falling back to the mean temperature when either is missing.
//	humidity    = round((relative_humidity_2m_max + relative_humidity_2m_min) / 2)
//	pressure    = round((pressure_msl_max + pressure_msl_min) / 2)
//	condition   = derived from precipitation_sum / rain_sum / snowfall_sum:
//	              snowfall > 0        → "Snow"
//	              rain > 10           → "Heavy Rain"
//	              rain > 0            → "Rain"
//	              precipitation > 0   → "Precipitation"
//	              otherwise           → "Clear"
//
// Days missing any of the three core temperature series (mean/min/max) are
// dropped during normalization rather than stored as holes.
//
// # Storage Invariant
//
// At most one observation exists per (city_id, date). All writes are
// idempotent upserts keyed by that pair, which lets overlapping ingestion
// runs converge without coordination. created_at is set on first insert and
// never touched by updates.
//
// # Aggregation
//
// Rolling statistics (7/30 day windows) are computed from observation rows
// by [ComputeStats]. Nil metric values are excluded from a metric's count
// and sum; a metric with zero non-nil values in the window reports nil
// min/max/avg, never zero or NaN.
package domain
