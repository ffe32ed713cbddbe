package weather

import "fmt"

// Forecast day bounds. Out-of-range requests are clamped rather than
// rejected; the tool description documents this.
const (
	MinForecastDays     = 1
	MaxForecastDays     = 7
	DefaultForecastDays = 3
)

// ForecastDay is one entry of a generated forecast.
type ForecastDay struct {
	Data
	Date string `json:"date"`
}

// ClampForecastDays bounds days to [MinForecastDays, MaxForecastDays].
func ClampForecastDays(days int) int {
	if days < MinForecastDays {
		return MinForecastDays
	}
	if days > MaxForecastDays {
		return MaxForecastDays
	}
	return days
}

// Forecast generates a mock forecast for a location: the current record
// with a small temperature drift per day and a synthetic date. The
// result has exactly ClampForecastDays(days) entries.
func (s *Store) Forecast(location string, days int) ([]ForecastDay, error) {
	base, err := s.Lookup(location)
	if err != nil {
		return nil, err
	}

	days = ClampForecastDays(days)
	forecast := make([]ForecastDay, 0, days)
	for i := 0; i < days; i++ {
		day := base
		day.Temperature += i*2 - 2
		forecast = append(forecast, ForecastDay{
			Data: day,
			Date: fmt.Sprintf("2024-01-%d", 16+i),
		})
	}

	return forecast, nil
}
