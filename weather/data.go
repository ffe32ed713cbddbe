// Package weather holds the static demonstration data and the MCP
// resource, tool and prompt definitions built from it.
package weather

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownLocation reports a location missing from the data table.
var ErrUnknownLocation = errors.New("unknown location")

// Data is a single weather observation. Values are fixed at process
// start and never change.
type Data struct {
	Location    string `json:"location"`
	Temperature int    `json:"temperature"`
	Humidity    int    `json:"humidity"`
	Conditions  string `json:"conditions"`
	WindSpeed   int    `json:"wind_speed"`
	LastUpdated string `json:"last_updated"`
}

// Store is the immutable table of sample observations, keyed by a
// normalized location identifier.
type Store struct {
	records map[string]Data
}

// NewStore creates a Store populated with the built-in sample data.
func NewStore() *Store {
	const lastUpdated = "2024-01-15T14:30:00Z"

	return &Store{
		records: map[string]Data{
			"new_york": {
				Location:    "New York, NY",
				Temperature: 72,
				Humidity:    65,
				Conditions:  "Partly cloudy",
				WindSpeed:   8,
				LastUpdated: lastUpdated,
			},
			"london": {
				Location:    "London, UK",
				Temperature: 18,
				Humidity:    78,
				Conditions:  "Overcast",
				WindSpeed:   12,
				LastUpdated: lastUpdated,
			},
			"tokyo": {
				Location:    "Tokyo, Japan",
				Temperature: 25,
				Humidity:    60,
				Conditions:  "Clear",
				WindSpeed:   5,
				LastUpdated: lastUpdated,
			},
		},
	}
}

// Keys returns the table's location identifiers in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the record stored under an exact key.
func (s *Store) Get(key string) (Data, bool) {
	data, ok := s.records[key]
	return data, ok
}

// Lookup resolves free-form location input against the table. Input is
// normalized and matched against keys by containment in either
// direction, so "New York" and "new_york" both resolve.
func (s *Store) Lookup(location string) (Data, error) {
	normalized := normalizeLocation(location)
	if normalized == "" {
		return Data{}, fmt.Errorf("%w: %q", ErrUnknownLocation, location)
	}

	if data, ok := s.records[normalized]; ok {
		return data, nil
	}

	for _, key := range s.Keys() {
		if strings.Contains(normalized, key) || strings.Contains(key, normalized) {
			return s.records[key], nil
		}
	}

	return Data{}, fmt.Errorf("%w: %q", ErrUnknownLocation, location)
}

func normalizeLocation(location string) string {
	normalized := strings.ToLower(strings.TrimSpace(location))
	normalized = strings.ReplaceAll(normalized, ",", "")
	return strings.ReplaceAll(normalized, " ", "_")
}
