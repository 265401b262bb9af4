package config

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SupportedCities lists the cities the platform catalog is maintained for
var SupportedCities = []string{
	"Mumbai", "Delhi", "Bangalore", "Hyderabad",
	"Chennai", "Pune", "Kolkata", "Ahmedabad",
	"Jaipur", "Kochi",
}

// NormalizeCity collapses whitespace and title-cases a city name. The city is
// part of an event's identity, so every entry point normalizes it the same way.
func NormalizeCity(city string) string {
	fields := strings.Fields(city)
	if len(fields) == 0 {
		return ""
	}
	return cases.Title(language.English).String(strings.Join(fields, " "))
}

// ValidCity reports whether city is one of SupportedCities
func ValidCity(city string) bool {
	city = NormalizeCity(city)
	for _, c := range SupportedCities {
		if c == city {
			return true
		}
	}
	return false
}
