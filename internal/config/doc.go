// Package config loads event-discovery settings from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file. The platform catalog that maps each scraping platform and city
// to a listing URL is a YAML document; a default catalog is embedded and can
// be replaced with PLATFORMS_FILE.
package config
