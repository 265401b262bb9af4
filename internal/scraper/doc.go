// Package scraper fetches ticketing platform listings and turns them into
// event records.
//
// Each platform is a Scraper built from the platform catalog. Scrapers share a
// Fetcher that applies the request timeout, an explicit retry policy and the
// per-request rate-limit delay. District listings are read from the
// structured data of each event page; BookMyShow listings are read from the
// city explore page.
package scraper
