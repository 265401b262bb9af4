// Package filter narrows stored event records by date range, name, city,
// platform, category and status.
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.WeekendsOnly = true
//	f.Cities = []string{"Mumbai"}
//
//	filtered := f.Apply(events, time.Now())
package filter
