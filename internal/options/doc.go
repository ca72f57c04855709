// Package options holds the per-item execution configuration of a run and
// turns it into backend requests.
//
// Per-item settings are sparse, index-addressed lists. An empty list means
// every item uses the field's default; a list shorter than the query list
// makes its last value stick for every remaining item. Resolve implements
// that rule and the request builders apply it to every field.
package options
