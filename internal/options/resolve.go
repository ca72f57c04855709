package options

// Resolve returns the value configured for the item at index. An empty list
// yields def; an index past the end of the list yields the last value.
func Resolve[T any](index int, values []T, def T) T {
	if len(values) == 0 {
		return def
	}
	return values[min(index, len(values)-1)]
}
