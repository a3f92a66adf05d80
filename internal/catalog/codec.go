package catalog

import "time"

// nullTime converts a nullable time field to a driver-friendly value:
// the zero value (NULL) when t is nil.
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// nullFloat converts a nullable float field to a driver-friendly value.
func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
