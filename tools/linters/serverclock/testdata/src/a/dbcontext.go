package a

import "time"

// GetServerTimeUtc stands in for the real dbcontext.go method: the one
// sanctioned place in this package that reads the wall clock directly.
func GetServerTimeUtc() time.Time {
	return time.Now()
}
