package utils

import "time"

// Timestamp returns the current time in seconds since the epoch. Cache
// entries and password records store this resolution on the wire.
func Timestamp() int64 {
	return time.Now().Unix()
}
