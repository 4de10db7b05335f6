package services

import "time"

// Clock supplies "now" to the abuse guard so window and expiry arithmetic is
// performed in-process against an injectable time source rather than by the
// database.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
