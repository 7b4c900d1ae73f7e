package services

import (
	"time"
)

// Capacity computes the maximum number of tokens a session can hold from its
// duration, configured average service time, and buffer. Returns 0 when the
// average service time is unset. Pure; invoked at session creation unless an
// explicit capacity override is supplied, and again when the average changes.
func Capacity(startTime, endTime time.Time, avgServiceMinutes, bufferMinutes int) int {
	if avgServiceMinutes <= 0 {
		return 0
	}

	availableMinutes := int(endTime.Sub(startTime)/time.Minute) - bufferMinutes
	if availableMinutes < 0 {
		availableMinutes = 0
	}

	return availableMinutes / avgServiceMinutes
}
