//go:build !unix

package metric

import "time"

// processCPUTime is not implemented off unix; ProcessTime reports unavailable.
func processCPUTime() (time.Duration, bool) {
	return 0, false
}
