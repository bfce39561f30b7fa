package tool

import "time"

// Hard system maxima. Caller-supplied and configured values are clamped to
// these regardless of what was requested, so no invocation can ask for
// unbounded resource consumption.
const (
	MaxExecTimeout     = 120 * time.Second
	DefaultExecTimeout = 60 * time.Second

	MaxExecOutputBytes     = 1_000_000
	DefaultExecOutputBytes = 200_000

	MaxExecArgs   = 64
	MaxExecArgLen = 8192
	MaxExecStdin  = 200_000

	MaxFetchTimeout     = 30 * time.Second
	DefaultFetchTimeout = 15 * time.Second

	MaxFetchBodyBytes     = 1_000_000
	DefaultFetchBodyBytes = 500_000

	MaxFetchRedirects     = 5
	DefaultFetchRedirects = 3
)

func clampDuration(v, def, max time.Duration) time.Duration {
	if v <= 0 {
		v = def
	}
	if v > max {
		v = max
	}
	return v
}

func clampInt(v, def, max int) int {
	if v <= 0 {
		v = def
	}
	if v > max {
		v = max
	}
	return v
}
