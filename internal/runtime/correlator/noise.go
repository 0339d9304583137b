package correlator

import "strings"

// DefaultNoiseServices are system endpoints whose chatter drowns everything
// else in a capture.
var DefaultNoiseServices = []string{
	"com.apple.cfprefsd.daemon",
	"com.apple.runningboard",
	"com.apple.UIKit.KeyboardManagement.hosted",
	"com.apple.windowmanager.server",
}

// NoiseFilter drops events whose service contains one of its patterns.
type NoiseFilter struct {
	patterns []string
}

// NewNoiseFilter builds a filter from extra patterns, optionally prefixed by
// DefaultNoiseServices. Blank patterns are ignored.
func NewNoiseFilter(extra []string, withDefaults bool) NoiseFilter {
	var patterns []string
	if withDefaults {
		patterns = append(patterns, DefaultNoiseServices...)
	}
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return NoiseFilter{patterns: patterns}
}

// Match returns the first pattern contained in service.
func (f NoiseFilter) Match(service string) (string, bool) {
	for _, p := range f.patterns {
		if strings.Contains(service, p) {
			return p, true
		}
	}
	return "", false
}

// Patterns returns a copy of the active patterns.
func (f NoiseFilter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}
