package model

import "time"

// Sample is the snapshot exchanged between the sampler and the HTTP server.
type Sample struct {
	Timestamp time.Time
	Interval  time.Duration
	Processes []Process
	Resources Resources
}

// Ready reports whether the sample carries real data.
func (s Sample) Ready() bool { return !s.Timestamp.IsZero() && s.Processes != nil }
