package renderer

import "time"

// TraceStats counts the work done by RayTrace
type TraceStats struct {
	Calls       int // RayTrace invocations, including ones rejected by the depth limit
	MaxDepth    int // Deepest recursion level that was traced
	Reflections int // Reflection rays spawned
}

// RenderStats contains statistics about one Render call
type RenderStats struct {
	Width    int
	Height   int
	Pixels   int // Pixels written to the sink
	Hits     int // Pixels whose camera ray hit a primitive
	Faults   int // Pixels that failed to trace and were given the background colour
	Trace    TraceStats
	Duration time.Duration
}

// HitRatio returns the fraction of pixels whose camera ray hit something
func (s RenderStats) HitRatio() float64 {
	if s.Pixels == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Pixels)
}
