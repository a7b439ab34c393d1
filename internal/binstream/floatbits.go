package binstream

import "math"

// bitsFromFloat/floatFromBits reinterpret a double as its IEEE-754 bit
// pattern, per spec §3: "doubles reinterpreted as u64 in IEEE-754".
func bitsFromFloat(f float64) uint64 { return math.Float64bits(f) }
func floatFromBits(u uint64) float64 { return math.Float64frombits(u) }
