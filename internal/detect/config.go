package detect

// Config holds the tunable thresholds shared by the three detectors.
type Config struct {
	// Cycle detection.
	MinCycleLength   int     `yaml:"min_cycle_length"`   // shortest reported cycle (nodes)
	MaxCycleLength   int     `yaml:"max_cycle_length"`   // DFS depth cap (nodes)
	MaxCycles        int     `yaml:"max_cycles"`         // hard result ceiling
	CycleWindowHours int     `yaml:"cycle_window_hours"` // temporal-proximity span
	AmountTolerance  float64 `yaml:"amount_tolerance"`   // max per-hop deviation from mean

	// Smurfing detection.
	SmurfWindowHours    int     `yaml:"smurf_window_hours"` // sliding window size
	FanThreshold        int     `yaml:"fan_threshold"`      // distinct counterparties to flag
	VelocityThreshold   float64 `yaml:"velocity_threshold"`
	RedistributionRatio float64 `yaml:"redistribution_ratio"`
	MaxSmurfing         int     `yaml:"max_smurfing"`

	// Layering detection.
	ShellMinDegree      int     `yaml:"shell_min_degree"`
	ShellMaxDegree      int     `yaml:"shell_max_degree"`
	MaxLayeringDepth    int     `yaml:"max_layering_depth"` // hops
	ShellRatio          float64 `yaml:"shell_ratio"`        // min shell fraction among intermediates
	LayeringStepHours   int     `yaml:"layering_step_hours"` // max backward regression per hop
	LayeringSpanHours   int     `yaml:"layering_span_hours"` // max first-to-last span
	SpreadTolerance     float64 `yaml:"spread_tolerance"`    // max per-chain amount spread
	MaxLayering         int     `yaml:"max_layering"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinCycleLength:   3,
		MaxCycleLength:   5,
		MaxCycles:        5000,
		CycleWindowHours: 72,
		AmountTolerance:  0.50,

		SmurfWindowHours:    72,
		FanThreshold:        10,
		VelocityThreshold:   0.70,
		RedistributionRatio: 0.70,
		MaxSmurfing:         500,

		ShellMinDegree:    2,
		ShellMaxDegree:    3,
		MaxLayeringDepth:  8,
		ShellRatio:        0.70,
		LayeringStepHours: 72,
		LayeringSpanHours: 144,
		SpreadTolerance:   0.50,
		MaxLayering:       500,
	}
}

const hourMillis = int64(3600 * 1000)

func clampScore(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
