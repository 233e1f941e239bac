package model

import "fmt"

// DurationType tells the engines how a task consumes resource time.
type DurationType int

const (
	// DurationFixed needs an uninterrupted span of Seconds.
	DurationFixed DurationType = iota
	// DurationFloat needs Seconds of qualifying time and may flow around
	// interruptions.
	DurationFloat
	// DurationRunRate needs Quantity units produced at the run-rate of the
	// resource segments it occupies.
	DurationRunRate
	// DurationStatic occupies Seconds and is checked only against its
	// window boundaries.
	DurationStatic
	// DurationUntracked ignores resource quantities.
	DurationUntracked
)

func (t DurationType) String() string {
	switch t {
	case DurationFixed:
		return "FIXED"
	case DurationFloat:
		return "FLOAT"
	case DurationRunRate:
		return "RUN_RATE"
	case DurationStatic:
		return "STATIC"
	case DurationUntracked:
		return "UNTRACKED"
	default:
		return "unknown"
	}
}

// ParseDurationType converts the textual type used in landscape files.
func ParseDurationType(s string) (DurationType, error) {
	switch s {
	case "", "FIXED", "fixed":
		return DurationFixed, nil
	case "FLOAT", "float":
		return DurationFloat, nil
	case "RUN_RATE", "run_rate", "runrate":
		return DurationRunRate, nil
	case "STATIC", "static":
		return DurationStatic, nil
	case "UNTRACKED", "untracked":
		return DurationUntracked, nil
	default:
		return DurationFixed, fmt.Errorf("unknown duration type %q", s)
	}
}

// Duration describes how long a task runs.
type Duration struct {
	Type DurationType `json:"type"`
	// Seconds is the time requirement of every type but RunRate, for which
	// it is the nominal time used for projections.
	Seconds int64 `json:"seconds"`
	// Quantity is the amount to produce for RunRate durations.
	Quantity float64 `json:"quantity,omitempty"`
}

// Duration returns the nominal time requirement in seconds.
func (d Duration) Duration() int64 { return d.Seconds }

// Validate checks the duration fields against its type.
func (d Duration) Validate() error {
	if d.Type == DurationRunRate {
		if d.Quantity <= 0 {
			return fmt.Errorf("run-rate duration needs a positive quantity")
		}
		return nil
	}
	if d.Seconds <= 0 {
		return fmt.Errorf("%s duration needs positive seconds", d.Type)
	}
	return nil
}

// Bucket returns the availability classification a duration type draws on.
func (d Duration) Bucket() Bucket {
	switch d.Type {
	case DurationFloat, DurationRunRate:
		return BucketFloat
	case DurationUntracked:
		return BucketUntracked
	default:
		return BucketFixed
	}
}
