// Package params defines the tunable parameter space of the breakaway
// strategy: named parameters with bounds and a step, either plain numeric
// or clock-valued ("HH:MM"). All values are held internally as float64;
// clock parameters are minutes since midnight and only become "HH:MM"
// strings at the JSON/CSV boundary.
package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind distinguishes numeric parameters from clock ("HH:MM") parameters.
type Kind int

const (
	KindNumeric Kind = iota
	KindClock
)

// Parameter describes a single tunable value and its search range.
type Parameter struct {
	Name     string
	Kind     Kind
	Initial  float64 // clock params: minutes since midnight
	Min      float64
	Max      float64
	Step     float64
	Priority int
	Enabled  bool
}

// InRange reports whether v lies within the parameter's bounds.
func (p Parameter) InRange(v float64) bool {
	return v >= p.Min && v <= p.Max
}

// Offset returns center shifted by units steps, or false when the result
// falls outside the bounds.
func (p Parameter) Offset(center float64, units int) (float64, bool) {
	v := p.round(center + float64(units)*p.Step)
	if !p.InRange(v) {
		return 0, false
	}
	return v, true
}

// ValuesAround generates up to maxCount values centered on center,
// alternating above/below by one step at a time, bounded by Min/Max.
// The center itself is always first. maxCount <= 0 means no cap.
func (p Parameter) ValuesAround(center float64, maxCount int) []float64 {
	values := []float64{p.round(center)}
	below := center - p.Step
	above := center + p.Step

	for {
		added := false
		if above <= p.Max {
			values = append(values, p.round(above))
			above += p.Step
			added = true
		}
		if maxCount > 0 && len(values) >= maxCount {
			break
		}
		if below >= p.Min {
			values = append(values, p.round(below))
			below -= p.Step
			added = true
		}
		if maxCount > 0 && len(values) >= maxCount {
			break
		}
		if !added {
			break
		}
	}

	if maxCount > 0 && len(values) > maxCount {
		values = values[:maxCount]
	}
	return values
}

// ValuesExpanded generates all values center ± n·step out to the bounds.
func (p Parameter) ValuesExpanded(center float64) []float64 {
	return p.ValuesAround(center, 0)
}

// AllValues sweeps the full range Min..Max by Step, ascending.
func (p Parameter) AllValues() []float64 {
	if p.Step <= 0 {
		return []float64{p.round(p.Min)}
	}
	var values []float64
	for v := p.Min; v <= p.Max+1e-9; v += p.Step {
		values = append(values, p.round(v))
	}
	return values
}

// Format renders a value the way it appears in JSON and CSV files:
// "HH:MM" for clock parameters, a trimmed decimal otherwise.
func (p Parameter) Format(v float64) string {
	if p.Kind == KindClock {
		total := int(math.Round(v))
		return fmt.Sprintf("%02d:%02d", total/60, total%60)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Parse converts a file representation back to the internal float64.
func (p Parameter) Parse(s string) (float64, error) {
	if p.Kind == KindClock {
		return ParseClock(s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", p.Name, s)
	}
	return v, nil
}

// round quantizes to 4 decimals so repeated step arithmetic cannot drift
// into distinct cache keys. Clock values snap to whole minutes.
func (p Parameter) round(v float64) float64 {
	if p.Kind == KindClock {
		return math.Round(v)
	}
	return math.Round(v*1e4) / 1e4
}

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q, expected HH:MM", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return float64(hours*60 + minutes), nil
}

// FormatClock converts minutes since midnight to "HH:MM".
func FormatClock(minutes float64) string {
	total := int(math.Round(minutes))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
