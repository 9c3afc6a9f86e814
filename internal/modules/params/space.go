package params

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// parameterJSON is the on-disk form of a single parameter. Values may be
// numbers or "HH:MM" strings; the string form marks a clock parameter.
type parameterJSON struct {
	InitialValue json.RawMessage `json:"initial_value"`
	MinValue     json.RawMessage `json:"min_value"`
	MaxValue     json.RawMessage `json:"max_value"`
	Step         json.RawMessage `json:"step"`
	Priority     int             `json:"priority"`
	Enabled      bool            `json:"enabled"`
}

// Space is the full set of tunable parameters, keyed by name.
type Space struct {
	params map[string]Parameter
}

// NewSpace builds a space from a list of parameters.
func NewSpace(parameters []Parameter) *Space {
	m := make(map[string]Parameter, len(parameters))
	for _, p := range parameters {
		m[p.Name] = p
	}
	return &Space{params: m}
}

// LoadSpace reads a parameter space definition from a JSON file.
func LoadSpace(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}

	var raw map[string]parameterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse parameter file: %w", err)
	}

	space := &Space{params: make(map[string]Parameter, len(raw))}
	for name, pj := range raw {
		p, err := parameterFromJSON(name, pj)
		if err != nil {
			return nil, err
		}
		space.params[name] = p
	}

	if len(space.params) == 0 {
		return nil, fmt.Errorf("parameter file %s defines no parameters", path)
	}

	return space, nil
}

// Save writes the space back to a JSON file in the same format LoadSpace reads.
func (s *Space) Save(path string) error {
	raw := make(map[string]parameterJSON, len(s.params))
	for name, p := range s.params {
		raw[name] = parameterToJSON(p)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal parameter space: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write parameter file: %w", err)
	}
	return nil
}

// Get returns a parameter by name.
func (s *Space) Get(name string) (Parameter, bool) {
	p, ok := s.params[name]
	return p, ok
}

// Names returns all parameter names, sorted.
func (s *Space) Names() []string {
	names := make([]string, 0, len(s.params))
	for name := range s.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Active returns the enabled parameters ordered by priority (ascending),
// then by name for determinism.
func (s *Space) Active() []Parameter {
	var active []Parameter
	for _, p := range s.params {
		if p.Enabled {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].Name < active[j].Name
	})
	return active
}

// Len returns the number of parameters in the space.
func (s *Space) Len() int {
	return len(s.params)
}

// InitialConfig returns a configuration holding every parameter's
// initial value, enabled or not.
func (s *Space) InitialConfig() Config {
	cfg := make(Config, len(s.params))
	for name, p := range s.params {
		cfg[name] = p.Initial
	}
	return cfg
}

// Validate checks that cfg covers exactly the parameters of the space
// and that every value lies within its bounds.
func (s *Space) Validate(cfg Config) error {
	for name, p := range s.params {
		v, ok := cfg[name]
		if !ok {
			return fmt.Errorf("configuration missing parameter %s", name)
		}
		if !p.InRange(v) {
			return fmt.Errorf("parameter %s value %s out of range [%s, %s]",
				name, p.Format(v), p.Format(p.Min), p.Format(p.Max))
		}
	}
	for name := range cfg {
		if _, ok := s.params[name]; !ok {
			return fmt.Errorf("configuration has unknown parameter %s", name)
		}
	}
	return nil
}

func parameterFromJSON(name string, pj parameterJSON) (Parameter, error) {
	kind := KindNumeric
	if isClockRaw(pj.InitialValue) {
		kind = KindClock
	}

	p := Parameter{
		Name:     name,
		Kind:     kind,
		Priority: pj.Priority,
		Enabled:  pj.Enabled,
	}

	fields := []struct {
		raw  json.RawMessage
		dst  *float64
		what string
	}{
		{pj.InitialValue, &p.Initial, "initial_value"},
		{pj.MinValue, &p.Min, "min_value"},
		{pj.MaxValue, &p.Max, "max_value"},
		{pj.Step, &p.Step, "step"},
	}
	for _, f := range fields {
		v, err := parseRawValue(f.raw, kind)
		if err != nil {
			return Parameter{}, fmt.Errorf("parameter %s %s: %w", name, f.what, err)
		}
		*f.dst = v
	}

	if p.Min > p.Max {
		return Parameter{}, fmt.Errorf("parameter %s has min > max", name)
	}
	if !p.InRange(p.Initial) {
		return Parameter{}, fmt.Errorf("parameter %s initial value out of range", name)
	}

	return p, nil
}

func parameterToJSON(p Parameter) parameterJSON {
	encode := func(v float64) json.RawMessage {
		if p.Kind == KindClock {
			return json.RawMessage(fmt.Sprintf("%q", FormatClock(v)))
		}
		return json.RawMessage(p.Format(v))
	}
	return parameterJSON{
		InitialValue: encode(p.Initial),
		MinValue:     encode(p.Min),
		MaxValue:     encode(p.Max),
		Step:         encode(p.Step),
		Priority:     p.Priority,
		Enabled:      p.Enabled,
	}
}

// isClockRaw reports whether a raw JSON value is a "HH:MM" string.
func isClockRaw(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return strings.Contains(s, ":")
}

func parseRawValue(raw json.RawMessage, kind Kind) (float64, error) {
	if kind == KindClock {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if strings.Contains(s, ":") {
				return ParseClock(s)
			}
		}
		// step for clock params may be a plain number of minutes
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("expected number or HH:MM string, got %s", string(raw))
	}
	return v, nil
}
