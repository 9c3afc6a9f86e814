package params

import (
	"fmt"
	"sort"
	"strings"
)

// Config is one point in the parameter space: parameter name to value.
// Clock parameters are held as minutes since midnight.
type Config map[string]float64

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// With returns a copy of the configuration with one value replaced.
func (c Config) With(name string, value float64) Config {
	out := c.Clone()
	out[name] = value
	return out
}

// Key returns the canonical cache key for a configuration: parameter
// names sorted, values rendered in their file form, JSON-shaped. Two
// configurations describing the same point always produce the same key.
func (c Config) Key(space *Space) string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		p, ok := space.Get(name)
		if !ok {
			p = Parameter{Name: name, Kind: KindNumeric}
		}
		fmt.Fprintf(&b, "%q: %q", name, p.Format(c[name]))
	}
	b.WriteByte('}')
	return b.String()
}

// FileForm renders the configuration the way it is written to JSON and
// CSV files: clock values as "HH:MM", numbers as trimmed decimals.
func (c Config) FileForm(space *Space) map[string]string {
	out := make(map[string]string, len(c))
	for name, v := range c {
		p, ok := space.Get(name)
		if !ok {
			p = Parameter{Name: name, Kind: KindNumeric}
		}
		out[name] = p.Format(v)
	}
	return out
}

// ConfigFromFileForm parses a string-valued configuration map back into
// internal float64 values using the space's parameter kinds.
func ConfigFromFileForm(space *Space, raw map[string]string) (Config, error) {
	cfg := make(Config, len(raw))
	for name, s := range raw {
		p, ok := space.Get(name)
		if !ok {
			p = Parameter{Name: name, Kind: KindNumeric}
			if strings.Contains(s, ":") {
				p.Kind = KindClock
			}
		}
		v, err := p.Parse(s)
		if err != nil {
			return nil, err
		}
		cfg[name] = v
	}
	return cfg, nil
}
