package surrogate

import (
	"github.com/tradelab/breakaway/internal/modules/params"
)

// FeatureEncoder maps configurations onto fixed-order feature vectors.
// Parameter order is the space's sorted name order, so vectors built at
// training and scoring time always line up.
type FeatureEncoder struct {
	names []string
}

// NewFeatureEncoder creates an encoder over the whole space.
func NewFeatureEncoder(space *params.Space) *FeatureEncoder {
	return &FeatureEncoder{names: space.Names()}
}

// Width returns the feature vector length.
func (e *FeatureEncoder) Width() int {
	return len(e.names)
}

// Names returns the feature order.
func (e *FeatureEncoder) Names() []string {
	return e.names
}

// Encode turns a configuration into its feature vector. Clock values
// are already minutes since midnight, so everything is numeric.
func (e *FeatureEncoder) Encode(cfg params.Config) []float64 {
	out := make([]float64, len(e.names))
	for i, name := range e.names {
		out[i] = cfg[name]
	}
	return out
}
