package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// GlorotUConfig configures Glorot uniform initialization, which draws
// weights uniformly with a variance scaled by Gain and the fan in and
// fan out of each layer
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns GlorotU
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotUConfig) Create() G.InitWFn {
	return G.GlorotU(g.Gain)
}

// Validate checks that the gain is positive
func (g GlorotUConfig) Validate() error {
	return validateGain(g.Gain)
}

// GlorotNConfig configures Glorot normal initialization, the gaussian
// counterpart of GlorotUConfig
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

// Type returns GlorotN
func (g GlorotNConfig) Type() Type {
	return GlorotN
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotNConfig) Create() G.InitWFn {
	return G.GlorotN(g.Gain)
}

// Validate checks that the gain is positive
func (g GlorotNConfig) Validate() error {
	return validateGain(g.Gain)
}

func validateGain(gain float64) error {
	if gain <= 0 {
		return fmt.Errorf("validate: gain must be positive, got %v", gain)
	}
	return nil
}
