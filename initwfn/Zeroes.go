package initwfn

import G "gorgonia.org/gorgonia"

// ZeroesConfig configures an initializer which sets all weights to 0
type ZeroesConfig struct{}

// NewZeroes returns a new zero weight initializer
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(ZeroesConfig{})
}

func (z ZeroesConfig) Type() Type {
	return Zeroes
}

func (z ZeroesConfig) Create() G.InitWFn {
	return G.Zeroes()
}

func (z ZeroesConfig) Validate() error {
	return nil
}
